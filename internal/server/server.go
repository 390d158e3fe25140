// Package server exposes the engine over HTTP: one-shot searches and perft
// as JSON endpoints, and a websocket that streams search progress.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
)

// ErrIllegalMove is returned when a request's move list does not apply.
var ErrIllegalMove = errors.New("illegal move")

const maxBodyBytes = 64 << 10

// Options configures a Server. Zero fields take defaults.
type Options struct {
	Logger        zerolog.Logger
	MaxDepth      int // cap on requested search depth (default 10)
	MaxPerftDepth int // cap on requested perft depth (default 6)
	PerftWorkers  int // goroutines per perft request (default NumCPU)
}

// Server routes API requests to a shared engine. Searches are serialised
// by the engine; perft runs on its own goroutines.
type Server struct {
	router   *mux.Router
	handler  http.Handler
	engine   *engine.Engine
	log      zerolog.Logger
	opts     Options
	upgrader websocket.Upgrader
	sessions atomic.Int64
}

// New builds the router and middleware around eng.
func New(eng *engine.Engine, opts Options) *Server {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 10
	}
	if opts.MaxPerftDepth <= 0 {
		opts.MaxPerftDepth = 6
	}
	if opts.PerftWorkers <= 0 {
		opts.PerftWorkers = runtime.NumCPU()
	}
	s := &Server{
		router: mux.NewRouter(),
		engine: eng,
		log:    opts.Logger.With().Str("component", "server").Logger(),
		opts:   opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/search", s.handleSearch).Methods(http.MethodPost)
	api.HandleFunc("/perft", s.handlePerft).Methods(http.MethodGet)
	s.router.HandleFunc("/ws/search", s.handleWebsocket)
	s.router.NotFoundHandler = http.HandlerFunc(notFoundHandler)

	s.handler = handlers.LoggingHandler(s.log, s.router)
	s.handler = handlers.CORS(
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(s.handler)
	s.handler = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.log}),
	)(s.handler)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// recoveryLogger adapts zerolog to handlers.RecoveryHandlerLogger.
type recoveryLogger struct {
	log zerolog.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.log.Error().Msg(fmt.Sprint(v...))
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, fmt.Errorf("no route for %s %s", r.Method, r.URL.Path))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

type errorResponse struct {
	Error string `json:"error"`
}

// position builds the board a request refers to: fen (start position when
// empty) followed by moves in coordinate notation.
func position(fen string, moves []string) (*board.Board, error) {
	if fen == "" {
		fen = board.StartFEN
	}
	b, err := board.ParseFEN(fen)
	if err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	var legal board.MoveList
	var undo board.UndoInfo
	for _, s := range moves {
		m, err := board.ParseMove(s, b)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIllegalMove, err)
		}
		b.GenerateLegalMoves(&legal)
		if !legal.Contains(m) {
			return nil, fmt.Errorf("%w: %s in %s", ErrIllegalMove, s, b.FEN())
		}
		b.MakeMove(m, &undo)
	}
	return b, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Threads:  s.engine.Threads(),
		HashFull: s.engine.HashFull(),
		Sessions: s.sessions.Load(),
	})
}

type healthResponse struct {
	Status   string `json:"status"`
	Threads  int    `json:"threads"`
	HashFull int    `json:"hashfull"`
	Sessions int64  `json:"sessions"`
}
