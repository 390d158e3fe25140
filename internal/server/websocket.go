package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/engine"
)

// Websocket message types. Clients send "search" or "stop"; the server
// answers with "info" per completed iteration, then "result" or "error".
const (
	msgSearch = "search"
	msgStop   = "stop"
	msgInfo   = "info"
	msgResult = "result"
	msgError  = "error"
)

type clientMessage struct {
	Type string `json:"type"`
	searchRequest
}

type serverMessage struct {
	Type    string          `json:"type"`
	Session string          `json:"session"`
	Info    *infoResponse   `json:"info,omitempty"`
	Result  *searchResponse `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// session is one websocket connection. The reader goroutine queues search
// requests and handles stop; all writes happen on the handler goroutine.
type session struct {
	id   string
	conn *websocket.Conn
	log  zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc // of the running search, if any
}

func (ss *session) setCancel(c context.CancelFunc) {
	ss.mu.Lock()
	ss.cancel = c
	ss.mu.Unlock()
}

func (ss *session) stopSearch() {
	ss.mu.Lock()
	if ss.cancel != nil {
		ss.cancel()
	}
	ss.mu.Unlock()
}

func (ss *session) send(msg serverMessage) error {
	msg.Session = ss.id
	return ss.conn.WriteJSON(msg)
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ss := &session{id: uuid.NewString(), conn: conn}
	ss.log = s.log.With().Str("session", ss.id).Logger()
	s.sessions.Add(1)
	defer s.sessions.Add(-1)
	ss.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("websocket session opened")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	requests := make(chan searchRequest, 1)
	go func() {
		defer close(requests)
		defer cancel()
		for {
			var msg clientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				ss.log.Debug().Err(err).Msg("websocket read ended")
				return
			}
			switch msg.Type {
			case msgSearch:
				select {
				case requests <- msg.searchRequest:
				default:
					ss.log.Warn().Msg("search request dropped, session busy")
				}
			case msgStop:
				ss.stopSearch()
			default:
				ss.log.Warn().Str("type", msg.Type).Msg("unknown websocket message")
			}
		}
	}()

	for req := range requests {
		if err := s.runSessionSearch(ctx, ss, req); err != nil {
			ss.log.Debug().Err(err).Msg("websocket write failed")
			break
		}
	}
	ss.log.Info().Msg("websocket session closed")
}

// runSessionSearch streams one search to the session. Only write errors
// are returned; search problems are reported to the client.
func (s *Server) runSessionSearch(ctx context.Context, ss *session, req searchRequest) error {
	b, err := position(req.FEN, req.Moves)
	if err != nil {
		return ss.send(serverMessage{Type: msgError, Error: err.Error()})
	}
	limits, err := s.limits(req)
	if err != nil {
		return ss.send(serverMessage{Type: msgError, Error: err.Error()})
	}

	ctx, cancel := context.WithCancel(ctx)
	ss.setCancel(cancel)
	defer func() {
		ss.setCancel(nil)
		cancel()
	}()

	var writeErr error
	limits.OnInfo = func(si engine.SearchInfo) {
		if writeErr != nil {
			return
		}
		info := newInfoResponse(si)
		if writeErr = ss.send(serverMessage{Type: msgInfo, Info: &info}); writeErr != nil {
			cancel()
		}
	}

	res, err := s.engine.SearchWithLimits(ctx, b, limits)
	if writeErr != nil {
		return writeErr
	}
	if err != nil {
		return ss.send(serverMessage{Type: msgError, Error: err.Error()})
	}
	result := newSearchResponse(b, res)
	return ss.send(serverMessage{Type: msgResult, Result: &result})
}
