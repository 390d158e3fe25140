package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
)

type searchRequest struct {
	FEN        string   `json:"fen"`
	Moves      []string `json:"moves"`
	Depth      int      `json:"depth"`
	MoveTimeMS int      `json:"movetime_ms"`
}

type searchResponse struct {
	ID        string   `json:"id"`
	FEN       string   `json:"fen"`
	Move      string   `json:"move"`
	SAN       string   `json:"san"`
	Score     int      `json:"score"`
	ScoreText string   `json:"score_text"`
	Depth     int      `json:"depth"`
	Nodes     uint64   `json:"nodes"`
	ElapsedMS int64    `json:"elapsed_ms"`
	PV        []string `json:"pv"`
	PVSAN     []string `json:"pv_san"`
}

type infoResponse struct {
	ID        string   `json:"id"`
	Depth     int      `json:"depth"`
	Score     int      `json:"score"`
	ScoreText string   `json:"score_text"`
	Nodes     uint64   `json:"nodes"`
	NPS       uint64   `json:"nps"`
	ElapsedMS int64    `json:"elapsed_ms"`
	HashFull  int      `json:"hashfull"`
	PV        []string `json:"pv"`
}

func moveStrings(moves []board.Move) []string {
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = m.String()
	}
	return out
}

func newSearchResponse(b *board.Board, res engine.Result) searchResponse {
	resp := searchResponse{
		ID:        res.ID,
		FEN:       b.FEN(),
		Score:     res.Score,
		ScoreText: engine.ScoreToString(res.Score),
		Depth:     res.Depth,
		Nodes:     res.Nodes,
		ElapsedMS: res.Elapsed.Milliseconds(),
		PV:        moveStrings(res.PV),
		PVSAN:     b.SANLine(res.PV),
	}
	if res.Move != board.NoMove {
		resp.Move = res.Move.String()
		resp.SAN = b.SAN(res.Move)
	}
	return resp
}

func newInfoResponse(si engine.SearchInfo) infoResponse {
	return infoResponse{
		ID:        si.ID,
		Depth:     si.Depth,
		Score:     si.Score,
		ScoreText: engine.ScoreToString(si.Score),
		Nodes:     si.Nodes,
		NPS:       si.NPS,
		ElapsedMS: si.Time.Milliseconds(),
		HashFull:  si.HashFull,
		PV:        moveStrings(si.PV),
	}
}

// limits turns a request into engine limits, clamping the depth.
func (s *Server) limits(req searchRequest) (engine.SearchLimits, error) {
	if req.Depth < 0 || req.MoveTimeMS < 0 {
		return engine.SearchLimits{}, fmt.Errorf("depth and movetime_ms must not be negative")
	}
	depth := req.Depth
	if depth == 0 || depth > s.opts.MaxDepth {
		depth = s.opts.MaxDepth
	}
	return engine.SearchLimits{
		Depth:    depth,
		MoveTime: time.Duration(req.MoveTimeMS) * time.Millisecond,
	}, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	b, err := position(req.FEN, req.Moves)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	limits, err := s.limits(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.engine.SearchWithLimits(r.Context(), b, limits)
	if err != nil {
		s.log.Warn().Err(err).Str("search_id", res.ID).Msg("search ended before depth 1")
		if errors.Is(err, context.Canceled) {
			return
		}
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, newSearchResponse(b, res))
}

type perftResponse struct {
	FEN    string       `json:"fen"`
	Depth  int          `json:"depth"`
	Nodes  uint64       `json:"nodes"`
	Divide []perftEntry `json:"divide"`
}

type perftEntry struct {
	Move  string `json:"move"`
	Nodes uint64 `json:"nodes"`
}

func (s *Server) handlePerft(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	depth, err := strconv.Atoi(q.Get("depth"))
	if err != nil || depth < 1 || depth > s.opts.MaxPerftDepth {
		writeError(w, http.StatusBadRequest, fmt.Errorf("depth must be an integer in [1, %d]", s.opts.MaxPerftDepth))
		return
	}
	b, err := position(q.Get("fen"), q["move"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	entries, err := b.ParallelPerft(r.Context(), depth, s.opts.PerftWorkers)
	if err != nil {
		s.log.Warn().Err(err).Int("depth", depth).Msg("perft cancelled")
		return
	}
	resp := perftResponse{
		FEN:    b.FEN(),
		Depth:  depth,
		Nodes:  board.SumDivide(entries),
		Divide: make([]perftEntry, len(entries)),
	}
	for i, e := range entries {
		resp.Divide[i] = perftEntry{Move: e.Move.String(), Nodes: e.Nodes}
	}
	writeJSON(w, http.StatusOK, resp)
}
