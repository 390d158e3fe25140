package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/engine"
)

const (
	mateInOneFEN = "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1"
	kiwipeteFEN  = "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	eng, err := engine.New(engine.Config{Threads: 2, HashMB: 8, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(New(eng, Options{Logger: zerolog.Nop(), MaxDepth: 6, PerftWorkers: 4}))
	t.Cleanup(func() {
		ts.Close()
		eng.Close()
	})
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", &buf)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	h := decode[healthResponse](t, resp)
	if resp.StatusCode != http.StatusOK || h.Status != "ok" || h.Threads != 2 {
		t.Errorf("got %d %+v", resp.StatusCode, h)
	}
}

func TestSearchEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/search", searchRequest{FEN: mateInOneFEN, Depth: 3})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	got := decode[searchResponse](t, resp)
	if got.Move != "a1a8" || got.SAN != "Ra8#" || got.ScoreText != "Mate in 1" {
		t.Errorf("got %+v", got)
	}
	if got.ID == "" || len(got.PV) == 0 || got.PVSAN[0] != "Ra8#" {
		t.Errorf("missing id or pv: %+v", got)
	}
}

func TestSearchAppliesMoves(t *testing.T) {
	ts := newTestServer(t)
	resp := postJSON(t, ts.URL+"/api/search", searchRequest{Moves: []string{"e2e4", "e7e5", "g1f3"}, Depth: 2})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	got := decode[searchResponse](t, resp)
	want := "rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 1 2"
	if got.FEN != want {
		t.Errorf("fen %q, want %q", got.FEN, want)
	}
	if got.Move == "" {
		t.Error("no move returned")
	}
}

func TestSearchBadRequests(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed json", `{"fen":`, "decoding request"},
		{"unknown field", `{"fenn":"x"}`, "unknown field"},
		{"bad fen", `{"fen":"8/8/8/8/8/8/8/8 w - - 0 1"}`, "invalid FEN"},
		{"illegal move", `{"moves":["e2e5"]}`, "illegal move"},
		{"negative depth", `{"depth":-1}`, "negative"},
		{"opponent in check", `{"fen":"4k3/8/8/8/8/8/4R3/4K3 w - - 0 1"}`, "side not to move"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/search", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			e := decode[errorResponse](t, resp)
			if resp.StatusCode != http.StatusBadRequest || !strings.Contains(e.Error, tt.want) {
				t.Errorf("got %d %q, want 400 containing %q", resp.StatusCode, e.Error, tt.want)
			}
		})
	}
}

func TestPerftEndpoint(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		query  string
		nodes  uint64
		moves  int
		status int
	}{
		{"depth=3", 8902, 20, http.StatusOK},
		{"depth=2&move=e2e4", 600, 20, http.StatusOK},
		{"depth=2&fen=" + strings.ReplaceAll(kiwipeteFEN, " ", "+"), 2039, 48, http.StatusOK},
		{"depth=9", 0, 0, http.StatusBadRequest},
		{"depth=x", 0, 0, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, err := http.Get(ts.URL + "/api/perft?" + tt.query)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Fatalf("status %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.status != http.StatusOK {
				return
			}
			got := decode[perftResponse](t, resp)
			if got.Nodes != tt.nodes || len(got.Divide) != tt.moves {
				t.Errorf("nodes %d with %d root moves, want %d and %d", got.Nodes, len(got.Divide), tt.nodes, tt.moves)
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/nope")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status %d, want 404", resp.StatusCode)
	}
}

func dialSearch(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/search"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) serverMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var msg serverMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestWebsocketStreamsIterations(t *testing.T) {
	ts := newTestServer(t)
	conn := dialSearch(t, ts)

	req := clientMessage{Type: msgSearch, searchRequest: searchRequest{Depth: 4}}
	if err := conn.WriteJSON(req); err != nil {
		t.Fatal(err)
	}

	var session string
	depth := 0
	for {
		msg := readMessage(t, conn)
		if session == "" {
			session = msg.Session
		} else if msg.Session != session {
			t.Errorf("session changed from %s to %s", session, msg.Session)
		}
		switch msg.Type {
		case msgInfo:
			depth++
			if msg.Info.Depth != depth {
				t.Errorf("info depth %d, want %d", msg.Info.Depth, depth)
			}
			continue
		case msgResult:
			if msg.Result.Depth != 4 || msg.Result.Move == "" {
				t.Errorf("result %+v", msg.Result)
			}
		default:
			t.Fatalf("unexpected message %+v", msg)
		}
		break
	}
	if depth != 4 {
		t.Errorf("got %d info messages, want 4", depth)
	}
}

func TestWebsocketStop(t *testing.T) {
	ts := newTestServer(t)
	conn := dialSearch(t, ts)

	req := clientMessage{Type: msgSearch, searchRequest: searchRequest{FEN: kiwipeteFEN, Depth: 60}}
	if err := conn.WriteJSON(req); err != nil {
		t.Fatal(err)
	}
	if msg := readMessage(t, conn); msg.Type != msgInfo {
		t.Fatalf("first message %+v, want info", msg)
	}
	if err := conn.WriteJSON(clientMessage{Type: msgStop}); err != nil {
		t.Fatal(err)
	}
	for {
		msg := readMessage(t, conn)
		if msg.Type == msgInfo {
			continue
		}
		if msg.Type != msgResult || msg.Result.Move == "" {
			t.Errorf("got %+v, want a result after stop", msg)
		}
		break
	}
}

func TestWebsocketReportsBadPosition(t *testing.T) {
	ts := newTestServer(t)
	conn := dialSearch(t, ts)

	req := clientMessage{Type: msgSearch, searchRequest: searchRequest{FEN: "not a fen"}}
	if err := conn.WriteJSON(req); err != nil {
		t.Fatal(err)
	}
	if msg := readMessage(t, conn); msg.Type != msgError || !strings.Contains(msg.Error, "invalid FEN") {
		t.Errorf("got %+v, want an invalid FEN error", msg)
	}
}
