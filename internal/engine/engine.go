package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/pool"
)

// SearchInfo contains information about the current search.
type SearchInfo struct {
	ID       string
	Depth    int
	Score    int
	Nodes    uint64
	NPS      uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int // Permille of hash table used
}

// SearchLimits specifies constraints on the search.
type SearchLimits struct {
	Depth    int           // Maximum depth (0 = Config.MaxDepth)
	MoveTime time.Duration // Time for this move (0 = no limit)

	// OnInfo, if set, is called after Config.OnInfo for this search only.
	OnInfo func(SearchInfo)
}

// Result is the outcome of a search: the best move of the deepest
// completed iteration.
type Result struct {
	ID      string
	Move    board.Move
	Score   int
	Depth   int
	Nodes   uint64
	PV      []board.Move
	Elapsed time.Duration
}

// Engine searches positions with a shared transposition table and a
// work-stealing pool for split points. One search runs at a time.
type Engine struct {
	cfg  Config
	log  zerolog.Logger
	tt   *TranspositionTable
	pool *pool.Pool

	stacks sync.Pool
	stop   atomic.Bool
	nodes  atomic.Uint64
	splits atomic.Uint64

	// ttCutoffs lets table hits end a node early. Tests switch it off to
	// make fixed-depth scores independent of search order.
	ttCutoffs bool

	mu sync.Mutex // held for the duration of a search
}

// New creates an engine. Zero Config fields take their DefaultConfig value.
func New(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger.With().Str("component", "engine").Logger()
	e := &Engine{
		cfg:       cfg,
		log:       log,
		tt:        NewTranspositionTable(cfg.HashMB),
		pool:      pool.New(cfg.Threads, log),
		ttCutoffs: true,
	}
	e.stacks.New = func() any { return new(searchStack) }
	log.Debug().
		Int("threads", cfg.Threads).
		Int("hash_mb", cfg.HashMB).
		Int("max_depth", cfg.MaxDepth).
		Msg("engine ready")
	return e, nil
}

func (e *Engine) acquireSearcher() *searcher {
	return &searcher{e: e, st: e.stacks.Get().(*searchStack)}
}

// releaseSearcher returns the stack and folds the searcher's node count
// into the engine total.
func (e *Engine) releaseSearcher(s *searcher) {
	e.nodes.Add(s.nodes)
	s.nodes = 0
	e.stacks.Put(s.st)
	s.st = nil
}

// Search runs iterative deepening up to Config.MaxDepth.
func (e *Engine) Search(ctx context.Context, b *board.Board) (Result, error) {
	return e.SearchWithLimits(ctx, b, SearchLimits{})
}

// SearchWithLimits finds the best move for b. It returns the result of the
// deepest completed iteration. If ctx ends before depth 1 completes, the
// first legal move is returned together with ctx.Err(). A position with no
// legal moves yields NoMove scored as mate or draw. A board that fails
// Validate is not searched; the error wraps board.ErrInvalidPosition.
// b is not modified.
func (e *Engine) SearchWithLimits(ctx context.Context, b *board.Board, limits SearchLimits) (Result, error) {
	if err := b.Validate(); err != nil {
		return Result{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	maxDepth := e.cfg.MaxDepth
	if limits.Depth > 0 {
		maxDepth = min(limits.Depth, MaxPly-1)
	}
	if limits.MoveTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limits.MoveTime)
		defer cancel()
	}

	res := Result{ID: uuid.NewString()}
	log := e.log.With().Str("search_id", res.ID).Logger()
	start := time.Now()

	e.stop.Store(false)
	e.nodes.Store(0)
	e.splits.Store(0)
	e.tt.NewSearch()
	stopOnDone := context.AfterFunc(ctx, func() { e.stop.Store(true) })
	defer stopOnDone()
	if ctx.Err() != nil {
		e.stop.Store(true)
	}

	var legal board.MoveList
	b.GenerateLegalMoves(&legal)
	if legal.Len() == 0 {
		if b.InCheck() {
			res.Score = -MateScore
		}
		log.Debug().Int("score", res.Score).Msg("no legal moves at root")
		return res, nil
	}

	s := e.acquireSearcher()
	defer e.releaseSearcher(s)
	s.b = *b
	s.st.orderer.Clear()

	rootMoves := append([]board.Move(nil), legal.Slice()...)
	entry, _ := e.tt.Probe(b.Hash, 0)
	scores := s.st.scores[0][:legal.Len()]
	s.st.orderer.ScoreMoves(b, &legal, scores, 0, entry.Move)
	SortMoves(&legal, scores)
	copy(rootMoves, legal.Slice())

	completed := false
	for depth := 1; depth <= maxDepth; depth++ {
		alpha, beta := -Infinity, Infinity
		if depth >= 5 && completed && e.cfg.AspirationWindow > 0 {
			alpha = res.Score - e.cfg.AspirationWindow
			beta = res.Score + e.cfg.AspirationWindow
		}

		var score int
		var move board.Move
		for {
			score, move = s.searchRoot(rootMoves, alpha, beta, depth)
			if e.stop.Load() {
				break
			}
			if score <= alpha && alpha > -Infinity {
				log.Debug().Int("depth", depth).Int("score", score).Msg("aspiration fail low")
				alpha = -Infinity
				continue
			}
			if score >= beta && beta < Infinity {
				log.Debug().Int("depth", depth).Int("score", score).Msg("aspiration fail high")
				beta = Infinity
				continue
			}
			break
		}
		if e.stop.Load() {
			break
		}

		moveToFront(rootMoves, move)
		e.nodes.Add(s.nodes)
		s.nodes = 0
		completed = true

		res.Move, res.Score, res.Depth = move, score, depth
		res.Nodes = e.nodes.Load()
		res.Elapsed = time.Since(start)
		res.PV = e.principalVariation(b, move, depth)

		info := SearchInfo{
			ID:       res.ID,
			Depth:    depth,
			Score:    score,
			Nodes:    res.Nodes,
			NPS:      nps(res.Nodes, res.Elapsed),
			Time:     res.Elapsed,
			PV:       res.PV,
			HashFull: e.tt.HashFull(),
		}
		log.Info().
			Int("depth", depth).
			Str("score", ScoreToString(score)).
			Uint64("nodes", info.Nodes).
			Uint64("nps", info.NPS).
			Uint64("splits", e.splits.Load()).
			Int("hashfull", info.HashFull).
			Str("pv", strings.Join(b.SANLine(res.PV), " ")).
			Msg("iteration complete")
		if e.cfg.OnInfo != nil {
			e.cfg.OnInfo(info)
		}
		if limits.OnInfo != nil {
			limits.OnInfo(info)
		}

		// Early termination: found mate
		if score > MateScore-MaxPly || score < -MateScore+MaxPly {
			break
		}
	}

	e.nodes.Add(s.nodes)
	s.nodes = 0
	res.Nodes = e.nodes.Load()
	res.Elapsed = time.Since(start)

	if !completed {
		res.Move = rootMoves[0]
		return res, ctx.Err()
	}
	return res, nil
}

// moveToFront moves m to index 0, keeping the order of the others.
func moveToFront(moves []board.Move, m board.Move) {
	for i, x := range moves {
		if x == m {
			copy(moves[1:i+1], moves[:i])
			moves[0] = m
			return
		}
	}
}

// principalVariation follows table moves from the position after first.
// Each move is checked for legality and the walk stops on a repeated
// position.
func (e *Engine) principalVariation(b *board.Board, first board.Move, maxLen int) []board.Move {
	pv := []board.Move{first}
	cur := b.ExecuteMove(first)
	seen := map[uint64]bool{b.Hash: true, cur.Hash: true}

	var legal board.MoveList
	for len(pv) < maxLen {
		entry, _ := e.tt.Probe(cur.Hash, 0)
		if entry.Bound == BoundNone || entry.Move == board.NoMove {
			break
		}
		cur.GenerateLegalMoves(&legal)
		if !legal.Contains(entry.Move) {
			break
		}
		pv = append(pv, entry.Move)
		cur = cur.ExecuteMove(entry.Move)
		if seen[cur.Hash] {
			break
		}
		seen[cur.Hash] = true
	}
	return pv
}

func nps(nodes uint64, elapsed time.Duration) uint64 {
	if elapsed <= 0 {
		return 0
	}
	return uint64(float64(nodes) / elapsed.Seconds())
}

// Stop asks the running search to return. It is safe to call at any time.
func (e *Engine) Stop() {
	e.stop.Store(true)
}

// Clear empties the transposition table. It waits for a running search.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tt.Clear()
}

// Close stops any running search and shuts the worker pool down.
func (e *Engine) Close() {
	e.Stop()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pool.Close()
}

// Nodes returns the node count of the current or last search.
func (e *Engine) Nodes() uint64 {
	return e.nodes.Load()
}

// HashFull returns the permille of the table used by the current generation.
func (e *Engine) HashFull() int {
	return e.tt.HashFull()
}

// Threads returns the size of the worker pool.
func (e *Engine) Threads() int {
	return e.pool.Size()
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	if score > MateScore-MaxPly {
		return fmt.Sprintf("Mate in %d", (MateScore-score+1)/2)
	}
	if score < -MateScore+MaxPly {
		return fmt.Sprintf("Mated in %d", (MateScore+score+1)/2)
	}

	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	return fmt.Sprintf("%s%d.%02d", sign, score/100, score%100)
}
