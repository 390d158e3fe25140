package engine

import (
	"runtime"
	"sync/atomic"

	"github.com/hailam/chesscore/internal/board"
)

// splitPoint shares the remaining moves of one node between the searcher
// that owns it and any pool workers that join. All mutable state is atomic;
// participants claim moves by index and publish results with CAS.
type splitPoint struct {
	parent board.Board
	beta   int
	depth  int
	ply    int
	moves  []board.Move

	next   atomic.Int32  // next unclaimed index into moves
	alpha  atomic.Int32  // shared lower bound, only rises
	best   atomic.Uint64 // packed score and move, only rises
	abort  atomic.Bool   // a participant failed high
	active atomic.Int32  // helper tasks not yet finished
	legal  atomic.Int32
}

func newSplitPoint(parent *board.Board, alpha, beta, depth, ply int, moves []board.Move) *splitPoint {
	sp := &splitPoint{
		parent: *parent,
		beta:   beta,
		depth:  depth,
		ply:    ply,
		moves:  append([]board.Move(nil), moves...),
	}
	sp.alpha.Store(int32(alpha))
	sp.best.Store(packBest(-Infinity, board.NoMove))
	return sp
}

// packBest orders by score first so a plain integer compare on the score
// half decides which result wins.
func packBest(score int, m board.Move) uint64 {
	return uint64(uint32(int32(score)))<<16 | uint64(m)
}

func unpackBest(v uint64) (int, board.Move) {
	return int(int32(uint32(v >> 16))), board.Move(v)
}

func (sp *splitPoint) result() (int, board.Move) {
	return unpackBest(sp.best.Load())
}

func (sp *splitPoint) legalCount() int {
	return int(sp.legal.Load())
}

func (sp *splitPoint) offerBest(score int, m board.Move) {
	for {
		old := sp.best.Load()
		if cur, _ := unpackBest(old); score <= cur {
			return
		}
		if sp.best.CompareAndSwap(old, packBest(score, m)) {
			return
		}
	}
}

func (sp *splitPoint) raiseAlpha(score int) {
	for {
		a := sp.alpha.Load()
		if int32(score) <= a || sp.alpha.CompareAndSwap(a, int32(score)) {
			return
		}
	}
}

// search claims and searches moves until none are left, the node fails
// high, or the search is stopped. The searcher's board is overwritten with
// each child position.
func (sp *splitPoint) search(s *searcher) {
	us := sp.parent.SideToMove
	for !sp.abort.Load() && !s.stopped() {
		i := int(sp.next.Add(1)) - 1
		if i >= len(sp.moves) {
			return
		}
		m := sp.moves[i]
		s.b = sp.parent.ExecuteMove(m)
		if s.b.IsCheck(us) {
			continue
		}
		sp.legal.Add(1)

		alpha := int(sp.alpha.Load())
		score := -s.pvs(-alpha-1, -alpha, sp.depth-1, sp.ply+1)
		if score > alpha && score < sp.beta {
			score = -s.pvs(-sp.beta, -alpha, sp.depth-1, sp.ply+1)
		}
		if s.stopped() {
			return
		}

		sp.offerBest(score, m)
		if score > alpha {
			sp.raiseAlpha(score)
		}
		if score >= sp.beta {
			sp.abort.Store(true)
			return
		}
	}
}

// canSplit reports whether a node with the given remaining depth and
// unsearched move count is worth sharing.
func (e *Engine) canSplit(depth, remaining int) bool {
	return e.pool.Size() > 1 &&
		depth >= e.cfg.SplitMinDepth &&
		remaining > e.cfg.SplitMinMoves
}

// split offers sp to the pool, works on it with s, and returns once every
// helper task has finished. While waiting the owner runs queued tasks
// itself, so a worker blocked here never starves the pool. On return s.b
// holds the split node's position again.
func (e *Engine) split(sp *splitPoint, s *searcher) {
	helpers := min(e.pool.Size()-1, len(sp.moves)-1)
	for i := 0; i < helpers; i++ {
		sp.active.Add(1)
		err := e.pool.Submit(func() {
			defer sp.active.Add(-1)
			h := e.acquireSearcher()
			defer e.releaseSearcher(h)
			sp.search(h)
		})
		if err != nil {
			sp.active.Add(-1)
			break
		}
	}
	e.splits.Add(1)

	defer e.join(sp, s)
	sp.search(s)
}

// join waits for every helper of sp. It runs deferred so that helpers never
// outlive a panicking owner; in that case they are aborted first and the
// panic continues once they are gone.
func (e *Engine) join(sp *splitPoint, s *searcher) {
	r := recover()
	if r != nil {
		sp.abort.Store(true)
	}
	s.b = sp.parent
	for sp.active.Load() > 0 {
		if !e.pool.HelpOneRound() {
			runtime.Gosched()
		}
	}
	if r != nil {
		panic(r)
	}
}
