package engine

import (
	"github.com/hailam/chesscore/internal/board"
)

// Search constants
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
)

// searchStack is the scratch memory of one search participant, indexed by
// ply. Stacks are pooled; a goroutine owns one for the duration of a task.
type searchStack struct {
	undo    [MaxPly + 1]board.UndoInfo
	moves   [MaxPly + 1]board.MoveList
	scores  [MaxPly + 1][256]int
	orderer MoveOrderer
}

// searcher runs the sequential part of the search on a board it owns.
type searcher struct {
	e     *Engine
	b     board.Board
	st    *searchStack
	nodes uint64
}

func (s *searcher) stopped() bool {
	return s.e.stop.Load()
}

// searchRoot searches every root move with the window narrowing as alpha
// rises. Root moves are not split; parallelism starts one ply down.
func (s *searcher) searchRoot(rootMoves []board.Move, alpha, beta, depth int) (int, board.Move) {
	b := &s.b
	undo := &s.st.undo[0]
	alphaOrig := alpha
	best, bestMove := -Infinity, rootMoves[0]

	for _, m := range rootMoves {
		b.MakeMove(m, undo)
		score := -s.pvs(-beta, -alpha, depth-1, 1)
		b.UnmakeMove(m, undo)
		if s.stopped() {
			return best, bestMove
		}
		if score > best {
			best, bestMove = score, m
			if score > alpha {
				alpha = score
				if score >= beta {
					break
				}
			}
		}
	}

	s.e.tt.Store(b.Hash, depth, AdjustScoreToTT(best, 0), boundFor(best, alphaOrig, beta), bestMove)
	return best, bestMove
}

// pvs is the principal variation search at an interior node. The first
// legal move gets the full window, later ones a null window with a
// re-search when they land strictly inside (alpha, beta). Once the first
// move is done, the remaining ones may be handed to a split point.
func (s *searcher) pvs(alpha, beta, depth, ply int) int {
	if depth <= 0 {
		return s.quiescence(alpha, beta, ply)
	}
	s.nodes++
	if s.stopped() {
		return 0
	}
	b := &s.b
	if ply >= MaxPly {
		return Evaluate(b)
	}
	if b.HalfMoveClock >= 100 {
		return 0
	}

	alphaOrig := alpha
	ttMove := board.NoMove
	if entry, hit := s.e.tt.Probe(b.Hash, depth); entry.Bound != BoundNone {
		ttMove = entry.Move
		if hit && s.e.ttCutoffs {
			score := AdjustScoreFromTT(entry.Score, ply)
			switch {
			case entry.Bound == BoundExact:
				return score
			case entry.Bound == BoundLower && score >= beta:
				return score
			case entry.Bound == BoundUpper && score <= alpha:
				return score
			}
		}
	}

	ml := &s.st.moves[ply]
	b.GeneratePseudoLegalMoves(ml)
	scores := s.st.scores[ply][:ml.Len()]
	s.st.orderer.ScoreMoves(b, ml, scores, ply, ttMove)
	SortMoves(ml, scores)

	us := b.SideToMove
	undo := &s.st.undo[ply]
	moves := ml.Slice()
	best, bestMove := -Infinity, board.NoMove
	legal := 0

	for i, m := range moves {
		b.MakeMove(m, undo)
		if b.IsCheck(us) {
			b.UnmakeMove(m, undo)
			continue
		}
		legal++

		var score int
		if legal == 1 {
			score = -s.pvs(-beta, -alpha, depth-1, ply+1)
		} else {
			score = -s.pvs(-alpha-1, -alpha, depth-1, ply+1)
			if score > alpha && score < beta {
				score = -s.pvs(-beta, -alpha, depth-1, ply+1)
			}
		}
		b.UnmakeMove(m, undo)
		if s.stopped() {
			return 0
		}

		if score > best {
			best, bestMove = score, m
			if score > alpha {
				alpha = score
				if score >= beta {
					if !b.IsCapture(m) && !m.IsPromotion() {
						s.st.orderer.UpdateKillers(m, ply)
						s.st.orderer.UpdateHistory(m, depth)
					}
					break
				}
			}
		}

		// The eldest brother is done; the rest may be searched in parallel.
		if legal == 1 && s.e.canSplit(depth, len(moves)-i-1) {
			sp := newSplitPoint(b, alpha, beta, depth, ply, moves[i+1:])
			s.e.split(sp, s)
			if s.stopped() {
				return 0
			}
			legal += sp.legalCount()
			if score, m := sp.result(); score > best {
				best, bestMove = score, m
			}
			break
		}
	}

	if legal == 0 {
		if b.InCheck() {
			return -MateScore + ply
		}
		return 0
	}

	s.e.tt.Store(b.Hash, depth, AdjustScoreToTT(best, ply), boundFor(best, alphaOrig, beta), bestMove)
	return best
}

// quiescence resolves captures until the position is quiet. In check every
// evasion is searched and having none is mate.
func (s *searcher) quiescence(alpha, beta, ply int) int {
	s.nodes++
	if s.stopped() {
		return 0
	}
	b := &s.b
	if ply >= MaxPly {
		return Evaluate(b)
	}

	ml := &s.st.moves[ply]
	inCheck := b.InCheck()
	best := -Infinity
	if inCheck {
		b.GeneratePseudoLegalMoves(ml)
		s.st.orderer.ScoreMoves(b, ml, s.st.scores[ply][:ml.Len()], ply, board.NoMove)
	} else {
		standPat := Evaluate(b)
		if standPat >= beta {
			return standPat
		}
		if standPat > alpha {
			alpha = standPat
		}
		best = standPat
		b.GenerateCaptures(ml)
		ScoreCaptures(b, ml, s.st.scores[ply][:ml.Len()])
	}
	scores := s.st.scores[ply][:ml.Len()]

	us := b.SideToMove
	undo := &s.st.undo[ply]
	legal := 0
	for i := 0; i < ml.Len(); i++ {
		PickMove(ml, scores, i)
		m := ml.Get(i)
		b.MakeMove(m, undo)
		if b.IsCheck(us) {
			b.UnmakeMove(m, undo)
			continue
		}
		legal++
		score := -s.quiescence(-beta, -alpha, ply+1)
		b.UnmakeMove(m, undo)
		if s.stopped() {
			return 0
		}
		if score > best {
			best = score
			if score > alpha {
				alpha = score
				if score >= beta {
					break
				}
			}
		}
	}

	if inCheck && legal == 0 {
		return -MateScore + ply
	}
	return best
}

// boundFor classifies a node result against its original window.
func boundFor(best, alphaOrig, beta int) Bound {
	switch {
	case best >= beta:
		return BoundLower
	case best <= alphaOrig:
		return BoundUpper
	}
	return BoundExact
}
