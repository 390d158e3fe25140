package engine

import (
	"github.com/hailam/chesscore/internal/board"
)

// Move ordering priorities
const (
	TTMoveScore     = 10000000 // TT move gets highest priority
	GoodCaptureBase = 1000000  // Base score for good captures
	PromotionScore  = 950000   // Quiet promotions
	KillerScore1    = 900000   // First killer move
	KillerScore2    = 800000   // Second killer move
	BadCaptureBase  = -100000  // Losing captures
)

// MVV-LVA (Most Valuable Victim - Least Valuable Attacker) scores
// Higher score = search first
// Score = victimValue * 10 - attackerValue
var mvvLva = [6][6]int{
	//       P    N    B    R    Q    K  (attacker)
	/* P */ {15, 14, 14, 13, 12, 11}, // Pawn victim
	/* N */ {25, 24, 24, 23, 22, 21}, // Knight victim
	/* B */ {35, 34, 34, 33, 32, 31}, // Bishop victim
	/* R */ {45, 44, 44, 43, 42, 41}, // Rook victim
	/* Q */ {55, 54, 54, 53, 52, 51}, // Queen victim
	/* K */ {0, 0, 0, 0, 0, 0},       // King can't be captured
}

// MoveOrderer holds the per-searcher ordering state. It is never shared
// between goroutines.
type MoveOrderer struct {
	// Killer moves (quiet moves that caused beta cutoffs)
	killers [MaxPly + 1][2]board.Move

	// History heuristic (indexed by [from][to])
	history [64][64]int
}

// Clear resets killers and ages history for a new search.
func (mo *MoveOrderer) Clear() {
	for i := range mo.killers {
		mo.killers[i][0] = board.NoMove
		mo.killers[i][1] = board.NoMove
	}
	for i := range mo.history {
		for j := range mo.history[i] {
			mo.history[i][j] /= 2
		}
	}
}

// ScoreMoves fills scores[i] for every move in ml.
func (mo *MoveOrderer) ScoreMoves(b *board.Board, ml *board.MoveList, scores []int, ply int, ttMove board.Move) {
	for i, m := range ml.Slice() {
		scores[i] = mo.scoreMove(b, m, ply, ttMove)
	}
}

func (mo *MoveOrderer) scoreMove(b *board.Board, m board.Move, ply int, ttMove board.Move) int {
	if m == ttMove {
		return TTMoveScore
	}
	if b.IsCapture(m) {
		score := captureScore(b, m)
		if SEE(b, m) < 0 {
			return BadCaptureBase + score
		}
		return GoodCaptureBase + score
	}
	if m.IsPromotion() {
		return PromotionScore + pieceValues[m.Promotion()]
	}
	if m == mo.killers[ply][0] {
		return KillerScore1
	}
	if m == mo.killers[ply][1] {
		return KillerScore2
	}
	return mo.history[m.From()][m.To()]
}

// captureScore is the MVV-LVA value of a capture, plus the promotion gain.
func captureScore(b *board.Board, m board.Move) int {
	attacker := b.PieceAt(m.From()).Type()
	victim := board.Pawn
	if !m.IsEnPassant() {
		victim = b.PieceAt(m.To()).Type()
	}
	score := mvvLva[victim][attacker]
	if m.IsPromotion() {
		score += pieceValues[m.Promotion()] / 10
	}
	return score
}

// ScoreCaptures fills scores with plain MVV-LVA values; quiescence orders
// its tactical moves this way.
func ScoreCaptures(b *board.Board, ml *board.MoveList, scores []int) {
	for i, m := range ml.Slice() {
		if b.IsCapture(m) {
			scores[i] = captureScore(b, m)
		} else {
			scores[i] = pieceValues[m.Promotion()] / 100
		}
	}
}

// SortMoves orders the whole list by descending score.
func SortMoves(moves *board.MoveList, scores []int) {
	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
	}
}

// PickMove selects the best remaining move and moves it to position index.
// Used for lazy sorting - only sort as many moves as needed.
func PickMove(moves *board.MoveList, scores []int, index int) {
	best := index
	for j := index + 1; j < moves.Len(); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != index {
		moves.Swap(index, best)
		scores[index], scores[best] = scores[best], scores[index]
	}
}

// UpdateKillers records a quiet move that caused a beta cutoff at ply.
func (mo *MoveOrderer) UpdateKillers(m board.Move, ply int) {
	if mo.killers[ply][0] != m {
		mo.killers[ply][1] = mo.killers[ply][0]
		mo.killers[ply][0] = m
	}
}

// UpdateHistory rewards a quiet cutoff move.
func (mo *MoveOrderer) UpdateHistory(m board.Move, depth int) {
	mo.history[m.From()][m.To()] += depth * depth
	if mo.history[m.From()][m.To()] > KillerScore2/2 {
		for i := range mo.history {
			for j := range mo.history[i] {
				mo.history[i][j] /= 2
			}
		}
	}
}
