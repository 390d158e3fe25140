package engine

import (
	"github.com/hailam/chesscore/internal/board"
)

// Evaluation constants
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
	KingValue   = 20000
)

// Piece values array for quick lookup
var pieceValues = [7]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, KingValue, 0}

// Piece-Square Tables (PST) for positional evaluation.
// Tables are laid out as the board is printed, rank 8 first, from White's
// point of view: White reads index sq^56 and Black reads sq.

// Pawn PST - encourages central control and advancement
var pawnPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

// Knight PST - encourages central positioning
var knightPST = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

// Bishop PST - encourages central diagonals
var bishopPST = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

// Rook PST - encourages 7th rank and open files
var rookPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, 10, 10, 10, 10, 5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	0, 0, 0, 5, 5, 0, 0, 0,
}

// Queen PST - slight central preference
var queenPST = [64]int{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-5, 0, 5, 5, 5, 5, 0, -5,
	0, 0, 5, 5, 5, 5, 0, -5,
	-10, 5, 5, 5, 5, 5, 0, -10,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

// King PST (middlegame) - encourages castling
var kingMidgamePST = [64]int{
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	20, 20, 0, 0, 0, 0, 20, 20,
	20, 30, 10, 0, 0, 10, 30, 20,
}

// All PSTs combined for easy lookup
var psts = [6][64]int{
	pawnPST, knightPST, bishopPST, rookPST, queenPST, kingMidgamePST,
}

// Evaluate returns material plus piece-square score from the side to move's
// perspective.
func Evaluate(b *board.Board) int {
	score := 0
	for pt := board.Pawn; pt <= board.King; pt++ {
		for bb := b.Pieces[board.White][pt]; bb != 0; {
			sq := bb.PopLSB()
			score += pieceValues[pt] + psts[pt][sq^56]
		}
		for bb := b.Pieces[board.Black][pt]; bb != 0; {
			sq := bb.PopLSB()
			score -= pieceValues[pt] + psts[pt][sq]
		}
	}
	if b.SideToMove == board.Black {
		return -score
	}
	return score
}

// EvaluateMaterial returns just the material balance (for quick evaluation).
func EvaluateMaterial(b *board.Board) int {
	score := 0
	for pt := board.Pawn; pt < board.King; pt++ {
		score += b.Pieces[board.White][pt].PopCount() * pieceValues[pt]
		score -= b.Pieces[board.Black][pt].PopCount() * pieceValues[pt]
	}
	if b.SideToMove == board.Black {
		return -score
	}
	return score
}

// SEE (Static Exchange Evaluation) estimates the material outcome of the
// capture sequence m starts on its target square, for the moving side.
func SEE(b *board.Board, m board.Move) int {
	from, to := m.From(), m.To()

	attacker := b.PieceAt(from)
	if attacker == board.NoPiece {
		return 0
	}

	var capturedValue int
	if m.IsEnPassant() {
		capturedValue = PawnValue
	} else {
		victim := b.PieceAt(to)
		if victim == board.NoPiece && !m.IsPromotion() {
			return 0 // Not a capture
		}
		if victim != board.NoPiece {
			capturedValue = pieceValues[victim.Type()]
		}
	}
	if m.IsPromotion() {
		capturedValue += pieceValues[m.Promotion()] - PawnValue
	}

	return seeSwap(b, to, from, attacker, capturedValue)
}

// seeSwap simulates alternating least-valuable captures on target and
// negamaxes the gain list.
func seeSwap(b *board.Board, target, excludeFrom board.Square, firstAttacker board.Piece, initialGain int) int {
	var gain [32]int
	d := 0
	gain[d] = initialGain

	occupied := b.AllOccupied &^ board.SquareBB(excludeFrom)
	attackerValue := pieceValues[firstAttacker.Type()]
	side := firstAttacker.Color().Other()

	for d < len(gain)-1 {
		d++
		gain[d] = attackerValue - gain[d-1]
		if max(-gain[d-1], gain[d]) < 0 {
			break
		}

		// x-rays are picked up because occupied shrinks
		attackerSq, attackerPiece := leastValuableAttacker(b, target, side, occupied)
		if attackerSq == board.NoSquare {
			break
		}
		occupied &^= board.SquareBB(attackerSq)
		attackerValue = pieceValues[attackerPiece.Type()]
		side = side.Other()
	}

	for d--; d > 0; d-- {
		gain[d-1] = -max(-gain[d-1], gain[d])
	}
	return gain[0]
}

// leastValuableAttacker finds the cheapest piece of side attacking target
// through occupied, or NoSquare.
func leastValuableAttacker(b *board.Board, target board.Square, side board.Color, occupied board.Bitboard) (board.Square, board.Piece) {
	attackers := b.AttackersByColor(target, side, occupied) & occupied
	for pt := board.Pawn; pt <= board.King; pt++ {
		if bb := attackers & b.Pieces[side][pt]; bb != 0 {
			return bb.LSB(), board.NewPiece(pt, side)
		}
	}
	return board.NoSquare, board.NoPiece
}
