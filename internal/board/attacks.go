package board

// Leaper attack tables, built once at package init and read-only afterwards.
var (
	knightAttacks [64]Bitboard
	kingAttacks   [64]Bitboard
	pawnAttacks   [2][64]Bitboard // [Color][Square]
)

func init() {
	for sq := A1; sq <= H8; sq++ {
		bb := SquareBB(sq)

		knightAttacks[sq] = (bb<<17)&NotFileA | (bb<<15)&NotFileH |
			(bb>>17)&NotFileH | (bb>>15)&NotFileA |
			(bb<<10)&NotFileAB | (bb<<6)&NotFileGH |
			(bb>>10)&NotFileGH | (bb>>6)&NotFileAB

		kingAttacks[sq] = bb.North() | bb.South() | bb.East() | bb.West() |
			bb.NorthEast() | bb.NorthWest() | bb.SouthEast() | bb.SouthWest()

		pawnAttacks[White][sq] = bb.NorthEast() | bb.NorthWest()
		pawnAttacks[Black][sq] = bb.SouthEast() | bb.SouthWest()
	}
	initSliderTables()
}

// KnightAttacks returns the knight attack bitboard for a square.
func KnightAttacks(sq Square) Bitboard {
	return knightAttacks[sq]
}

// KingAttacks returns the king attack bitboard for a square.
func KingAttacks(sq Square) Bitboard {
	return kingAttacks[sq]
}

// PawnAttacks returns the squares a pawn of color c on sq attacks.
func PawnAttacks(sq Square, c Color) Bitboard {
	return pawnAttacks[c][sq]
}

// PawnAttacksBB returns every square attacked by the pawns in pawns.
func PawnAttacksBB(pawns Bitboard, c Color) Bitboard {
	if c == White {
		return pawns.NorthEast() | pawns.NorthWest()
	}
	return pawns.SouthEast() | pawns.SouthWest()
}

// AttackersByColor returns the pieces of color c attacking sq through occupied.
func (b *Board) AttackersByColor(sq Square, c Color, occupied Bitboard) Bitboard {
	queens := b.Pieces[c][Queen]
	return pawnAttacks[c.Other()][sq]&b.Pieces[c][Pawn] |
		knightAttacks[sq]&b.Pieces[c][Knight] |
		kingAttacks[sq]&b.Pieces[c][King] |
		BishopAttacks(sq, occupied)&(b.Pieces[c][Bishop]|queens) |
		RookAttacks(sq, occupied)&(b.Pieces[c][Rook]|queens)
}

// IsSquareAttackedBy reports whether any piece of color c attacks sq.
func (b *Board) IsSquareAttackedBy(sq Square, c Color) bool {
	occ := b.AllOccupied
	if pawnAttacks[c.Other()][sq]&b.Pieces[c][Pawn] != 0 ||
		knightAttacks[sq]&b.Pieces[c][Knight] != 0 ||
		kingAttacks[sq]&b.Pieces[c][King] != 0 {
		return true
	}
	queens := b.Pieces[c][Queen]
	if BishopAttacks(sq, occ)&(b.Pieces[c][Bishop]|queens) != 0 {
		return true
	}
	return RookAttacks(sq, occ)&(b.Pieces[c][Rook]|queens) != 0
}

// FieldsAttackedByColor returns the union of all squares attacked by color c,
// including squares holding c's own pieces.
func (b *Board) FieldsAttackedByColor(c Color) Bitboard {
	occ := b.AllOccupied
	attacked := PawnAttacksBB(b.Pieces[c][Pawn], c)
	for bb := b.Pieces[c][Knight]; bb != 0; {
		attacked |= knightAttacks[bb.PopLSB()]
	}
	for bb := b.Pieces[c][Bishop] | b.Pieces[c][Queen]; bb != 0; {
		attacked |= BishopAttacks(bb.PopLSB(), occ)
	}
	for bb := b.Pieces[c][Rook] | b.Pieces[c][Queen]; bb != 0; {
		attacked |= RookAttacks(bb.PopLSB(), occ)
	}
	if k := b.KingSquare[c]; k != NoSquare {
		attacked |= kingAttacks[k]
	}
	return attacked
}

// IsCheck reports whether c's king is attacked.
func (b *Board) IsCheck(c Color) bool {
	k := b.KingSquare[c]
	return k != NoSquare && b.IsSquareAttackedBy(k, c.Other())
}

// InCheck reports whether the side to move is in check.
func (b *Board) InCheck() bool {
	return b.IsCheck(b.SideToMove)
}
