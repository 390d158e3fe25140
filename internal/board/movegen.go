package board

// GeneratePseudoLegalMoves fills ml with every move for the side to move that
// obeys piece movement rules, without checking whether the mover's king is
// left in check. Callers filter with MakeMove + IsCheck.
func (b *Board) GeneratePseudoLegalMoves(ml *MoveList) {
	ml.Clear()
	us := b.SideToMove
	targets := ^b.Occupied[us] &^ b.Pieces[us.Other()][King]

	b.generatePawnMoves(ml, us, false)
	b.generatePieceMoves(ml, us, targets)
	b.generateCastlingMoves(ml, us)
}

// GenerateCaptures fills ml with captures, en-passant captures and all
// promotions. Quiescence search uses it.
func (b *Board) GenerateCaptures(ml *MoveList) {
	ml.Clear()
	us := b.SideToMove
	b.generatePawnMoves(ml, us, true)
	b.generatePieceMoves(ml, us, b.Occupied[us.Other()]&^b.Pieces[us.Other()][King])
}

// GenerateLegalMoves fills ml with the pseudo-legal moves that do not leave
// the mover in check.
func (b *Board) GenerateLegalMoves(ml *MoveList) {
	var pseudo MoveList
	b.GeneratePseudoLegalMoves(&pseudo)
	ml.Clear()
	us := b.SideToMove
	var undo UndoInfo
	for _, m := range pseudo.Slice() {
		b.MakeMove(m, &undo)
		if !b.IsCheck(us) {
			ml.Add(m)
		}
		b.UnmakeMove(m, &undo)
	}
}

// HasLegalMove reports whether the side to move has at least one legal move.
func (b *Board) HasLegalMove() bool {
	var ml MoveList
	b.GeneratePseudoLegalMoves(&ml)
	us := b.SideToMove
	var undo UndoInfo
	for _, m := range ml.Slice() {
		b.MakeMove(m, &undo)
		legal := !b.IsCheck(us)
		b.UnmakeMove(m, &undo)
		if legal {
			return true
		}
	}
	return false
}

// IsCheckmate reports whether the side to move is mated.
func (b *Board) IsCheckmate() bool {
	return b.InCheck() && !b.HasLegalMove()
}

// IsStalemate reports whether the side to move has no legal move and is not in check.
func (b *Board) IsStalemate() bool {
	return !b.InCheck() && !b.HasLegalMove()
}

// addTargets emits one move from from to every square in targets.
func addTargets(ml *MoveList, from Square, targets Bitboard) {
	for targets != 0 {
		ml.Add(NewMove(from, targets.PopLSB()))
	}
}

// generatePieceMoves handles knights, sliders and the king (no castling).
func (b *Board) generatePieceMoves(ml *MoveList, us Color, targets Bitboard) {
	occ := b.AllOccupied

	for bb := b.Pieces[us][Knight]; bb != 0; {
		from := bb.PopLSB()
		addTargets(ml, from, knightAttacks[from]&targets)
	}
	for bb := b.Pieces[us][Bishop]; bb != 0; {
		from := bb.PopLSB()
		addTargets(ml, from, BishopAttacks(from, occ)&targets)
	}
	for bb := b.Pieces[us][Rook]; bb != 0; {
		from := bb.PopLSB()
		addTargets(ml, from, RookAttacks(from, occ)&targets)
	}
	for bb := b.Pieces[us][Queen]; bb != 0; {
		from := bb.PopLSB()
		addTargets(ml, from, QueenAttacks(from, occ)&targets)
	}
	if from := b.KingSquare[us]; from != NoSquare {
		addTargets(ml, from, kingAttacks[from]&targets)
	}
}

// generatePawnMoves emits pushes, captures, promotions and en passant.
// With tactical set, quiet non-promoting pushes are skipped.
func (b *Board) generatePawnMoves(ml *MoveList, us Color, tactical bool) {
	pawns := b.Pieces[us][Pawn]
	if pawns == 0 {
		return
	}
	empty := ^b.AllOccupied
	enemies := b.Occupied[us.Other()] &^ b.Pieces[us.Other()][King]

	var push1, push2, attackW, attackE, promoRank Bitboard
	var dir Square
	if us == White {
		push1 = pawns.North() & empty
		push2 = (push1 & Rank3).North() & empty
		attackW = pawns.NorthWest() & enemies
		attackE = pawns.NorthEast() & enemies
		promoRank = Rank8
		dir = 8
	} else {
		push1 = pawns.South() & empty
		push2 = (push1 & Rank6).South() & empty
		attackW = pawns.SouthWest() & enemies
		attackE = pawns.SouthEast() & enemies
		promoRank = Rank1
		dir = -8
	}

	if !tactical {
		for bb := push1 &^ promoRank; bb != 0; {
			to := bb.PopLSB()
			ml.Add(NewMove(to-dir, to))
		}
		for bb := push2; bb != 0; {
			to := bb.PopLSB()
			ml.Add(NewMove(to-2*dir, to))
		}
	}
	for bb := push1 & promoRank; bb != 0; {
		to := bb.PopLSB()
		addPromotions(ml, to-dir, to)
	}

	// West captures come from the file to the east, and vice versa.
	for bb := attackW; bb != 0; {
		to := bb.PopLSB()
		from := to - dir + 1
		if promoRank.IsSet(to) {
			addPromotions(ml, from, to)
		} else {
			ml.Add(NewMove(from, to))
		}
	}
	for bb := attackE; bb != 0; {
		to := bb.PopLSB()
		from := to - dir - 1
		if promoRank.IsSet(to) {
			addPromotions(ml, from, to)
		} else {
			ml.Add(NewMove(from, to))
		}
	}

	if ep := b.EnPassant; ep != NoSquare && b.Pieces[us.Other()][Pawn].IsSet(ep-dir) {
		// A pawn of ours can take on ep iff an enemy pawn standing on ep would attack it.
		for bb := pawnAttacks[us.Other()][ep] & pawns; bb != 0; {
			ml.Add(NewEnPassant(bb.PopLSB(), ep))
		}
	}
}

// addPromotions adds all four promotion moves, strongest first.
func addPromotions(ml *MoveList, from, to Square) {
	ml.Add(NewPromotion(from, to, Queen))
	ml.Add(NewPromotion(from, to, Rook))
	ml.Add(NewPromotion(from, to, Bishop))
	ml.Add(NewPromotion(from, to, Knight))
}

type castleRule struct {
	right  CastlingRights
	king   Square
	kingTo Square
	rook   Square
	empty  Bitboard // squares between king and rook
	safe   [3]Square
}

var castleRules = [2][2]castleRule{
	White: {
		{WhiteKingSideCastle, E1, G1, H1, SquareBB(F1) | SquareBB(G1), [3]Square{E1, F1, G1}},
		{WhiteQueenSideCastle, E1, C1, A1, SquareBB(B1) | SquareBB(C1) | SquareBB(D1), [3]Square{E1, D1, C1}},
	},
	Black: {
		{BlackKingSideCastle, E8, G8, H8, SquareBB(F8) | SquareBB(G8), [3]Square{E8, F8, G8}},
		{BlackQueenSideCastle, E8, C8, A8, SquareBB(B8) | SquareBB(C8) | SquareBB(D8), [3]Square{E8, D8, C8}},
	},
}

// generateCastlingMoves emits castles whose right is held, whose path is
// empty and whose king squares are not attacked.
func (b *Board) generateCastlingMoves(ml *MoveList, us Color) {
	them := us.Other()
	rook := NewPiece(Rook, us)
	for _, r := range castleRules[us] {
		if b.CastlingRights&r.right == 0 || b.AllOccupied&r.empty != 0 {
			continue
		}
		// Rights are positional; the pieces must still be where castling expects them.
		if b.KingSquare[us] != r.king || b.squares[r.rook] != rook {
			continue
		}
		if b.IsSquareAttackedBy(r.safe[0], them) ||
			b.IsSquareAttackedBy(r.safe[1], them) ||
			b.IsSquareAttackedBy(r.safe[2], them) {
			continue
		}
		ml.Add(NewCastle(r.king, r.kingTo))
	}
}
