package board

// MakeMove applies the pseudo-legal move m in place, saving what it
// overwrites into u. It does not reject moves that leave the mover in check;
// callers test IsCheck on the mover afterwards.
func (b *Board) MakeMove(m Move, u *UndoInfo) {
	us := b.SideToMove
	from, to := m.From(), m.To()
	p := b.squares[from]

	u.Hash = b.Hash
	u.CastlingRights = b.CastlingRights
	u.EnPassant = b.EnPassant
	u.HalfMoveClock = b.HalfMoveClock
	u.FullMoveNumber = b.FullMoveNumber
	u.Captured = NoPiece

	b.setEnPassant(NoSquare)
	b.HalfMoveClock++

	switch m.Kind() {
	case KindNormal:
		b.captureOn(to, u)
		b.MovePiece(from, to)
		b.clearCastleByMove(p, from)
		if p.Type() == Pawn {
			b.HalfMoveClock = 0
			if to-from == 16 || from-to == 16 {
				b.setEnPassant((from + to) / 2)
			}
		}

	case KindPromotion:
		b.captureOn(to, u)
		b.RemovePiece(from)
		b.SetPiece(NewPiece(m.Promotion(), us), to)
		b.HalfMoveClock = 0

	case KindCastle:
		rookFrom, rookTo := castleRookSquares(to)
		b.MovePiece(from, to)
		b.MovePiece(rookFrom, rookTo)
		b.clearCastleByMove(p, from)

	case KindEnPassant:
		capSq := enPassantVictim(to, us)
		u.Captured = b.RemovePiece(capSq)
		b.MovePiece(from, to)
		b.HalfMoveClock = 0
	}

	if us == Black {
		b.FullMoveNumber++
	}
	b.SideToMove = us.Other()
	b.Hash ^= b.keys.SideToMove()
}

// UnmakeMove reverts m, which must be the last move made with u.
func (b *Board) UnmakeMove(m Move, u *UndoInfo) {
	us := b.SideToMove.Other()
	from, to := m.From(), m.To()

	switch m.Kind() {
	case KindNormal:
		b.MovePiece(to, from)
		if u.Captured != NoPiece {
			b.SetPiece(u.Captured, to)
		}

	case KindPromotion:
		b.RemovePiece(to)
		b.SetPiece(NewPiece(Pawn, us), from)
		if u.Captured != NoPiece {
			b.SetPiece(u.Captured, to)
		}

	case KindCastle:
		rookFrom, rookTo := castleRookSquares(to)
		b.MovePiece(rookTo, rookFrom)
		b.MovePiece(to, from)

	case KindEnPassant:
		b.MovePiece(to, from)
		if u.Captured != NoPiece {
			b.SetPiece(u.Captured, enPassantVictim(to, us))
		}
	}

	b.SideToMove = us
	b.CastlingRights = u.CastlingRights
	b.EnPassant = u.EnPassant
	b.HalfMoveClock = u.HalfMoveClock
	b.FullMoveNumber = u.FullMoveNumber
	b.Hash = u.Hash
}

// ExecuteMove is the copy-make variant: it returns the board after m and
// leaves b untouched. The result is identical to MakeMove on a copy.
func (b *Board) ExecuteMove(m Move) Board {
	child := *b
	var u UndoInfo
	child.MakeMove(m, &u)
	return child
}

// captureOn removes an enemy piece standing on sq, if any. Kings are
// never removed; the generator does not target them.
func (b *Board) captureOn(sq Square, u *UndoInfo) {
	if b.squares[sq] == NoPiece || b.squares[sq].Type() == King {
		return
	}
	u.Captured = b.RemovePiece(sq)
	b.clearCastleByCapture(sq)
	b.HalfMoveClock = 0
}

// castleRookSquares returns the rook's squares for a castle landing the king on kingTo.
func castleRookSquares(kingTo Square) (from, to Square) {
	if kingTo.File() == 6 {
		return kingTo + 1, kingTo - 1
	}
	return kingTo - 2, kingTo + 1
}

// enPassantVictim is the square of the pawn removed by an en-passant capture onto to.
func enPassantVictim(to Square, us Color) Square {
	if us == White {
		return to - 8
	}
	return to + 8
}
