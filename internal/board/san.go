package board

import "strings"

// SAN renders the legal move m in Standard Algebraic Notation.
func (b *Board) SAN(m Move) string {
	if m == NoMove {
		return "-"
	}
	from, to := m.From(), m.To()
	piece := b.PieceAt(from)
	if piece == NoPiece {
		return m.String()
	}

	var sb strings.Builder
	switch {
	case m.IsCastle() && to > from:
		sb.WriteString("O-O")
	case m.IsCastle():
		sb.WriteString("O-O-O")
	default:
		pt := piece.Type()
		if pt != Pawn {
			sb.WriteByte("PNBRQK"[pt])
			sb.WriteString(b.disambiguation(m, pt))
		}
		if b.IsCapture(m) {
			if pt == Pawn {
				sb.WriteByte('a' + byte(from.File()))
			}
			sb.WriteByte('x')
		}
		sb.WriteString(to.String())
		if m.IsPromotion() {
			sb.WriteByte('=')
			sb.WriteByte("PNBRQK"[m.Promotion()])
		}
	}

	child := b.ExecuteMove(m)
	if child.InCheck() {
		if child.HasLegalMove() {
			sb.WriteByte('+')
		} else {
			sb.WriteByte('#')
		}
	}
	return sb.String()
}

// IsCapture reports whether m takes a piece, en passant included.
func (b *Board) IsCapture(m Move) bool {
	return m.IsEnPassant() || (!m.IsCastle() && b.squares[m.To()] != NoPiece)
}

// disambiguation returns the origin file, rank or square needed when another
// piece of type pt can also reach m's destination.
func (b *Board) disambiguation(m Move, pt PieceType) string {
	from, to := m.From(), m.To()
	pieces := b.Pieces[b.SideToMove][pt]

	var legal MoveList
	b.GenerateLegalMoves(&legal)

	ambiguous, sameFile, sameRank := false, false, false
	for _, other := range legal.Slice() {
		of := other.From()
		if other.To() != to || of == from || !pieces.IsSet(of) {
			continue
		}
		ambiguous = true
		sameFile = sameFile || of.File() == from.File()
		sameRank = sameRank || of.Rank() == from.Rank()
	}

	switch {
	case !ambiguous:
		return ""
	case !sameFile:
		return string(rune('a' + from.File()))
	case !sameRank:
		return string(rune('1' + from.Rank()))
	}
	return from.String()
}

// SANLine renders a line of moves played in sequence from b.
func (b *Board) SANLine(moves []Move) []string {
	out := make([]string, len(moves))
	cur := *b
	var undo UndoInfo
	for i, m := range moves {
		out[i] = cur.SAN(m)
		cur.MakeMove(m, &undo)
	}
	return out
}
