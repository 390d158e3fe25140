package board

import "fmt"

// Move encodes a chess move in 16 bits:
// bits 0-5:   to square
// bits 6-11:  from square
// bits 12-13: promotion piece (0=Knight, 1=Bishop, 2=Rook, 3=Queen)
// bits 14-15: kind (0=normal, 1=castle, 2=en passant, 3=promotion)
type Move uint16

// MoveKind is the special-move class stored in the top two bits.
type MoveKind uint8

const (
	KindNormal MoveKind = iota
	KindCastle
	KindEnPassant
	KindPromotion
)

// NoMove is the zero word (a1a1), never produced by the generator.
const NoMove Move = 0

// EncodeMove packs the four move fields. promo is the 2-bit promotion index.
func EncodeMove(from, to Square, kind MoveKind, promo uint8) Move {
	return Move(to) | Move(from)<<6 | Move(promo&3)<<12 | Move(kind&3)<<14
}

// NewMove creates a normal move.
func NewMove(from, to Square) Move {
	return EncodeMove(from, to, KindNormal, 0)
}

// NewPromotion creates a promotion to pt (Knight..Queen).
func NewPromotion(from, to Square, pt PieceType) Move {
	return EncodeMove(from, to, KindPromotion, uint8(pt-Knight))
}

// NewEnPassant creates an en-passant capture; to is the en-passant target square.
func NewEnPassant(from, to Square) Move {
	return EncodeMove(from, to, KindEnPassant, 0)
}

// NewCastle creates a castling move expressed as the king's step.
func NewCastle(from, to Square) Move {
	return EncodeMove(from, to, KindCastle, 0)
}

func (m Move) To() Square { return Square(m & 0x3F) }
func (m Move) From() Square { return Square((m >> 6) & 0x3F) }
func (m Move) PromoIndex() uint8 { return uint8((m >> 12) & 3) }
func (m Move) Kind() MoveKind { return MoveKind(m >> 14) }

// Promotion returns the promoted piece type; only meaningful for KindPromotion.
func (m Move) Promotion() PieceType {
	return Knight + PieceType(m.PromoIndex())
}

func (m Move) IsPromotion() bool { return m.Kind() == KindPromotion }
func (m Move) IsCastle() bool { return m.Kind() == KindCastle }
func (m Move) IsEnPassant() bool { return m.Kind() == KindEnPassant }

// String returns coordinate notation ("e2e4", "e7e8q").
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string("nbrq"[m.PromoIndex()])
	}
	return s
}

// ParseMove resolves coordinate notation against b, recovering the move kind.
func ParseMove(s string, b *Board) (Move, error) {
	if len(s) != 4 && len(s) != 5 {
		return NoMove, fmt.Errorf("invalid move string: %q", s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, err
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, err
	}
	if len(s) == 5 {
		switch s[4] {
		case 'n':
			return NewPromotion(from, to, Knight), nil
		case 'b':
			return NewPromotion(from, to, Bishop), nil
		case 'r':
			return NewPromotion(from, to, Rook), nil
		case 'q':
			return NewPromotion(from, to, Queen), nil
		}
		return NoMove, fmt.Errorf("invalid promotion piece: %q", s[4])
	}

	p := b.PieceAt(from)
	if p == NoPiece {
		return NoMove, fmt.Errorf("no piece at %s", from)
	}
	switch {
	case p.Type() == King && (to-from == 2 || from-to == 2):
		return NewCastle(from, to), nil
	case p.Type() == Pawn && to == b.EnPassant:
		return NewEnPassant(from, to), nil
	}
	return NewMove(from, to), nil
}

// MoveList is a fixed-capacity move buffer so generation never allocates.
type MoveList struct {
	moves [256]Move
	count int
}

// Add appends m. The buffer holds more moves than any chess position has.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

func (ml *MoveList) Len() int { return ml.count }
func (ml *MoveList) Get(i int) Move { return ml.moves[i] }
func (ml *MoveList) Set(i int, m Move) { ml.moves[i] = m }
func (ml *MoveList) Swap(i, j int) { ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i] }
func (ml *MoveList) Clear() { ml.count = 0 }
func (ml *MoveList) Slice() []Move { return ml.moves[:ml.count] }

// Contains reports whether m is in the list.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// UndoInfo holds the Board fields a move overwrites and cannot recompute.
// The search keeps one per ply in a fixed array.
type UndoInfo struct {
	Hash           uint64
	CastlingRights CastlingRights
	EnPassant      Square
	HalfMoveClock  int
	FullMoveNumber int
	Captured       Piece
}
