package board

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPosition is wrapped by every Validate failure.
var ErrInvalidPosition = errors.New("invalid position")

// CastlingRights is the 4-bit castling mask.
type CastlingRights uint8

const (
	WhiteKingSideCastle  CastlingRights = 1 << iota // K
	WhiteQueenSideCastle                            // Q
	BlackKingSideCastle                             // k
	BlackQueenSideCastle                            // q
	NoCastling           CastlingRights = 0
	AllCastling          CastlingRights = WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle
)

// String returns the FEN castling field.
func (cr CastlingRights) String() string {
	if cr&AllCastling == NoCastling {
		return "-"
	}
	var sb strings.Builder
	for i, c := range "KQkq" {
		if cr&(1<<i) != 0 {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

// Board is a chess position. It is a plain value: assigning a Board makes an
// independent copy that shares only the immutable Zobrist table.
type Board struct {
	// Piece bitboards: [Color][PieceType]
	Pieces [2][6]Bitboard

	Occupied    [2]Bitboard
	AllOccupied Bitboard

	SideToMove     Color
	CastlingRights CastlingRights
	EnPassant      Square // NoSquare if none
	HalfMoveClock  int
	FullMoveNumber int

	Hash       uint64
	KingSquare [2]Square

	squares [64]Piece
	keys    *Zobrist
}

// NewBoard returns an empty board hashed with keys (DefaultZobrist if nil).
func NewBoard(keys *Zobrist) *Board {
	if keys == nil {
		keys = DefaultZobrist()
	}
	b := &Board{
		EnPassant:      NoSquare,
		FullMoveNumber: 1,
		KingSquare:     [2]Square{NoSquare, NoSquare},
		keys:           keys,
	}
	for i := range b.squares {
		b.squares[i] = NoPiece
	}
	b.Hash = keys.Castling(NoCastling)
	return b
}

// StartBoard returns the standard initial position.
func StartBoard() *Board {
	b, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return b
}

// Keys returns the Zobrist table the board is hashed with.
func (b *Board) Keys() *Zobrist {
	return b.keys
}

// PieceAt returns the piece on sq, or NoPiece.
func (b *Board) PieceAt(sq Square) Piece {
	return b.squares[sq]
}

// IsEmpty reports whether sq holds no piece.
func (b *Board) IsEmpty(sq Square) bool {
	return b.squares[sq] == NoPiece
}

// SetPiece places p on the empty square sq.
func (b *Board) SetPiece(p Piece, sq Square) {
	c, pt := p.Color(), p.Type()
	bb := SquareBB(sq)
	b.Pieces[c][pt] |= bb
	b.Occupied[c] |= bb
	b.AllOccupied |= bb
	b.squares[sq] = p
	b.Hash ^= b.keys.Piece(p, sq)
	if pt == King {
		b.KingSquare[c] = sq
	}
}

// RemovePiece clears sq and returns what stood there.
func (b *Board) RemovePiece(sq Square) Piece {
	p := b.squares[sq]
	if p == NoPiece {
		return NoPiece
	}
	c, pt := p.Color(), p.Type()
	bb := SquareBB(sq)
	b.Pieces[c][pt] &^= bb
	b.Occupied[c] &^= bb
	b.AllOccupied &^= bb
	b.squares[sq] = NoPiece
	b.Hash ^= b.keys.Piece(p, sq)
	return p
}

// MovePiece moves the piece on from to the empty square to.
func (b *Board) MovePiece(from, to Square) {
	p := b.squares[from]
	c, pt := p.Color(), p.Type()
	moveBB := SquareBB(from) | SquareBB(to)
	b.Pieces[c][pt] ^= moveBB
	b.Occupied[c] ^= moveBB
	b.AllOccupied ^= moveBB
	b.squares[from] = NoPiece
	b.squares[to] = p
	b.Hash ^= b.keys.Piece(p, from) ^ b.keys.Piece(p, to)
	if pt == King {
		b.KingSquare[c] = to
	}
}

// setCastlingRights replaces the castling mask and rehashes it.
func (b *Board) setCastlingRights(cr CastlingRights) {
	b.Hash ^= b.keys.Castling(b.CastlingRights) ^ b.keys.Castling(cr)
	b.CastlingRights = cr
}

// setEnPassant replaces the en-passant target and rehashes it.
func (b *Board) setEnPassant(sq Square) {
	if b.EnPassant != NoSquare {
		b.Hash ^= b.keys.EnPassant(b.EnPassant.File())
	}
	if sq != NoSquare {
		b.Hash ^= b.keys.EnPassant(sq.File())
	}
	b.EnPassant = sq
}

// castleLossOnSquare is the rights lost when a rook leaves or is captured
// on a corner square. Purely positional: it does not check what stood there.
var castleLossOnSquare = func() (t [64]CastlingRights) {
	t[A1] = WhiteQueenSideCastle
	t[H1] = WhiteKingSideCastle
	t[A8] = BlackQueenSideCastle
	t[H8] = BlackKingSideCastle
	return t
}()

// clearCastleByMove revokes rights after a king or corner-square piece moves.
func (b *Board) clearCastleByMove(p Piece, from Square) {
	lost := castleLossOnSquare[from]
	if p.Type() == King {
		if p.Color() == White {
			lost |= WhiteKingSideCastle | WhiteQueenSideCastle
		} else {
			lost |= BlackKingSideCastle | BlackQueenSideCastle
		}
	}
	if b.CastlingRights&lost != 0 {
		b.setCastlingRights(b.CastlingRights &^ lost)
	}
}

// clearCastleByCapture revokes the right tied to a captured corner square.
func (b *Board) clearCastleByCapture(sq Square) {
	if lost := castleLossOnSquare[sq]; b.CastlingRights&lost != 0 {
		b.setCastlingRights(b.CastlingRights &^ lost)
	}
}

// Validate checks the internal consistency of the board representations
// and that the position could arise in a game: the side not to move is not
// in check and an en-passant target has a pawn to capture.
func (b *Board) Validate() error {
	if err := b.checkConsistency(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPosition, err)
	}
	if b.IsCheck(b.SideToMove.Other()) {
		return fmt.Errorf("%w: side not to move is in check", ErrInvalidPosition)
	}
	if b.EnPassant != NoSquare && !b.enPassantPlausible(b.EnPassant) {
		return fmt.Errorf("%w: no pawn to capture en passant on %s", ErrInvalidPosition, b.EnPassant)
	}
	return nil
}

// checkConsistency compares the bitboards, mailbox, caches and hash.
func (b *Board) checkConsistency() error {
	var occ [2]Bitboard
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			bb := b.Pieces[c][pt]
			if occ[c]&bb != 0 || occ[c.Other()]&bb != 0 {
				return fmt.Errorf("overlapping %s %s bitboard", c, pt)
			}
			occ[c] |= bb
			for s := bb; s != 0; {
				sq := s.PopLSB()
				if b.squares[sq] != NewPiece(pt, c) {
					return fmt.Errorf("mailbox disagrees with bitboards on %s", sq)
				}
			}
		}
		if occ[c] != b.Occupied[c] {
			return fmt.Errorf("%s occupancy out of sync", c)
		}
		if b.Pieces[c][King].PopCount() != 1 {
			return fmt.Errorf("%s must have exactly one king", c)
		}
		if b.KingSquare[c] != b.Pieces[c][King].LSB() {
			return fmt.Errorf("%s king square cache out of sync", c)
		}
	}
	if b.AllOccupied != occ[White]|occ[Black] {
		return fmt.Errorf("total occupancy out of sync")
	}
	for sq := A1; sq <= H8; sq++ {
		if b.squares[sq] != NoPiece && !b.AllOccupied.IsSet(sq) {
			return fmt.Errorf("mailbox has a stray piece on %s", sq)
		}
	}
	if (b.Pieces[White][Pawn]|b.Pieces[Black][Pawn])&(Rank1|Rank8) != 0 {
		return fmt.Errorf("pawns cannot be on rank 1 or 8")
	}
	if b.EnPassant != NoSquare && !b.EnPassant.IsValid() {
		return fmt.Errorf("invalid en passant square %d", b.EnPassant)
	}
	if b.Hash != b.keys.Hash(b) {
		return fmt.Errorf("hash %016x does not match recomputed %016x", b.Hash, b.keys.Hash(b))
	}
	return nil
}

// enPassantPlausible reports whether ep is a target the opponent's last
// double push could have left: ep on the right rank and empty, the pushed
// pawn in front of it and its origin square behind it empty.
func (b *Board) enPassantPlausible(ep Square) bool {
	if !ep.IsValid() {
		return false
	}
	them := b.SideToMove.Other()
	victim, origin := ep-8, ep+8
	if b.SideToMove == White {
		if ep.Rank() != 5 {
			return false
		}
	} else {
		if ep.Rank() != 2 {
			return false
		}
		victim, origin = ep+8, ep-8
	}
	return b.Pieces[them][Pawn].IsSet(victim) && !b.AllOccupied.IsSet(ep) && !b.AllOccupied.IsSet(origin)
}

// String returns a visual representation of the board.
func (b *Board) String() string {
	var sb strings.Builder
	sb.WriteByte('\n')
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%d  ", rank+1)
		for file := 0; file < 8; file++ {
			sb.WriteString(b.PieceAt(NewSquare(file, rank)).String())
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("\n   a b c d e f g h\n\n")
	fmt.Fprintf(&sb, "Side to move: %s\n", b.SideToMove)
	fmt.Fprintf(&sb, "Castling: %s\n", b.CastlingRights)
	fmt.Fprintf(&sb, "En passant: %s\n", b.EnPassant)
	fmt.Fprintf(&sb, "Hash: %016x\n", b.Hash)
	return sb.String()
}
