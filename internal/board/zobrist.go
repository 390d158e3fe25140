package board

import "sync"

// DefaultZobristSeed seeds the process-wide key table.
const DefaultZobristSeed uint64 = 0x98F107A2BEEF1234

// Zobrist is an immutable table of random hash keys. Boards carry a pointer
// to the table they were built with, so keys from different tables never mix.
type Zobrist struct {
	piece     [12][64]uint64
	epFile    [8]uint64
	castling  [16]uint64
	sideBlack uint64
}

// xorshift64* generator
type prng struct {
	state uint64
}

func (p *prng) next() uint64 {
	p.state ^= p.state >> 12
	p.state ^= p.state << 25
	p.state ^= p.state >> 27
	return p.state * 0x2545F4914F6CDD1D
}

// NewZobrist builds a key table from seed. The seed must be non-zero.
func NewZobrist(seed uint64) *Zobrist {
	rng := prng{state: seed}
	z := &Zobrist{}
	for p := range z.piece {
		for sq := range z.piece[p] {
			z.piece[p][sq] = rng.next()
		}
	}
	for f := range z.epFile {
		z.epFile[f] = rng.next()
	}
	for i := range z.castling {
		z.castling[i] = rng.next()
	}
	z.sideBlack = rng.next()
	return z
}

var (
	defaultZobrist     *Zobrist
	defaultZobristOnce sync.Once
)

// DefaultZobrist returns the process-wide table, built on first use.
func DefaultZobrist() *Zobrist {
	defaultZobristOnce.Do(func() {
		defaultZobrist = NewZobrist(DefaultZobristSeed)
	})
	return defaultZobrist
}

// Piece returns the key for piece p standing on sq.
func (z *Zobrist) Piece(p Piece, sq Square) uint64 {
	return z.piece[p][sq]
}

// EnPassant returns the key for an en-passant target on the given file.
func (z *Zobrist) EnPassant(file int) uint64 {
	return z.epFile[file]
}

// Castling returns the key for a full castling-rights mask.
func (z *Zobrist) Castling(cr CastlingRights) uint64 {
	return z.castling[cr&AllCastling]
}

// SideToMove returns the key XORed in when black is to move.
func (z *Zobrist) SideToMove() uint64 {
	return z.sideBlack
}

// Hash computes the key of b from scratch.
func (z *Zobrist) Hash(b *Board) uint64 {
	var h uint64
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			p := NewPiece(pt, c)
			for bb := b.Pieces[c][pt]; bb != 0; {
				h ^= z.piece[p][bb.PopLSB()]
			}
		}
	}
	if b.SideToMove == Black {
		h ^= z.sideBlack
	}
	h ^= z.Castling(b.CastlingRights)
	if b.EnPassant != NoSquare {
		h ^= z.epFile[b.EnPassant.File()]
	}
	return h
}
