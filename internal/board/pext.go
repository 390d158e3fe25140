package board

import "math/bits"

// Slider attacks are looked up in dense tables addressed by a parallel bit
// extract (PEXT) of the blocker set against a per-square relevance mask.
// There is no PEXT intrinsic in Go, so Pext below is the one definition of the
// index. The table layout depends on it and nothing else.

// SliderEntry locates one square's block inside a slider attack table.
type SliderEntry struct {
	Mask   Bitboard // relevant occupancy, edges excluded
	Offset uint32   // first slot of this square's 2^popcount(Mask) block
	Bits   uint8    // popcount(Mask)
}

var (
	bishopEntries [64]SliderEntry
	rookEntries   [64]SliderEntry

	bishopTable [5248]Bitboard
	rookTable   [102400]Bitboard
)

// Pext gathers the bits of x selected by mask into the low bits of the
// result, the lowest mask bit landing in bit 0.
func Pext(x, mask Bitboard) uint32 {
	var out uint32
	for i := 0; mask != 0; i++ {
		low := mask & -mask
		if x&low != 0 {
			out |= 1 << i
		}
		mask ^= low
	}
	return out
}

// Pdep is the inverse of Pext: it scatters the low bits of index onto the
// squares of mask, lowest first.
func Pdep(index uint32, mask Bitboard) Bitboard {
	var out Bitboard
	for i := 0; mask != 0; i++ {
		low := mask & -mask
		if index&(1<<i) != 0 {
			out |= low
		}
		mask ^= low
	}
	return out
}

func initSliderTables() {
	initSlider(bishopEntries[:], bishopTable[:], bishopMask, bishopAttacksSlow)
	initSlider(rookEntries[:], rookTable[:], rookMask, rookAttacksSlow)
}

// initSlider fills table by walking every subset of each square's mask with
// the carry-rippler and storing the ray-cast attack at its Pext slot.
func initSlider(entries []SliderEntry, table []Bitboard, maskOf func(Square) Bitboard, slow func(Square, Bitboard) Bitboard) {
	var offset uint32
	for sq := A1; sq <= H8; sq++ {
		mask := maskOf(sq)
		n := uint8(bits.OnesCount64(uint64(mask)))
		entries[sq] = SliderEntry{Mask: mask, Offset: offset, Bits: n}

		subset := mask
		for {
			table[offset+Pext(subset, mask)] = slow(sq, subset)
			subset = subset.NextSubset(mask)
			if subset == mask {
				break
			}
		}
		offset += 1 << n
	}
}

// BishopEntry exposes the bishop table entry for sq.
func BishopEntry(sq Square) SliderEntry { return bishopEntries[sq] }

// RookEntry exposes the rook table entry for sq.
func RookEntry(sq Square) SliderEntry { return rookEntries[sq] }

// bishopMask returns the relevant occupancy mask for a bishop on sq.
func bishopMask(sq Square) Bitboard {
	return bishopAttacksSlow(sq, 0) &^ Edges
}

// rookMask returns the relevant occupancy mask for a rook on sq. A rook on an
// edge still sees the squares of that edge, but never the corners ahead.
func rookMask(sq Square) Bitboard {
	file, rank := sq.File(), sq.Rank()
	var mask Bitboard
	for f := 1; f < 7; f++ {
		if f != file {
			mask |= SquareBB(NewSquare(f, rank))
		}
	}
	for r := 1; r < 7; r++ {
		if r != rank {
			mask |= SquareBB(NewSquare(file, r))
		}
	}
	return mask
}

// BishopAttacksSlow ray-casts bishop attacks; the first blocker on each ray is included.
func BishopAttacksSlow(sq Square, occupied Bitboard) Bitboard {
	return bishopAttacksSlow(sq, occupied)
}

// RookAttacksSlow ray-casts rook attacks; the first blocker on each ray is included.
func RookAttacksSlow(sq Square, occupied Bitboard) Bitboard {
	return rookAttacksSlow(sq, occupied)
}

func bishopAttacksSlow(sq Square, occupied Bitboard) Bitboard {
	return rayCast(sq, occupied, [][2]int{{1, 1}, {-1, 1}, {1, -1}, {-1, -1}})
}

func rookAttacksSlow(sq Square, occupied Bitboard) Bitboard {
	return rayCast(sq, occupied, [][2]int{{0, 1}, {0, -1}, {1, 0}, {-1, 0}})
}

func rayCast(sq Square, occupied Bitboard, dirs [][2]int) Bitboard {
	var attacks Bitboard
	for _, d := range dirs {
		f, r := sq.File()+d[0], sq.Rank()+d[1]
		for f >= 0 && f <= 7 && r >= 0 && r <= 7 {
			s := SquareBB(NewSquare(f, r))
			attacks |= s
			if occupied&s != 0 {
				break
			}
			f, r = f+d[0], r+d[1]
		}
	}
	return attacks
}

// BishopAttacks returns bishop attacks from sq through the given occupancy.
func BishopAttacks(sq Square, occupied Bitboard) Bitboard {
	e := &bishopEntries[sq]
	return bishopTable[e.Offset+Pext(occupied, e.Mask)]
}

// RookAttacks returns rook attacks from sq through the given occupancy.
func RookAttacks(sq Square, occupied Bitboard) Bitboard {
	e := &rookEntries[sq]
	return rookTable[e.Offset+Pext(occupied, e.Mask)]
}

// QueenAttacks composes rook and bishop lookups.
func QueenAttacks(sq Square, occupied Bitboard) Bitboard {
	return BishopAttacks(sq, occupied) | RookAttacks(sq, occupied)
}
