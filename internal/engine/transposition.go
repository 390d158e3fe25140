package engine

import (
	"math"
	"sync/atomic"

	"github.com/hailam/chesscore/internal/board"
)

// Bound tells how a stored score relates to the true value.
type Bound uint8

const (
	BoundNone  Bound = 0 // empty way
	BoundLower Bound = 1 // failed high (beta cutoff)
	BoundUpper Bound = 2 // failed low
	BoundExact       = BoundLower | BoundUpper
)

// Ways per bucket.
const ttWays = 4

// generations wrap modulo 64 (6 bits in the packed word)
const ttGenerationMask = 63

// Entry layout, one uint64 per way:
//
//	bits  0-15 move
//	bits 16-31 score (int16, mate distance relative to the node)
//	bits 32-39 depth
//	bits 40-41 bound
//	bits 42-47 generation
//	bits 48-63 tag (high 16 bits of the key)
const (
	ttScoreShift = 16
	ttDepthShift = 32
	ttBoundShift = 40
	ttGenShift   = 42
	ttTagShift   = 48
)

// TTEntry is a decoded table entry.
type TTEntry struct {
	Move       board.Move
	Score      int
	Depth      int
	Bound      Bound
	Generation uint8
}

func packEntry(key uint64, move board.Move, score, depth int, bound Bound, gen uint8) uint64 {
	if depth < 0 {
		depth = 0
	} else if depth > 255 {
		depth = 255
	}
	return uint64(move) |
		uint64(uint16(int16(score)))<<ttScoreShift |
		uint64(depth)<<ttDepthShift |
		uint64(bound&3)<<ttBoundShift |
		uint64(gen&ttGenerationMask)<<ttGenShift |
		key>>ttTagShift<<ttTagShift
}

func unpackEntry(v uint64) TTEntry {
	return TTEntry{
		Move:       board.Move(v),
		Score:      int(int16(v >> ttScoreShift)),
		Depth:      int(uint8(v >> ttDepthShift)),
		Bound:      Bound(v>>ttBoundShift) & 3,
		Generation: uint8(v>>ttGenShift) & ttGenerationMask,
	}
}

func entryTag(v uint64) uint64 { return v >> ttTagShift }

// TranspositionTable is a lock-free hash table of search results. Every way
// is a single word read and written atomically, so concurrent searchers
// never see a torn entry; a racing store simply wins or loses.
type TranspositionTable struct {
	slots []atomic.Uint64
	mask  uint64

	generation atomic.Uint32

	// Statistics
	hits   atomic.Uint64
	probes atomic.Uint64
}

// NewTranspositionTable creates a transposition table with the given size in MB.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	if sizeMB < 1 {
		sizeMB = 1
	}
	numBuckets := roundDownToPowerOf2(uint64(sizeMB) * 1024 * 1024 / (8 * ttWays))
	return &TranspositionTable{
		slots: make([]atomic.Uint64, numBuckets*ttWays),
		mask:  numBuckets - 1,
	}
}

// roundDownToPowerOf2 rounds n down to the nearest power of 2.
func roundDownToPowerOf2(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

func (tt *TranspositionTable) bucket(key uint64) []atomic.Uint64 {
	base := (key & tt.mask) * ttWays
	return tt.slots[base : base+ttWays]
}

func (tt *TranspositionTable) currentGeneration() uint8 {
	return uint8(tt.generation.Load()) & ttGenerationMask
}

// Probe looks key up. A matching entry is always returned so its move can
// seed move ordering; hit is true only when it was searched to at least
// minDepth.
func (tt *TranspositionTable) Probe(key uint64, minDepth int) (TTEntry, bool) {
	tt.probes.Add(1)
	tag := key >> ttTagShift
	ways := tt.bucket(key)
	for i := range ways {
		v := ways[i].Load()
		if v == 0 || entryTag(v) != tag || Bound(v>>ttBoundShift)&3 == BoundNone {
			continue
		}
		e := unpackEntry(v)
		if e.Depth >= minDepth {
			tt.hits.Add(1)
			return e, true
		}
		return e, false
	}
	return TTEntry{}, false
}

// Store saves a search result. An entry for the same position is replaced
// when the new search is at least as deep or the old one is from an earlier
// generation. Otherwise an empty way is used, or the way with the lowest
// depth - 8*age is evicted.
func (tt *TranspositionTable) Store(key uint64, depth, score int, bound Bound, move board.Move) {
	gen := tt.currentGeneration()
	tag := key >> ttTagShift
	ways := tt.bucket(key)

	empty, victim := -1, 0
	victimValue := math.MaxInt
	for i := range ways {
		v := ways[i].Load()
		if v == 0 {
			if empty < 0 {
				empty = i
			}
			continue
		}
		old := unpackEntry(v)
		if entryTag(v) == tag {
			if depth >= old.Depth || old.Generation != gen {
				if move == board.NoMove {
					move = old.Move
				}
				ways[i].Store(packEntry(key, move, score, depth, bound, gen))
			}
			return
		}
		age := int((gen - old.Generation) & ttGenerationMask)
		if value := old.Depth - 8*age; value < victimValue {
			victim, victimValue = i, value
		}
	}
	if empty >= 0 {
		victim = empty
	}
	ways[victim].Store(packEntry(key, move, score, depth, bound, gen))
}

// NewSearch advances the generation so entries from earlier searches age.
func (tt *TranspositionTable) NewSearch() {
	tt.generation.Add(1)
}

// Clear empties the table. It must not race with searches.
func (tt *TranspositionTable) Clear() {
	for i := range tt.slots {
		tt.slots[i].Store(0)
	}
	tt.generation.Store(0)
	tt.hits.Store(0)
	tt.probes.Store(0)
}

// HashFull returns the permille of sampled ways holding an entry of the
// current generation.
func (tt *TranspositionTable) HashFull() int {
	sampleSize := 1000
	if sampleSize > len(tt.slots) {
		sampleSize = len(tt.slots)
	}
	gen := tt.currentGeneration()
	used := 0
	for i := 0; i < sampleSize; i++ {
		v := tt.slots[i].Load()
		if v != 0 && unpackEntry(v).Generation == gen {
			used++
		}
	}
	return used * 1000 / sampleSize
}

// HitRate returns the cache hit rate as a percentage.
func (tt *TranspositionTable) HitRate() float64 {
	probes := tt.probes.Load()
	if probes == 0 {
		return 0
	}
	return float64(tt.hits.Load()) / float64(probes) * 100
}

// Size returns the number of entries (ways) in the table.
func (tt *TranspositionTable) Size() uint64 {
	return uint64(len(tt.slots))
}

// AdjustScoreFromTT converts a stored mate score back to a distance from the root.
func AdjustScoreFromTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score - ply
	}
	if score < -MateScore+MaxPly {
		return score + ply
	}
	return score
}

// AdjustScoreToTT makes a mate score relative to the storing node.
func AdjustScoreToTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score + ply
	}
	if score < -MateScore+MaxPly {
		return score - ply
	}
	return score
}
