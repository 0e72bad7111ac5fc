package engine

import (
	"github.com/hailam/redtail/internal/board"
)

// TTFlag indicates the type of bound stored in the transposition table.
type TTFlag uint8

const (
	TTExact      TTFlag = iota // Exact score
	TTLowerBound               // Failed high (beta cutoff)
	TTUpperBound               // Failed low
)

// String returns the bound name.
func (f TTFlag) String() string {
	switch f {
	case TTExact:
		return "exact"
	case TTLowerBound:
		return "lower"
	case TTUpperBound:
		return "upper"
	default:
		return "unknown"
	}
}

// ttEntrySize is the nominal footprint of one entry used for sizing.
const ttEntrySize = 16

// minTTEntries keeps tiny or zero sizes usable.
const minTTEntries = 1024

// TTEntry represents an entry in the transposition table.
type TTEntry struct {
	Key      uint64     // Full 64-bit Zobrist hash for verification
	BestMove board.Move // Best move found
	Score    int16      // Score (bounded by flag)
	Depth    int8       // Search depth
	Flag     TTFlag     // Type of bound
	Age      uint8      // Generation that wrote the entry; zero means empty
}

// TranspositionTable is a hash table for storing search results.
// It is owned by a single search and is not safe for concurrent use.
type TranspositionTable struct {
	entries []TTEntry
	size    uint64
	mask    uint64
	age     uint8

	// Statistics
	hits   uint64
	probes uint64
}

// NewTranspositionTable creates a transposition table with the given size in MB.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	if sizeMB < 0 {
		sizeMB = 0
	}

	// Calculate number of entries
	numEntries := (uint64(sizeMB) * 1024 * 1024) / ttEntrySize

	// Round down to power of 2 for fast modulo
	numEntries = roundDownToPowerOf2(numEntries)
	if numEntries < minTTEntries {
		numEntries = minTTEntries
	}

	return &TranspositionTable{
		entries: make([]TTEntry, numEntries),
		size:    numEntries,
		mask:    numEntries - 1,
		age:     1,
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

// Probe looks up a position in the transposition table.
// Returns the entry and true if found, otherwise returns empty entry and false.
func (tt *TranspositionTable) Probe(hash uint64) (TTEntry, bool) {
	tt.probes++

	entry := tt.entries[hash&tt.mask]

	// Verify the full 64-bit key matches
	if entry.Age != 0 && entry.Key == hash {
		tt.hits++
		return entry, true
	}

	return TTEntry{}, false
}

// Lookup probes hash and applies the cutoff rules for a node searched to depth
// with window [alpha, beta] at the given ply. It returns the score to return
// from the node and true when the stored result settles it.
func (tt *TranspositionTable) Lookup(hash uint64, depth, alpha, beta, ply int) (int, bool) {
	entry, ok := tt.Probe(hash)
	if !ok || int(entry.Depth) < depth {
		return 0, false
	}

	score := AdjustScoreFromTT(int(entry.Score), ply)
	switch entry.Flag {
	case TTExact:
		return score, true
	case TTLowerBound:
		if score >= beta {
			return beta, true
		}
	case TTUpperBound:
		if score <= alpha {
			return alpha, true
		}
	}
	return 0, false
}

// Store saves a position in the transposition table, replacing whatever
// occupied the slot.
func (tt *TranspositionTable) Store(hash uint64, depth int, score int, flag TTFlag, bestMove board.Move) {
	entry := &tt.entries[hash&tt.mask]
	entry.Key = hash
	entry.BestMove = bestMove
	entry.Score = int16(score)
	entry.Depth = int8(depth)
	entry.Flag = flag
	entry.Age = tt.age
}

// NewSearch advances the generation so HashFull reports only the current search.
func (tt *TranspositionTable) NewSearch() {
	tt.age++
	if tt.age == 0 {
		tt.age = 1
	}
}

// Clear clears the transposition table.
func (tt *TranspositionTable) Clear() {
	for i := range tt.entries {
		tt.entries[i] = TTEntry{}
	}
	tt.age = 1
	tt.hits = 0
	tt.probes = 0
}

// HashFull returns the permille (parts per thousand) of the table that is used.
func (tt *TranspositionTable) HashFull() int {
	// Sample first 1000 entries
	used := 0
	sampleSize := 1000
	if uint64(sampleSize) > tt.size {
		sampleSize = int(tt.size)
	}

	for i := 0; i < sampleSize; i++ {
		if tt.entries[i].Age == tt.age {
			used++
		}
	}

	return (used * 1000) / sampleSize
}

// HitRate returns the cache hit rate as a percentage.
func (tt *TranspositionTable) HitRate() float64 {
	if tt.probes == 0 {
		return 0
	}
	return float64(tt.hits) / float64(tt.probes) * 100
}

// Size returns the number of entries in the table.
func (tt *TranspositionTable) Size() uint64 {
	return tt.size
}

// AdjustScoreFromTT converts a stored mate score back to the probing ply.
// Mate scores need to be adjusted based on ply distance.
func AdjustScoreFromTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score - ply
	}
	if score < -MateScore+MaxPly {
		return score + ply
	}
	return score
}

// AdjustScoreToTT adjusts a score for storage in the transposition table.
func AdjustScoreToTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score + ply
	}
	if score < -MateScore+MaxPly {
		return score - ply
	}
	return score
}
