package engine

import (
	"github.com/hailam/redtail/internal/board"
)

// pvEntrySize is the nominal footprint of one entry used for sizing.
const pvEntrySize = 16

// DefaultPVHashMB sizes the PV table when the caller has no preference.
const DefaultPVHashMB = 5

// PVEntry maps a position fingerprint to the move that raised alpha there.
type PVEntry struct {
	Key  uint64
	Move board.Move
}

// PVTable is a fixed-capacity table indexed by key modulo capacity.
// Entries are overwritten on collision.
type PVTable struct {
	entries []PVEntry
}

// NewPVTable creates a PV table with the given size in MB.
func NewPVTable(sizeMB int) *PVTable {
	n := sizeMB * 1024 * 1024 / pvEntrySize
	if n < 1 {
		n = 1
	}
	return &PVTable{entries: make([]PVEntry, n)}
}

// Capacity returns the number of slots.
func (t *PVTable) Capacity() int {
	return len(t.entries)
}

// Store records m as the best move for key.
func (t *PVTable) Store(key uint64, m board.Move) {
	e := &t.entries[key%uint64(len(t.entries))]
	e.Key = key
	e.Move = m
}

// Probe returns the move stored for key.
func (t *PVTable) Probe(key uint64) (board.Move, bool) {
	e := t.entries[key%uint64(len(t.entries))]
	if e.Key != key || e.Move.IsNull() {
		return board.NoMove, false
	}
	return e.Move, true
}

// Clear empties every slot.
func (t *PVTable) Clear() {
	for i := range t.entries {
		t.entries[i] = PVEntry{}
	}
}

// Line follows stored moves from pos for at most maxLength plies. Each move is
// applied only if it is legal in the position reached so far. Every applied
// move is undone before returning, so pos is left as it was.
func (t *PVTable) Line(pos *board.Position, maxLength int) []board.Move {
	var line []board.Move
	for len(line) < maxLength {
		m, ok := t.Probe(pos.Fingerprint())
		if !ok || !pos.MoveExists(m) {
			break
		}
		pos.Apply(m)
		line = append(line, m)
	}

	for range line {
		pos.Undo()
	}
	return line
}
