package engine

import (
	"testing"

	"github.com/hailam/redtail/internal/board"
)

func TestTranspositionTable(t *testing.T) {
	tt := NewTranspositionTable(1)
	const key = 0x9d39247e33776d41

	t.Run("ExactHit", func(t *testing.T) {
		tt.Clear()
		tt.Store(key, 4, 37, TTExact, board.NoMove)

		score, ok := tt.Lookup(key, 4, -100, 100, 3)
		if !ok || score != 37 {
			t.Errorf("Lookup = %d, %v; want 37, true", score, ok)
		}
		if _, ok := tt.Lookup(key, 5, -100, 100, 3); ok {
			t.Error("shallower entry should not settle a deeper request")
		}
		if _, ok := tt.Lookup(key^1, 1, -100, 100, 3); ok {
			t.Error("different key should miss")
		}
	})

	t.Run("LowerBound", func(t *testing.T) {
		tt.Clear()
		tt.Store(key, 2, 80, TTLowerBound, board.NoMove)

		if score, ok := tt.Lookup(key, 2, -100, 50, 1); !ok || score != 50 {
			t.Errorf("Lookup above beta = %d, %v; want 50, true", score, ok)
		}
		if _, ok := tt.Lookup(key, 2, -100, 100, 1); ok {
			t.Error("lower bound below beta should not cut")
		}
	})

	t.Run("UpperBound", func(t *testing.T) {
		tt.Clear()
		tt.Store(key, 2, -80, TTUpperBound, board.NoMove)

		if score, ok := tt.Lookup(key, 2, -50, 100, 1); !ok || score != -50 {
			t.Errorf("Lookup below alpha = %d, %v; want -50, true", score, ok)
		}
		if _, ok := tt.Lookup(key, 2, -100, 100, 1); ok {
			t.Error("upper bound above alpha should not cut")
		}
	})

	t.Run("CollisionReplaces", func(t *testing.T) {
		tt.Clear()
		other := key + tt.Size()
		tt.Store(key, 6, 10, TTExact, board.NoMove)
		tt.Store(other, 1, 20, TTExact, board.NoMove)

		if _, ok := tt.Probe(key); ok {
			t.Error("colliding store should replace the slot")
		}
		if e, ok := tt.Probe(other); !ok || e.Score != 20 {
			t.Errorf("Probe(other) = %+v, %v", e, ok)
		}
	})

	t.Run("HashFull", func(t *testing.T) {
		tt.Clear()
		if tt.HashFull() != 0 {
			t.Errorf("empty table HashFull = %d", tt.HashFull())
		}
		for i := uint64(0); i < 500; i++ {
			tt.Store(i, 1, 0, TTExact, board.NoMove)
		}
		if got := tt.HashFull(); got != 500 {
			t.Errorf("HashFull = %d, want 500", got)
		}
		tt.NewSearch()
		if got := tt.HashFull(); got != 0 {
			t.Errorf("HashFull after NewSearch = %d, want 0", got)
		}
	})
}

func TestMateScoreAdjustment(t *testing.T) {
	// Mate found 3 plies below a node at ply 5: stored relative to the node,
	// read back relative to a node at ply 2.
	score := MateScore - 8
	stored := AdjustScoreToTT(score, 5)
	if stored != MateScore-3 {
		t.Errorf("stored = %d, want %d", stored, MateScore-3)
	}
	if got := AdjustScoreFromTT(stored, 2); got != MateScore-5 {
		t.Errorf("restored = %d, want %d", got, MateScore-5)
	}

	mated := -MateScore + 8
	if got := AdjustScoreFromTT(AdjustScoreToTT(mated, 5), 5); got != mated {
		t.Errorf("round trip = %d, want %d", got, mated)
	}

	if got := AdjustScoreToTT(250, 9); got != 250 {
		t.Errorf("ordinary score adjusted to %d", got)
	}
}

func TestTableSizing(t *testing.T) {
	if got := NewTranspositionTable(0).Size(); got != minTTEntries {
		t.Errorf("0MB table size = %d, want %d", got, minTTEntries)
	}
	size := NewTranspositionTable(3).Size()
	if size&(size-1) != 0 {
		t.Errorf("table size %d is not a power of two", size)
	}
	if NewPVTable(0).Capacity() != 1 {
		t.Error("0MB PV table should still hold one entry")
	}
}
