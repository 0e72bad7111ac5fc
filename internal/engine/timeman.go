package engine

import (
	"time"

	"github.com/hailam/redtail/internal/board"
)

// UCILimits contains UCI time control parameters.
type UCILimits struct {
	Time      [2]time.Duration // wtime, btime (remaining time for each color)
	Inc       [2]time.Duration // winc, binc (increment per move)
	MovesToGo int              // moves until next time control (0 = sudden death)
	MoveTime  time.Duration    // fixed time per move (overrides other time controls)
	Depth     int              // maximum search depth
	Nodes     uint64           // maximum nodes to search
	Infinite  bool             // search until stopped
}

// TimeManager handles time allocation for searches.
type TimeManager struct {
	optimumTime time.Duration // Target time for this move; zero means none
	maximumTime time.Duration // Hard limit; zero means none
}

// NewTimeManager creates a new time manager.
func NewTimeManager() *TimeManager {
	return &TimeManager{}
}

// Init allocates time for a new search.
// ply is the current game ply (half-move number).
// Without movetime or a clock for us, no time is allocated: a bare "go", like
// "go infinite", searches until stop or until a depth or node limit is hit.
func (tm *TimeManager) Init(limits UCILimits, us board.Color, ply int) {
	tm.optimumTime, tm.maximumTime = 0, 0

	// Fixed move time mode
	if limits.MoveTime > 0 {
		tm.optimumTime = limits.MoveTime
		tm.maximumTime = limits.MoveTime
		return
	}

	// Infinite or depth/node-limited mode
	if limits.Infinite || us >= board.NoColor || limits.Time[us] == 0 {
		return
	}

	// Calculate time allocation based on remaining time and increment
	timeLeft := limits.Time[us]
	inc := limits.Inc[us]

	// Estimate moves to go
	mtg := limits.MovesToGo
	if mtg == 0 {
		// Sudden death: estimate moves remaining based on game phase
		mtg = clamp(50-ply/4, 10, 50)
	}

	// Base time per move plus most of the increment
	baseTime := timeLeft/time.Duration(mtg) + inc*9/10
	tm.optimumTime = baseTime

	// Slight reduction for very early moves (give some buffer)
	if ply < 8 {
		tm.optimumTime = baseTime * 85 / 100
	}

	// Maximum time: 5x optimum or 80% of remaining, whichever is smaller
	tm.maximumTime = min(tm.optimumTime*5, timeLeft*8/10)

	// Minimum times
	if tm.optimumTime < 10*time.Millisecond {
		tm.optimumTime = 10 * time.Millisecond
	}
	if tm.maximumTime < 50*time.Millisecond {
		tm.maximumTime = 50 * time.Millisecond
	}
}

// OptimumTime returns the target time for this move.
func (tm *TimeManager) OptimumTime() time.Duration {
	return tm.optimumTime
}

// MaximumTime returns the maximum time allowed.
func (tm *TimeManager) MaximumTime() time.Duration {
	return tm.maximumTime
}

// SearchInfo builds the limits for one search starting at start.
// No new iteration starts after the optimum; the maximum is the hard deadline.
func (tm *TimeManager) SearchInfo(limits UCILimits, start time.Time) *SearchInfo {
	info := &SearchInfo{
		StartTime: start,
		Depth:     limits.Depth,
		NodeLimit: limits.Nodes,
	}
	if tm.maximumTime > 0 {
		info.Deadline = start.Add(tm.maximumTime)
	}
	if tm.optimumTime > 0 && tm.optimumTime < tm.maximumTime {
		info.SoftDeadline = start.Add(tm.optimumTime)
	}
	return info
}
