package engine

import (
	"sync/atomic"
	"time"

	"golang.org/x/exp/constraints"

	"github.com/hailam/redtail/internal/board"
)

// Search constants
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
	MaxDepth  = 64
)

// Pruning constants
const (
	nullMoveMinDepth  = 4
	nullMoveReduction = 2

	// checkInterval masks the node counter; limits are sampled when it wraps.
	checkInterval = 2047
)

// SearchInfo carries the limits and counters of one top-level search.
// Zero Deadline, Depth or NodeLimit means unbounded. No iteration beyond the
// first starts after SoftDeadline.
type SearchInfo struct {
	StartTime    time.Time
	Deadline     time.Time
	SoftDeadline time.Time
	Depth        int
	NodeLimit    uint64

	Nodes   uint64
	Stopped bool
}

// reset clears the counters and stamps the start time.
func (si *SearchInfo) reset() {
	si.StartTime = time.Now()
	si.Nodes = 0
	si.Stopped = false
}

// Options switches individual search features.
type Options struct {
	UseTT       bool
	UseNullMove bool
	Positional  bool
}

// DefaultOptions enables every feature.
func DefaultOptions() Options {
	return Options{UseTT: true, UseNullMove: true, Positional: true}
}

// Searcher performs the alpha-beta search on a single position.
type Searcher struct {
	pos  *board.Position
	info *SearchInfo
	eval Evaluator
	opts Options

	tt *TranspositionTable
	pv *PVTable

	rootBest board.Move
	stopFlag atomic.Bool
}

// NewSearcher creates a new searcher.
func NewSearcher(tt *TranspositionTable, pv *PVTable, opts Options) *Searcher {
	return &Searcher{
		tt:   tt,
		pv:   pv,
		opts: opts,
		eval: NewEvaluator(opts.Positional),
	}
}

// Stop signals the search to stop. Safe to call from another goroutine.
func (s *Searcher) Stop() {
	s.stopFlag.Store(true)
}

// SetOptions replaces the feature switches for subsequent searches.
func (s *Searcher) SetOptions(opts Options) {
	s.opts = opts
	s.eval = NewEvaluator(opts.Positional)
}

// begin binds the searcher to pos and info for a new top-level search.
func (s *Searcher) begin(pos *board.Position, info *SearchInfo) {
	s.pos = pos
	s.info = info
	s.rootBest = board.NoMove
	s.stopFlag.Store(false)
	info.reset()
}

// searchRoot runs one full-window iteration at depth and returns its score.
func (s *Searcher) searchRoot(depth int) int {
	s.rootBest = board.NoMove
	return s.alphaBeta(-Infinity, Infinity, depth, 0, true)
}

// checkup samples the limits and marks the search stopped if any is exceeded.
func (s *Searcher) checkup() {
	switch {
	case s.stopFlag.Load():
		s.info.Stopped = true
	case !s.info.Deadline.IsZero() && !time.Now().Before(s.info.Deadline):
		s.info.Stopped = true
	case s.info.NodeLimit > 0 && s.info.Nodes >= s.info.NodeLimit:
		s.info.Stopped = true
	}
}

// visit counts a node and samples the limits every checkInterval+1 nodes.
func (s *Searcher) visit() bool {
	s.info.Nodes++
	if s.info.Nodes&checkInterval == 0 {
		s.checkup()
	}
	return s.info.Stopped
}

// alphaBeta is a fail-hard negamax search. Once the search is stopped every
// frame returns 0 and callers discard the value.
func (s *Searcher) alphaBeta(alpha, beta, depth, ply int, allowNull bool) int {
	if s.visit() {
		return 0
	}

	key := s.pos.Fingerprint()

	if s.opts.UseTT && ply > 0 {
		if score, ok := s.tt.Lookup(key, depth, alpha, beta, ply); ok {
			return score
		}
	}

	if depth <= 0 || ply >= MaxPly {
		score := s.quiescence(alpha, beta, ply)
		if s.info.Stopped {
			return 0
		}
		s.store(key, 0, score, boundFor(score, alpha, beta), board.NoMove, ply)
		return score
	}

	inCheck := s.pos.InCheck()

	// Null move pruning
	if s.opts.UseNullMove && allowNull && !inCheck && ply > 0 && depth >= nullMoveMinDepth {
		s.pos.MakeNullMove()
		score := -s.alphaBeta(-beta, -beta+1, depth-1-nullMoveReduction, ply+1, false)
		s.pos.Undo()

		if s.info.Stopped {
			return 0
		}
		if score >= beta {
			s.store(key, depth, beta, TTLowerBound, board.NoMove, ply)
			return beta
		}
	}

	moves := s.pos.OrderedMoves()
	if moves.Len() == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	oldAlpha := alpha
	bestMove := board.NoMove

	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)

		s.pos.Apply(m)
		score := -s.alphaBeta(-beta, -alpha, depth-1, ply+1, true)
		s.pos.Undo()

		if s.info.Stopped {
			return 0
		}

		if score >= beta {
			s.store(key, depth, beta, TTLowerBound, m, ply)
			return beta
		}

		if score > alpha {
			alpha = score
			bestMove = m
			s.pv.Store(key, m)
			if ply == 0 {
				s.rootBest = m
			}
		}
	}

	flag := TTUpperBound
	if alpha > oldAlpha {
		flag = TTExact
	}
	s.store(key, depth, alpha, flag, bestMove, ply)

	return alpha
}

// quiescence searches captures only until the position is quiet.
func (s *Searcher) quiescence(alpha, beta, ply int) int {
	if s.visit() {
		return 0
	}

	// Stand pat
	standPat := s.eval.Evaluate(s.pos)
	if ply >= MaxPly {
		return standPat
	}

	if standPat >= beta {
		return beta
	}
	if standPat > alpha {
		alpha = standPat
	}

	moves := s.pos.LegalCaptures()
	for i := 0; i < moves.Len(); i++ {
		s.pos.Apply(moves.Get(i))
		score := -s.quiescence(-beta, -alpha, ply+1)
		s.pos.Undo()

		if s.info.Stopped {
			return 0
		}

		if score >= beta {
			return beta
		}
		if score > alpha {
			alpha = score
		}
	}

	return alpha
}

// store writes a TT entry when the table is enabled.
func (s *Searcher) store(key uint64, depth, score int, flag TTFlag, m board.Move, ply int) {
	if !s.opts.UseTT {
		return
	}
	s.tt.Store(key, depth, AdjustScoreToTT(score, ply), flag, m)
}

// boundFor classifies a fail-hard result against the window it was searched with.
func boundFor(score, alpha, beta int) TTFlag {
	switch {
	case score <= alpha:
		return TTUpperBound
	case score >= beta:
		return TTLowerBound
	default:
		return TTExact
	}
}

// IsMateScore reports whether score encodes a forced mate.
func IsMateScore(score int) bool {
	return abs(score) > MateScore-MaxPly
}

// abs returns the absolute value of a signed number.
func abs[T constraints.Signed](x T) T {
	if x < 0 {
		return -x
	}
	return x
}

// clamp limits x to [lo, hi].
func clamp[T constraints.Ordered](x, lo, hi T) T {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
