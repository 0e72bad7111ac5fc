package engine

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/redtail/internal/board"
)

// ErrNoLegalMoves is returned by Search when the side to move has no legal move.
var ErrNoLegalMoves = errors.New("no legal moves")

// DefaultHashMB sizes the transposition table when the caller has no preference.
const DefaultHashMB = 16

// Report is emitted after every completed iteration.
type Report struct {
	Depth    int
	Score    int
	Nodes    uint64
	Elapsed  time.Duration
	BestMove board.Move
	PV       []board.Move
	HashFull int // Permille of hash table used
}

// PVString joins the principal variation as coordinate references.
func (r Report) PVString() string {
	return MovesString(r.PV)
}

// SearchResult is the outcome of a top-level search.
type SearchResult struct {
	ID       uuid.UUID
	BestMove board.Move
	Score    int
	Depth    int
	Nodes    uint64
	Elapsed  time.Duration
	PV       []board.Move
}

// Config holds construction parameters for an Engine.
type Config struct {
	HashMB   int
	PVHashMB int
	Seed     uint64
	Options  Options
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		HashMB:   DefaultHashMB,
		PVHashMB: DefaultPVHashMB,
		Seed:     board.DefaultSeed,
		Options:  DefaultOptions(),
	}
}

// Engine is the chess AI engine.
type Engine struct {
	searcher *Searcher
	tt       *TranspositionTable
	pv       *PVTable
	keys     *board.Zobrist
	opts     Options

	// Callbacks
	OnInfo func(Report)
}

// NewEngine creates a new chess engine. The Zobrist table is fixed here from
// cfg.Seed; positions searched by the engine should be built with Keys().
func NewEngine(cfg Config) *Engine {
	tt := NewTranspositionTable(cfg.HashMB)
	pv := NewPVTable(cfg.PVHashMB)
	return &Engine{
		searcher: NewSearcher(tt, pv, cfg.Options),
		tt:       tt,
		pv:       pv,
		keys:     board.NewZobrist(cfg.Seed),
		opts:     cfg.Options,
	}
}

// Keys returns the Zobrist table positions should be hashed with.
func (e *Engine) Keys() *board.Zobrist {
	return e.keys
}

// Options returns the current feature switches.
func (e *Engine) Options() Options {
	return e.opts
}

// SetOptions replaces the feature switches.
func (e *Engine) SetOptions(opts Options) {
	e.opts = opts
	e.searcher.SetOptions(opts)
}

// SetHashSize reallocates the transposition table.
func (e *Engine) SetHashSize(mb int) {
	e.tt = NewTranspositionTable(mb)
	e.searcher.tt = e.tt
}

// SetPVHashSize reallocates the PV table.
func (e *Engine) SetPVHashSize(mb int) {
	e.pv = NewPVTable(mb)
	e.searcher.pv = e.pv
}

// SetSeed rebuilds the Zobrist table. Cached results keyed by the old table
// are discarded.
func (e *Engine) SetSeed(seed uint64) {
	e.keys = board.NewZobrist(seed)
	e.Clear()
}

// Search runs iterative deepening on pos within the limits of info.
// pos is mutated during the search and restored before returning.
// If no iteration completes, the first ordered legal move is returned.
func (e *Engine) Search(pos *board.Position, info *SearchInfo) (SearchResult, error) {
	id := uuid.New()
	logger := log.With().Str("search", id.String()).Logger()

	s := e.searcher
	s.begin(pos, info)
	e.tt.NewSearch()
	e.pv.Clear()

	result := SearchResult{ID: id}

	rootMoves := pos.OrderedMoves()
	if rootMoves.Len() == 0 {
		logger.Debug().Bool("check", pos.InCheck()).Msg("no-legal-moves")
		return result, ErrNoLegalMoves
	}
	result.BestMove = rootMoves.Get(0)

	// Determine maximum depth
	maxDepth := MaxDepth
	if info.Depth > 0 {
		maxDepth = clamp(info.Depth, 1, MaxDepth)
	}

	rootKey := pos.Fingerprint()

	for depth := 1; depth <= maxDepth; depth++ {
		if depth > 1 {
			s.checkup()
			if info.Stopped {
				break
			}
			if !info.SoftDeadline.IsZero() && time.Now().After(info.SoftDeadline) {
				break
			}
		}

		score := s.searchRoot(depth)
		if info.Stopped || s.rootBest.IsNull() {
			break
		}

		// Keep the root entry even if a deeper node overwrote its slot.
		e.pv.Store(rootKey, s.rootBest)

		result.BestMove = s.rootBest
		result.Score = score
		result.Depth = depth
		result.PV = e.pv.Line(pos, depth)

		elapsed := time.Since(info.StartTime)
		logger.Debug().
			Int("depth", depth).
			Int("score", score).
			Uint64("nodes", info.Nodes).
			Dur("elapsed", elapsed).
			Str("pv", MovesString(result.PV)).
			Msg("iteration-complete")

		// Report info
		if e.OnInfo != nil {
			e.OnInfo(Report{
				Depth:    depth,
				Score:    score,
				Nodes:    info.Nodes,
				Elapsed:  elapsed,
				BestMove: s.rootBest,
				PV:       result.PV,
				HashFull: e.tt.HashFull(),
			})
		}

		// Early termination: found mate
		if IsMateScore(score) {
			break
		}
	}

	result.Nodes = info.Nodes
	result.Elapsed = time.Since(info.StartTime)

	logger.Info().
		Str("bestmove", result.BestMove.String()).
		Int("depth", result.Depth).
		Uint64("nodes", result.Nodes).
		Bool("stopped", info.Stopped).
		Float64("tt_hit_rate", e.tt.HitRate()).
		Msg("search-done")

	return result, nil
}

// Stop stops the current search.
func (e *Engine) Stop() {
	e.searcher.Stop()
}

// Clear clears the transposition and PV tables.
func (e *Engine) Clear() {
	e.tt.Clear()
	e.pv.Clear()
}

// RecordMove stores m as the PV move of pos, so PVLine can replay moves
// entered from outside the search.
func (e *Engine) RecordMove(pos *board.Position, m board.Move) {
	e.pv.Store(pos.Fingerprint(), m)
}

// PVLine reconstructs up to maxLength moves of the principal variation from pos.
func (e *Engine) PVLine(pos *board.Position, maxLength int) []board.Move {
	return e.pv.Line(pos, maxLength)
}

// Evaluate returns the static evaluation of a position.
func (e *Engine) Evaluate(pos *board.Position) int {
	return e.searcher.eval.Evaluate(pos)
}

// Perft performs a perft test (for debugging move generation).
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	return perft(pos, depth)
}

func perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}

	moves := pos.LegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}

	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		pos.Apply(moves.Get(i))
		nodes += perft(pos, depth-1)
		pos.Undo()
	}

	return nodes
}

// DivideEntry is the perft count below one root move.
type DivideEntry struct {
	Move  board.Move
	Nodes uint64
}

// Divide runs perft below each legal root move in parallel, each on its own
// copy of pos. Entries are in generation order.
func (e *Engine) Divide(pos *board.Position, depth int) ([]DivideEntry, error) {
	if depth < 1 {
		return nil, fmt.Errorf("divide depth must be at least 1, got %d", depth)
	}

	moves := pos.LegalMoves().Slice()
	children := lo.Map(moves, func(m board.Move, _ int) *board.Position {
		child := pos.Clone()
		child.Apply(m)
		return child
	})

	entries := make([]DivideEntry, len(moves))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range moves {
		g.Go(func() error {
			entries[i] = DivideEntry{Move: moves[i], Nodes: perft(children[i], depth-1)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("divide: %w", err)
	}

	return entries, nil
}

// MovesString joins moves as space-separated coordinate references.
func MovesString(moves []board.Move) string {
	return strings.Join(lo.Map(moves, func(m board.Move, _ int) string {
		return m.String()
	}), " ")
}

// MateIn converts a mate score into signed full moves (negative when mated).
func MateIn(score int) int {
	if score > 0 {
		return (MateScore - score + 1) / 2
	}
	return -(MateScore + score + 1) / 2
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	if IsMateScore(score) {
		if score > 0 {
			return "Mate in " + strconv.Itoa(MateIn(score))
		}
		return "Mated in " + strconv.Itoa(-MateIn(score))
	}

	// Convert centipawns to pawns
	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	return fmt.Sprintf("%s%d.%02d", sign, score/100, score%100)
}
