// Package uci implements the Universal Chess Interface protocol on top of the
// engine, plus a handful of debugging commands.
package uci

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hailam/redtail/internal/board"
	"github.com/hailam/redtail/internal/engine"
)

// Option names accepted by setoption.
const (
	OptionHash       = "Hash"
	OptionPVHash     = "PVHash"
	OptionPositional = "Positional"
	OptionNullMove   = "NullMove"
	OptionSeed       = "Seed"
)

const (
	// pvDisplayLength bounds the line printed by the pv command.
	pvDisplayLength = engine.MaxDepth

	stopRetryInterval = 10 * time.Millisecond
)

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine   *engine.Engine
	position *board.Position
	timeman  *engine.TimeManager

	in    io.Reader
	out   io.Writer
	outMu sync.Mutex

	// Closed when the running search has sent bestmove; nil when idle.
	searchDone chan struct{}

	// OnSearchDone is called from the search goroutine after bestmove is sent.
	OnSearchDone func(engine.SearchResult)
	// OnOption is called after setoption has been applied.
	OnOption func(name, value string)
}

// New creates a new UCI protocol handler reading commands from in and writing
// protocol output to out.
func New(eng *engine.Engine, in io.Reader, out io.Writer) *UCI {
	u := &UCI{
		engine:   eng,
		position: board.StartPosition(eng.Keys()),
		timeman:  engine.NewTimeManager(),
		in:       in,
		out:      out,
	}
	eng.OnInfo = u.sendInfo
	return u
}

// Position returns the current position.
func (u *UCI) Position() *board.Position {
	return u.position
}

// Run reads commands until quit or end of input. A search still running at
// that point is stopped and awaited.
func (u *UCI) Run() error {
	scanner := bufio.NewScanner(u.in)
	defer u.handleStop()

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		log.Debug().Str("cmd", cmd).Strs("args", args).Msg("uci-command")

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			u.send("readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "position":
			u.handlePosition(args)
		case "go":
			u.handleGo(args)
		case "stop":
			u.handleStop()
		case "quit":
			return nil
		case "setoption":
			u.handleSetOption(args)
		// Debug commands
		case "d", "draw":
			u.handleDraw()
		case "perft":
			u.handlePerft(args)
		case "divide":
			u.handleDivide(args)
		case "listmoves":
			u.handleListMoves()
		case "m":
			u.handleMove(args)
		case "t":
			u.handleTakeback()
		case "pv":
			u.handlePV()
		default:
			u.sendString("Unknown command: %s", cmd)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read commands: %w", err)
	}
	return nil
}

// send writes one protocol line.
func (u *UCI) send(format string, args ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintf(u.out, format+"\n", args...)
}

// sendString reports a problem to the GUI as an info string and logs it.
func (u *UCI) sendString(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Warn().Msg(msg)
	u.send("info string %s", msg)
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	opts := u.engine.Options()
	u.send("id name Redtail")
	u.send("id author Redtail Team")
	u.send("")
	u.send("option name %s type spin default %d min 1 max 4096", OptionHash, engine.DefaultHashMB)
	u.send("option name %s type spin default %d min 1 max 1024", OptionPVHash, engine.DefaultPVHashMB)
	u.send("option name %s type check default %t", OptionPositional, opts.Positional)
	u.send("option name %s type check default %t", OptionNullMove, opts.UseNullMove)
	u.send("option name %s type string default %d", OptionSeed, board.DefaultSeed)
	u.send("uciok")
}

// handleNewGame resets the engine for a new game.
func (u *UCI) handleNewGame() {
	u.handleStop()
	u.engine.Clear()
	u.position = board.StartPosition(u.engine.Keys())
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}
	u.handleStop()

	// Find "moves" keyword
	fenEnd, moves := len(args), []string(nil)
	for i, arg := range args {
		if arg == "moves" {
			fenEnd, moves = i, args[i+1:]
			break
		}
	}

	switch args[0] {
	case "startpos":
		u.position = board.StartPosition(u.engine.Keys())
	case "fen":
		pos, err := board.ParsePosition(strings.Join(args[1:fenEnd], " "), u.engine.Keys())
		if err != nil {
			u.sendString("Invalid FEN: %v", err)
			return
		}
		u.position = pos
	default:
		u.sendString("Invalid position command: %s", args[0])
		return
	}

	for _, ref := range moves {
		if err := u.applyMove(ref); err != nil {
			u.sendString("%v", err)
			return
		}
	}
}

// applyMove validates ref against the current position, records it in the
// PV table and plays it.
func (u *UCI) applyMove(ref string) error {
	m, err := u.position.ParseMove(ref)
	if err != nil {
		return fmt.Errorf("invalid move %s: %w", ref, err)
	}
	if !u.position.MoveExists(m) {
		return fmt.Errorf("illegal move: %s", ref)
	}
	u.engine.RecordMove(u.position, m)
	u.position.Apply(m)
	return nil
}

// parseLimits parses "go" command arguments.
func parseLimits(args []string) engine.UCILimits {
	var limits engine.UCILimits

	ms := func(s string) time.Duration {
		n, _ := strconv.Atoi(s)
		return time.Duration(n) * time.Millisecond
	}

	for i := 0; i < len(args); i++ {
		if args[i] == "infinite" {
			limits.Infinite = true
			continue
		}
		if i+1 >= len(args) {
			break
		}
		value := args[i+1]
		switch args[i] {
		case "depth":
			limits.Depth, _ = strconv.Atoi(value)
		case "nodes":
			limits.Nodes, _ = strconv.ParseUint(value, 10, 64)
		case "movetime":
			limits.MoveTime = ms(value)
		case "wtime":
			limits.Time[board.White] = ms(value)
		case "btime":
			limits.Time[board.Black] = ms(value)
		case "winc":
			limits.Inc[board.White] = ms(value)
		case "binc":
			limits.Inc[board.Black] = ms(value)
		case "movestogo":
			limits.MovesToGo, _ = strconv.Atoi(value)
		default:
			continue
		}
		i++
	}

	return limits
}

// handleGo starts a search with the given parameters.
func (u *UCI) handleGo(args []string) {
	u.handleStop()

	limits := parseLimits(args)
	u.timeman.Init(limits, u.position.SideToMove(), u.position.Ply())
	info := u.timeman.SearchInfo(limits, time.Now())

	log.Debug().
		Int("depth", limits.Depth).
		Uint64("nodes", limits.Nodes).
		Dur("optimum", u.timeman.OptimumTime()).
		Dur("maximum", u.timeman.MaximumTime()).
		Msg("search-start")

	// Start search in goroutine
	done := make(chan struct{})
	u.searchDone = done

	pos := u.position.Clone()

	go func() {
		defer close(done)

		result, err := u.engine.Search(pos, info)
		if errors.Is(err, engine.ErrNoLegalMoves) {
			// Only send 0000 for checkmate/stalemate (no legal moves)
			u.send("bestmove 0000")
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("search-failed")
			u.send("bestmove 0000")
			return
		}

		u.send("bestmove %s", result.BestMove)
		if u.OnSearchDone != nil {
			u.OnSearchDone(result)
		}
	}()
}

// formatScore renders a score the way the protocol expects.
func formatScore(score int) string {
	if engine.IsMateScore(score) {
		return fmt.Sprintf("mate %d", engine.MateIn(score))
	}
	return fmt.Sprintf("cp %d", score)
}

// sendInfo outputs one completed iteration in UCI format.
func (u *UCI) sendInfo(r engine.Report) {
	line := fmt.Sprintf("info depth %d time %d nodes %d score %s currmove %s",
		r.Depth, r.Elapsed.Milliseconds(), r.Nodes, formatScore(r.Score), r.BestMove)
	if len(r.PV) > 0 {
		line += " pv " + r.PVString()
	}
	u.send("%s", line)
}

// handleStop stops the current search and waits for it to finish.
func (u *UCI) handleStop() {
	done := u.searchDone
	if done == nil {
		return
	}
	u.searchDone = nil

	// The search resets the stop flag when it starts, so keep signalling
	// until it has returned.
	ticker := time.NewTicker(stopRetryInterval)
	defer ticker.Stop()
	for {
		u.engine.Stop()
		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}

// handleSetOption processes "setoption" commands.
func (u *UCI) handleSetOption(args []string) {
	u.handleStop()

	// Format: setoption name <name> value <value>
	var name, value string
	readingName := false
	readingValue := false

	for _, arg := range args {
		switch arg {
		case "name":
			readingName = true
			readingValue = false
		case "value":
			readingName = false
			readingValue = true
		default:
			if readingName {
				if name != "" {
					name += " "
				}
				name += arg
			} else if readingValue {
				if value != "" {
					value += " "
				}
				value += arg
			}
		}
	}

	if err := u.applyOption(name, value); err != nil {
		u.sendString("%v", err)
		return
	}

	log.Info().Str("name", name).Str("value", value).Msg("option-set")
	if u.OnOption != nil {
		u.OnOption(name, value)
	}
}

// applyOption applies one named option to the engine.
func (u *UCI) applyOption(name, value string) error {
	switch strings.ToLower(name) {
	case "hash", "pvhash":
		mb, err := strconv.Atoi(value)
		if err != nil || mb < 1 {
			return fmt.Errorf("invalid %s value: %q", name, value)
		}
		if strings.EqualFold(name, OptionHash) {
			u.engine.SetHashSize(mb)
		} else {
			u.engine.SetPVHashSize(mb)
		}
	case "positional", "nullmove":
		on, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid %s value: %q", name, value)
		}
		opts := u.engine.Options()
		if strings.EqualFold(name, OptionPositional) {
			opts.Positional = on
		} else {
			opts.UseNullMove = on
		}
		u.engine.SetOptions(opts)
	case "seed":
		seed, err := strconv.ParseUint(value, 0, 64)
		if err != nil {
			return fmt.Errorf("invalid %s value: %q", name, value)
		}
		u.engine.SetSeed(seed)
		// Rehash the current position with the new table.
		u.position = board.NewPosition(u.position.Snapshot(), u.engine.Keys())
	default:
		return fmt.Errorf("unknown option: %s", name)
	}
	return nil
}

// depthArg parses the optional depth argument of the debug commands.
func depthArg(args []string, def int) (int, error) {
	if len(args) == 0 {
		return def, nil
	}
	depth, err := strconv.Atoi(args[0])
	if err != nil || depth < 1 {
		return 0, fmt.Errorf("invalid depth: %s", args[0])
	}
	return depth, nil
}

// handlePerft runs a perft test.
func (u *UCI) handlePerft(args []string) {
	depth, err := depthArg(args, 4)
	if err != nil {
		u.sendString("%v", err)
		return
	}
	u.handleStop()

	start := time.Now()
	nodes := u.engine.Perft(u.position, depth)
	elapsed := time.Since(start)

	u.send("Nodes: %d", nodes)
	u.send("Time: %v", elapsed)
	if elapsed > 0 {
		nps := float64(nodes) / elapsed.Seconds()
		u.send("NPS: %.0f", nps)
	}
}

// handleDivide prints the perft count below every legal move.
func (u *UCI) handleDivide(args []string) {
	depth, err := depthArg(args, 3)
	if err != nil {
		u.sendString("%v", err)
		return
	}
	u.handleStop()

	entries, err := u.engine.Divide(u.position, depth)
	if err != nil {
		u.sendString("%v", err)
		return
	}

	var total uint64
	for _, e := range entries {
		u.send("%s: %d", e.Move, e.Nodes)
		total += e.Nodes
	}
	u.send("")
	u.send("Moves: %d", len(entries))
	u.send("Nodes: %d", total)
}

// handleListMoves prints the ordered legal moves with their ordering scores.
func (u *UCI) handleListMoves() {
	moves := u.position.OrderedMoves()
	for i := 0; i < moves.Len(); i++ {
		u.send("%s %d", moves.Get(i), moves.Score(i))
	}
	u.send("Legal moves: %d", moves.Len())
}

// handleDraw prints the board with its material balance and static evaluation,
// both from the side to move's view.
func (u *UCI) handleDraw() {
	u.send("%s", u.position.String())
	u.send("Material: %d", engine.EvaluateMaterial(u.position))
	u.send("Eval: %d", u.engine.Evaluate(u.position))
}

// handleMove plays a single move on the current position.
func (u *UCI) handleMove(args []string) {
	if len(args) == 0 {
		u.sendString("usage: m <move>")
		return
	}
	u.handleStop()

	if err := u.applyMove(args[0]); err != nil {
		u.sendString("%v", err)
		return
	}
	u.send("%s", u.position.String())
}

// handleTakeback undoes the last move played on the current position.
func (u *UCI) handleTakeback() {
	u.handleStop()

	if u.position.Ply() == 0 {
		u.sendString("no move to take back")
		return
	}
	last := u.position.LastMove()
	u.position.Undo()
	u.send("info string took back %s", last)
	u.send("%s", u.position.String())
}

// handlePV prints the stored principal variation from the current position.
func (u *UCI) handlePV() {
	u.handleStop()

	line := u.engine.PVLine(u.position, pvDisplayLength)
	u.send("pv %s", engine.MovesString(line))
}
