package uci

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/hailam/redtail/internal/board"
	"github.com/hailam/redtail/internal/engine"
)

func newTestEngine() *engine.Engine {
	cfg := engine.DefaultConfig()
	cfg.HashMB = 4
	cfg.PVHashMB = 1
	return engine.NewEngine(cfg)
}

// runScript feeds commands to a fresh handler and returns everything it printed.
// Only for scripts without searches: end of input stops a running search.
func runScript(t *testing.T, eng *engine.Engine, commands ...string) (string, *UCI) {
	t.Helper()
	var out bytes.Buffer
	u := New(eng, strings.NewReader(strings.Join(commands, "\n")+"\n"), &out)
	if err := u.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.String(), u
}

// session drives a handler through pipes so searches can finish on their own.
type session struct {
	t     *testing.T
	in    *io.PipeWriter
	lines chan string
	done  chan error
}

func startSession(t *testing.T) *session {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	s := &session{
		t:     t,
		in:    inW,
		lines: make(chan string, 4096),
		done:  make(chan error, 1),
	}

	u := New(newTestEngine(), inR, outW)
	go func() {
		err := u.Run()
		outW.Close()
		s.done <- err
	}()
	go func() {
		scanner := bufio.NewScanner(outR)
		for scanner.Scan() {
			s.lines <- scanner.Text()
		}
		close(s.lines)
	}()

	t.Cleanup(func() {
		inW.Close()
		select {
		case <-s.done:
		case <-time.After(10 * time.Second):
			t.Error("handler did not exit")
		}
	})
	return s
}

func (s *session) send(cmd string) {
	fmt.Fprintln(s.in, cmd)
}

// collect returns every line up to and including the first one with prefix.
func (s *session) collect(prefix string) []string {
	s.t.Helper()
	var got []string
	timeout := time.After(20 * time.Second)
	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				s.t.Fatalf("output closed before %q; got %q", prefix, got)
			}
			got = append(got, line)
			if strings.HasPrefix(line, prefix) {
				return got
			}
		case <-timeout:
			s.t.Fatalf("timed out waiting for %q; got %q", prefix, got)
		}
	}
}

var infoLine = regexp.MustCompile(`^info depth \d+ time \d+ nodes \d+ score (cp|mate) -?\d+ currmove [a-h][1-8][a-h][1-8]q? pv( [a-h][1-8][a-h][1-8]q?)+$`)

func TestHandshake(t *testing.T) {
	out, _ := runScript(t, newTestEngine(), "uci", "isready")

	for _, want := range []string{"id name Redtail", "option name Hash type spin", "option name Seed", "uciok", "readyok"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestGoDepthAfterMoves(t *testing.T) {
	s := startSession(t)
	s.send("position startpos moves e2e4")
	s.send("go depth 2")

	lines := s.collect("bestmove ")

	infos := 0
	for _, line := range lines[:len(lines)-1] {
		if !infoLine.MatchString(line) {
			t.Errorf("malformed info line: %q", line)
		}
		infos++
	}
	if infos != 2 {
		t.Errorf("got %d info lines, want 2", infos)
	}

	ref := strings.TrimPrefix(lines[len(lines)-1], "bestmove ")
	pos := board.StartPosition(nil)
	e4, _ := pos.ParseMove("e2e4")
	pos.Apply(e4)
	m, err := pos.ParseMove(ref)
	if err != nil || !pos.MoveExists(m) {
		t.Errorf("bestmove %q is not legal for Black after e2e4", ref)
	}
	t.Logf("bestmove %s", ref)
}

func TestGoWithoutLegalMoves(t *testing.T) {
	s := startSession(t)
	s.send("position fen R6k/6pp/8/8/8/8/8/K7 b - - 0 1")
	s.send("go depth 3")

	lines := s.collect("bestmove ")
	if got := lines[len(lines)-1]; got != "bestmove 0000" {
		t.Errorf("got %q, want bestmove 0000", got)
	}
}

func TestGoFindsMate(t *testing.T) {
	s := startSession(t)
	s.send("position fen 6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1")
	s.send("go depth 3")

	lines := s.collect("bestmove ")
	if got := lines[len(lines)-1]; got != "bestmove a1a8" {
		t.Errorf("got %q, want bestmove a1a8", got)
	}
	// Mate is seen once the reply is searched, and the search stops there.
	last := lines[len(lines)-2]
	if !strings.Contains(last, "depth 2") || !strings.Contains(last, "score mate 1") {
		t.Errorf("last info line %q should report mate 1 at depth 2", last)
	}
}

func TestStopInfiniteSearch(t *testing.T) {
	s := startSession(t)
	s.send("go infinite")
	time.Sleep(50 * time.Millisecond)
	s.send("stop")

	lines := s.collect("bestmove ")
	if got := lines[len(lines)-1]; got == "bestmove 0000" {
		t.Error("stopped search from the start position should return a move")
	}

	// The handler keeps answering afterwards.
	s.send("isready")
	s.collect("readyok")
}

func TestPositionRejectsIllegalMove(t *testing.T) {
	out, u := runScript(t, newTestEngine(), "position startpos moves e2e4 e7e5 e1e3")

	if !strings.Contains(out, "info string illegal move: e1e3") {
		t.Errorf("expected an illegal move report, got:\n%s", out)
	}
	// Moves before the bad one are kept.
	if u.Position().Ply() != 2 {
		t.Errorf("Ply = %d, want 2", u.Position().Ply())
	}
}

func TestPositionFEN(t *testing.T) {
	const fen = "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1"
	_, u := runScript(t, newTestEngine(), "position fen "+fen+" moves e2e4")

	if got := u.Position().ToFEN(); !strings.HasPrefix(got, "4k3/8/8/8/4P3/8/8/4K3 b") {
		t.Errorf("FEN after e2e4 = %s", got)
	}

	out, _ := runScript(t, newTestEngine(), "position fen 8/8/8")
	if !strings.Contains(out, "info string Invalid FEN") {
		t.Errorf("expected an invalid FEN report, got:\n%s", out)
	}
}

func TestDebugCommands(t *testing.T) {
	tests := []struct {
		name     string
		commands []string
		want     []string
	}{
		{"perft", []string{"perft 3"}, []string{"Nodes: 8902"}},
		{"divide", []string{"divide 2"}, []string{"e2e4: 20", "Moves: 20", "Nodes: 400"}},
		{"listmoves", []string{"listmoves"}, []string{"Legal moves: 20"}},
		{"draw", []string{"d"}, []string{"r n b q k b n r", "Side to move: White", "Material: 0", "Eval: 0"}},
		{"draw up a knight", []string{"position fen 4k3/8/8/8/8/8/8/3NK3 b - - 0 1", "d"}, []string{"Material: -320"}},
		{"move and takeback", []string{"m e2e4", "m e7e5", "t", "t", "pv"}, []string{"info string took back e7e5", "info string took back e2e4", "pv e2e4 e7e5"}},
		{"takeback at start", []string{"t"}, []string{"info string no move to take back"}},
		{"bad depth", []string{"perft x"}, []string{"info string invalid depth: x"}},
		{"unknown", []string{"xyzzy"}, []string{"info string Unknown command: xyzzy"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, _ := runScript(t, newTestEngine(), tc.commands...)
			for _, want := range tc.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestSetOption(t *testing.T) {
	eng := newTestEngine()

	var changed []string
	var out bytes.Buffer
	u := New(eng, strings.NewReader(strings.Join([]string{
		"position startpos moves e2e4",
		"setoption name Seed value 42",
		"setoption name Positional value false",
		"setoption name NullMove value false",
		"setoption name Hash value 8",
		"setoption name Hash value lots",
		"setoption name Colour value red",
	}, "\n")), &out)
	u.OnOption = func(name, value string) { changed = append(changed, name+"="+value) }

	if err := u.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"Seed=42", "Positional=false", "NullMove=false", "Hash=8"}
	if strings.Join(changed, ",") != strings.Join(want, ",") {
		t.Errorf("OnOption calls = %v, want %v", changed, want)
	}

	opts := eng.Options()
	if opts.Positional || opts.UseNullMove {
		t.Errorf("options not applied: %+v", opts)
	}

	// The current position is rehashed with the new seed.
	ref := board.StartPosition(board.NewZobrist(42))
	e4, _ := ref.ParseMove("e2e4")
	ref.Apply(e4)
	if u.Position().Fingerprint() != ref.Fingerprint() {
		t.Error("position not rehashed after Seed change")
	}

	for _, msg := range []string{`invalid Hash value: "lots"`, "unknown option: Colour"} {
		if !strings.Contains(out.String(), msg) {
			t.Errorf("output missing %q:\n%s", msg, out.String())
		}
	}
}

func TestParseLimits(t *testing.T) {
	tests := []struct {
		args string
		want engine.UCILimits
	}{
		{"depth 5", engine.UCILimits{Depth: 5}},
		{"nodes 10000 movetime 250", engine.UCILimits{Nodes: 10000, MoveTime: 250 * time.Millisecond}},
		{"infinite", engine.UCILimits{Infinite: true}},
		{
			"wtime 60000 btime 30000 winc 1000 binc 500 movestogo 20",
			engine.UCILimits{
				Time:      [2]time.Duration{60 * time.Second, 30 * time.Second},
				Inc:       [2]time.Duration{time.Second, 500 * time.Millisecond},
				MovesToGo: 20,
			},
		},
		{"ponder depth 3", engine.UCILimits{Depth: 3}},
		{"depth", engine.UCILimits{}},
	}

	for _, tc := range tests {
		if got := parseLimits(strings.Fields(tc.args)); got != tc.want {
			t.Errorf("parseLimits(%q) = %+v, want %+v", tc.args, got, tc.want)
		}
	}
}

func TestFormatScore(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{35, "cp 35"},
		{-120, "cp -120"},
		{engine.MateScore - 1, "mate 1"},
		{engine.MateScore - 4, "mate 2"},
		{-engine.MateScore + 2, "mate -1"},
	}
	for _, tc := range tests {
		if got := formatScore(tc.score); got != tc.want {
			t.Errorf("formatScore(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}
