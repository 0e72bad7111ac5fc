package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/hailam/redtail/internal/board"
)

func newTestEngine() *Engine {
	cfg := DefaultConfig()
	cfg.HashMB = 4
	cfg.PVHashMB = 1
	return NewEngine(cfg)
}

func mustPosition(t *testing.T, eng *Engine, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParsePosition(fen, eng.Keys())
	if err != nil {
		t.Fatalf("Failed to parse FEN %q: %v", fen, err)
	}
	return pos
}

func TestSearchBasic(t *testing.T) {
	eng := newTestEngine()
	pos := board.StartPosition(eng.Keys())

	result, err := eng.Search(pos, &SearchInfo{Depth: 3})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.BestMove == board.NoMove {
		t.Fatal("Search returned NoMove for starting position")
	}
	if !pos.MoveExists(result.BestMove) {
		t.Errorf("best move %v is not legal", result.BestMove)
	}
	if result.Depth != 3 {
		t.Errorf("Depth = %d, want 3", result.Depth)
	}
	t.Logf("Best move: %s score %d nodes %d pv %s",
		result.BestMove, result.Score, result.Nodes, MovesString(result.PV))
}

func TestSearchOnePlyPrefersDevelopment(t *testing.T) {
	eng := newTestEngine()
	pos := board.StartPosition(eng.Keys())

	result, err := eng.Search(pos, &SearchInfo{Depth: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	m := result.BestMove
	central := m.Piece == board.WhitePawn && (m.From.File() == 3 || m.From.File() == 4)
	if m.Piece != board.WhiteKnight && !central {
		t.Errorf("1-ply best move = %v, want a knight or central pawn move", m)
	}
	if m.Piece == board.WhiteRook {
		t.Errorf("1-ply best move is a rook move: %v", m)
	}
}

func TestSearchRestoresPosition(t *testing.T) {
	eng := newTestEngine()
	pos := mustPosition(t, eng, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	fen := pos.ToFEN()
	hash := pos.Fingerprint()

	if _, err := eng.Search(pos, &SearchInfo{Depth: 3}); err != nil {
		t.Fatalf("Search: %v", err)
	}

	if pos.ToFEN() != fen || pos.Fingerprint() != hash || pos.Ply() != 0 {
		t.Errorf("position changed by search: %s", pos.ToFEN())
	}
}

func TestSearchFindsMateInOne(t *testing.T) {
	eng := newTestEngine()
	pos := mustPosition(t, eng, "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1")

	result, err := eng.Search(pos, &SearchInfo{Depth: 4})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.BestMove.String() != "a1a8" {
		t.Errorf("BestMove = %v, want a1a8", result.BestMove)
	}
	if !IsMateScore(result.Score) || result.Score < 0 {
		t.Errorf("Score = %d, want a winning mate score", result.Score)
	}
	if got := MateIn(result.Score); got != 1 {
		t.Errorf("MateIn = %d, want 1", got)
	}
}

func TestSearchWinsHangingQueen(t *testing.T) {
	eng := newTestEngine()
	pos := mustPosition(t, eng, "4k3/8/8/3q4/8/8/3R4/4K3 w - - 0 1")

	result, err := eng.Search(pos, &SearchInfo{Depth: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.BestMove.String() != "d2d5" {
		t.Errorf("BestMove = %v, want d2d5", result.BestMove)
	}
	if result.Score < BishopValue {
		t.Errorf("Score = %d, want at least %d", result.Score, BishopValue)
	}
}

func TestSearchNoLegalMoves(t *testing.T) {
	eng := newTestEngine()

	for _, fen := range []string{
		"R6k/6pp/8/8/8/8/8/K7 b - - 0 1", // checkmate
		"7k/5Q2/8/8/8/8/8/K7 b - - 0 1",  // stalemate
	} {
		pos := mustPosition(t, eng, fen)
		_, err := eng.Search(pos, &SearchInfo{Depth: 2})
		if !errors.Is(err, ErrNoLegalMoves) {
			t.Errorf("Search(%q) error = %v, want ErrNoLegalMoves", fen, err)
		}
	}
}

func TestSearchPastDeadline(t *testing.T) {
	eng := newTestEngine()
	pos := board.StartPosition(eng.Keys())

	info := &SearchInfo{Deadline: time.Now().Add(-time.Second)}
	start := time.Now()
	result, err := eng.Search(pos, info)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if !info.Stopped {
		t.Error("search with a past deadline should report Stopped")
	}
	if info.Nodes > 2*(checkInterval+1) {
		t.Errorf("searched %d nodes past the deadline", info.Nodes)
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("search took %v", time.Since(start))
	}
	if !pos.MoveExists(result.BestMove) {
		t.Errorf("fallback move %v is not legal", result.BestMove)
	}
}

func TestSearchNodeLimit(t *testing.T) {
	eng := newTestEngine()
	pos := board.StartPosition(eng.Keys())

	info := &SearchInfo{NodeLimit: 10000}
	result, err := eng.Search(pos, info)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if info.Nodes > info.NodeLimit+checkInterval+1 {
		t.Errorf("Nodes = %d, limit %d", info.Nodes, info.NodeLimit)
	}
	if result.Depth < 1 {
		t.Errorf("expected at least one completed iteration, got depth %d", result.Depth)
	}
}

func TestStop(t *testing.T) {
	eng := newTestEngine()
	pos := board.StartPosition(eng.Keys())

	timer := time.AfterFunc(100*time.Millisecond, eng.Stop)
	defer timer.Stop()

	done := make(chan SearchResult, 1)
	go func() {
		result, _ := eng.Search(pos, &SearchInfo{})
		done <- result
	}()

	select {
	case result := <-done:
		if result.BestMove == board.NoMove {
			t.Error("stopped search returned NoMove")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("search did not stop")
	}
}

func TestOnInfoReportsEachIteration(t *testing.T) {
	eng := newTestEngine()
	pos := board.StartPosition(eng.Keys())

	var reports []Report
	eng.OnInfo = func(r Report) { reports = append(reports, r) }

	if _, err := eng.Search(pos, &SearchInfo{Depth: 3}); err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(reports) != 3 {
		t.Fatalf("got %d reports, want 3", len(reports))
	}
	for i, r := range reports {
		if r.Depth != i+1 {
			t.Errorf("report %d depth = %d", i, r.Depth)
		}
		if len(r.PV) == 0 || r.PV[0] != r.BestMove {
			t.Errorf("report %d pv %q does not start with %v", i, r.PVString(), r.BestMove)
		}
		if i > 0 && r.Nodes < reports[i-1].Nodes {
			t.Errorf("node count went backwards at depth %d", r.Depth)
		}
	}
}

func TestPVLineRestoresPosition(t *testing.T) {
	eng := newTestEngine()
	pos := board.StartPosition(eng.Keys())

	result, err := eng.Search(pos, &SearchInfo{Depth: 4})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	hash := pos.Fingerprint()
	line := eng.PVLine(pos, 10)
	if pos.Fingerprint() != hash || pos.Ply() != 0 {
		t.Fatal("PVLine left the position modified")
	}
	if len(line) == 0 || line[0] != result.BestMove {
		t.Fatalf("PVLine = %s, want it to start with %v", MovesString(line), result.BestMove)
	}

	// Every move in the line is legal where it is played.
	for _, m := range line {
		if !pos.MoveExists(m) {
			t.Fatalf("PV move %v is illegal", m)
		}
		pos.Apply(m)
	}
}

func TestRecordMoveBuildsLine(t *testing.T) {
	eng := newTestEngine()
	pos := board.StartPosition(eng.Keys())

	for _, ref := range []string{"e2e4", "e7e5", "g1f3"} {
		m, err := pos.ParseMove(ref)
		if err != nil {
			t.Fatalf("ParseMove(%s): %v", ref, err)
		}
		eng.RecordMove(pos, m)
		pos.Apply(m)
	}
	for range 3 {
		pos.Undo()
	}

	if got := MovesString(eng.PVLine(pos, 10)); got != "e2e4 e7e5 g1f3" {
		t.Errorf("PVLine = %q, want %q", got, "e2e4 e7e5 g1f3")
	}
}

func TestDivideMatchesPerft(t *testing.T) {
	eng := newTestEngine()
	pos := board.StartPosition(eng.Keys())

	entries, err := eng.Divide(pos, 3)
	if err != nil {
		t.Fatalf("Divide: %v", err)
	}
	if len(entries) != 20 {
		t.Fatalf("Divide returned %d entries, want 20", len(entries))
	}

	var total uint64
	for _, e := range entries {
		total += e.Nodes
	}
	if total != 8902 {
		t.Errorf("Divide total = %d, want 8902", total)
	}
	if got := eng.Perft(pos, 3); got != total {
		t.Errorf("Perft(3) = %d, Divide total = %d", got, total)
	}

	if _, err := eng.Divide(pos, 0); err == nil {
		t.Error("Divide(0) should fail")
	}
}

func TestSetSeedChangesKeys(t *testing.T) {
	eng := newTestEngine()
	before := board.StartPosition(eng.Keys()).Fingerprint()

	eng.SetSeed(12345)
	after := board.StartPosition(eng.Keys()).Fingerprint()
	if before == after {
		t.Error("new seed should change fingerprints")
	}
}

func TestScoreToString(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, "0.00"},
		{150, "1.50"},
		{-35, "-0.35"},
		{MateScore - 1, "Mate in 1"},
		{MateScore - 3, "Mate in 2"},
		{-MateScore + 2, "Mated in 1"},
	}

	for _, tc := range tests {
		if got := ScoreToString(tc.score); got != tc.want {
			t.Errorf("ScoreToString(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}
