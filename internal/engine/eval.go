// Package engine implements the chess AI search engine.
package engine

import (
	"github.com/hailam/redtail/internal/board"
)

// Evaluation constants
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
	KingValue   = 20000
)

// Piece values array for quick lookup
var pieceValues = [7]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, KingValue, 0}

// Piece-Square Tables (PST) for positional evaluation
// Values are from White's perspective, laid out a8..h1; mirrored for Black

// Pawn PST - encourages central control and advancement
var pawnPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

// Knight PST - encourages central positioning
var knightPST = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

// Bishop PST - encourages central diagonals
var bishopPST = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

// Rook PST - encourages 7th rank and open files
var rookPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, 10, 10, 10, 10, 5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	0, 0, 0, 5, 5, 0, 0, 0,
}

// Queen PST - slight central preference
var queenPST = [64]int{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-5, 0, 5, 5, 5, 5, 0, -5,
	0, 0, 5, 5, 5, 5, 0, -5,
	-10, 5, 5, 5, 5, 5, 0, -10,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

// King PST (middlegame) - encourages staying behind the pawns
var kingMidgamePST = [64]int{
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	20, 20, 0, 0, 0, 0, 20, 20,
	20, 30, 10, 0, 0, 10, 30, 20,
}

// King PST (endgame) - king should be active
var kingEndgamePST = [64]int{
	-50, -40, -30, -20, -20, -30, -40, -50,
	-30, -20, -10, 0, 0, -10, -20, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -30, 0, 0, 0, 0, -30, -30,
	-50, -30, -30, -30, -30, -30, -30, -50,
}

// psts is indexed by [phase][PieceType]; phase 1 swaps in the endgame king table.
var psts = [2][6]*[64]int{
	{&pawnPST, &knightPST, &bishopPST, &rookPST, &queenPST, &kingMidgamePST},
	{&pawnPST, &knightPST, &bishopPST, &rookPST, &queenPST, &kingEndgamePST},
}

// Evaluator scores positions statically.
type Evaluator struct {
	// Positional adds piece-square bonuses on top of material.
	Positional bool
}

// NewEvaluator returns an evaluator with positional scoring switched as given.
func NewEvaluator(positional bool) Evaluator {
	return Evaluator{Positional: positional}
}

// Evaluate returns the static evaluation from the side to move's perspective.
func (e Evaluator) Evaluate(pos *board.Position) int {
	phase := 0
	if e.Positional && IsEndgame(pos) {
		phase = 1
	}

	score := 0
	for sq := board.Square(0); sq < board.BoardSize; sq++ {
		if !sq.OnBoard() {
			sq += 7
			continue
		}

		piece := pos.PieceAt(sq)
		if !piece.IsPiece() {
			continue
		}

		pt := piece.Type()
		v := pieceValues[pt]
		if e.Positional {
			if piece.Color() == board.White {
				v += psts[phase][pt][sq.Index64()]
			} else {
				v += psts[phase][pt][sq.Mirror()]
			}
		}

		if piece.Color() == board.White {
			score += v
		} else {
			score -= v
		}
	}

	if pos.SideToMove() == board.Black {
		return -score
	}
	return score
}

// EvaluateMaterial returns just the material balance from the side to move's
// perspective, kings excluded.
func EvaluateMaterial(pos *board.Position) int {
	score := pos.Material()
	if pos.SideToMove() == board.Black {
		return -score
	}
	return score
}

// IsEndgame returns true if the position is in the endgame phase.
func IsEndgame(pos *board.Position) bool {
	// Simple heuristic: endgame if both sides have no queens
	// or total minor and major material is low
	var queens, pieces int
	for sq := board.Square(0); sq < board.BoardSize; sq++ {
		switch pos.PieceAt(sq).Type() {
		case board.Queen:
			queens++
		case board.Knight, board.Bishop, board.Rook:
			pieces++
		}
	}

	if queens == 0 {
		return true
	}
	return queens <= 1 && pieces <= 4
}
