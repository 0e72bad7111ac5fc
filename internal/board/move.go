package board

import (
	"fmt"
	"sort"
)

// MoveFlag classifies a move.
type MoveFlag uint8

// Move flags
const (
	FlagQuiet     MoveFlag = 0
	FlagCapture   MoveFlag = 1 << 0
	FlagPromotion MoveFlag = 1 << 1
)

// Move is a structured move record. Promotions always produce a Queen.
type Move struct {
	From     Square
	To       Square
	Piece    Piece
	Captured Piece
	Flag     MoveFlag
}

// NoMove represents an invalid or null move.
var NoMove = Move{}

// IsNull reports whether m is the null move.
func (m Move) IsNull() bool {
	return m.From == m.To
}

// IsCapture returns true if this move captures a piece.
func (m Move) IsCapture() bool {
	return m.Captured.IsPiece()
}

// IsPromotion returns true if this move promotes a pawn.
func (m Move) IsPromotion() bool {
	return m.Flag&FlagPromotion != 0
}

// Encode packs the move as from<<20 | to<<12 | piece<<8 | captured<<4 | flag.
func (m Move) Encode() uint32 {
	return uint32(m.From)<<20 | uint32(m.To)<<12 | uint32(m.Piece&0xf)<<8 |
		uint32(m.Captured&0xf)<<4 | uint32(m.Flag&0xf)
}

// DecodeMove unpacks a value produced by Encode.
func DecodeMove(v uint32) Move {
	return Move{
		From:     Square((v >> 20) & 0xff),
		To:       Square((v >> 12) & 0xff),
		Piece:    Piece((v >> 8) & 0xf),
		Captured: Piece((v >> 4) & 0xf),
		Flag:     MoveFlag(v & 0xf),
	}
}

// String returns the coordinate reference of the move (e.g. "e2e4", "e7e8q").
func (m Move) String() string {
	if m.IsNull() {
		return "0000"
	}

	s := m.From.String() + m.To.String()
	if m.IsPromotion() {
		s += "q"
	}
	return s
}

// ParseMove builds a move from a coordinate string against the current board.
// The result still has to be validated with MoveExists before it is applied.
// Any promotion suffix is accepted and treated as a Queen.
func (p *Position) ParseMove(s string) (Move, error) {
	if len(s) < 4 || len(s) > 5 {
		return NoMove, fmt.Errorf("invalid move string: %s", s)
	}

	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, err
	}

	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, err
	}

	piece := p.squares[from]
	if !piece.IsPiece() {
		return NoMove, fmt.Errorf("no piece at %s", from)
	}

	return newMove(from, to, piece, p.squares[to]), nil
}

// newMove fills in flags derived from the pieces involved.
func newMove(from, to Square, piece, captured Piece) Move {
	m := Move{From: from, To: to, Piece: piece, Captured: captured}
	if captured.IsPiece() {
		m.Flag |= FlagCapture
	}
	if isPromotion(piece, to) {
		m.Flag |= FlagPromotion
	}
	return m
}

// isPromotion reports whether piece landing on to reaches its last rank.
func isPromotion(piece Piece, to Square) bool {
	switch piece {
	case WhitePawn:
		return to.Row() == 0
	case BlackPawn:
		return to.Row() == 7
	}
	return false
}

// ScoredMove pairs a move with its ordering score.
type ScoredMove struct {
	Move  Move
	Score int
}

// MoveList is a fixed-size list of moves to avoid allocations.
type MoveList struct {
	moves [256]ScoredMove
	count int
}

// NewMoveList creates an empty move list.
func NewMoveList() *MoveList {
	return &MoveList{}
}

// Add adds a move with its ordering score.
func (ml *MoveList) Add(m Move, score int) {
	ml.moves[ml.count] = ScoredMove{Move: m, Score: score}
	ml.count++
}

// Len returns the number of moves in the list.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i].Move
}

// Score returns the ordering score at index i.
func (ml *MoveList) Score(i int) int {
	return ml.moves[i].Score
}

// Swap swaps two moves in the list.
func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
}

// Less orders by descending score.
func (ml *MoveList) Less(i, j int) bool {
	return ml.moves[i].Score > ml.moves[j].Score
}

// Sort orders the list by descending score, keeping generation order on ties.
func (ml *MoveList) Sort() {
	sort.Stable(ml)
}

// Contains returns true if the list contains the move.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i].Move == m {
			return true
		}
	}
	return false
}

// Slice returns the moves as a slice.
func (ml *MoveList) Slice() []Move {
	out := make([]Move, ml.count)
	for i := 0; i < ml.count; i++ {
		out[i] = ml.moves[i].Move
	}
	return out
}
