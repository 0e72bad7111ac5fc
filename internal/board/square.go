// Package board implements chess board representation on a 0x88 mailbox.
package board

import "fmt"

// Square is an index into the 128-cell 0x88 board.
// Index 0 is a8, index 0x77 is h1. Each rank occupies 16 cells; the right
// half of every rank is a guard area that fails the 0x88 test.
type Square uint8

// BoardSize is the number of cells in the padded board.
const BoardSize = 128

// NoSquare is an off-board sentinel.
const NoSquare Square = 0x88

// Ray offsets on the 0x88 board.
const (
	North = -16
	South = 16
	East  = 1
	West  = -1
)

// Named squares used by tests and the protocol layer.
const (
	A8 Square = 0x00
	B8 Square = 0x01
	C8 Square = 0x02
	D8 Square = 0x03
	E8 Square = 0x04
	F8 Square = 0x05
	G8 Square = 0x06
	H8 Square = 0x07
	A7 Square = 0x10
	D7 Square = 0x13
	E7 Square = 0x14
	H7 Square = 0x17
	E5 Square = 0x34
	D5 Square = 0x33
	D4 Square = 0x43
	E4 Square = 0x44
	C3 Square = 0x52
	F3 Square = 0x55
	A2 Square = 0x60
	D2 Square = 0x63
	E2 Square = 0x64
	H2 Square = 0x67
	A1 Square = 0x70
	B1 Square = 0x71
	E1 Square = 0x74
	G1 Square = 0x76
	H1 Square = 0x77
)

// OnBoard reports whether the square lies on the playable 8x8 area.
func (sq Square) OnBoard() bool {
	return sq&0x88 == 0
}

// offset returns sq+delta and whether it stays on the board.
// Negative intermediate values fail the 0x88 test the same way as
// values past the last rank.
func (sq Square) offset(delta int) (Square, bool) {
	to := int(sq) + delta
	if to&0x88 != 0 || to < 0 || to >= BoardSize {
		return NoSquare, false
	}
	return Square(to), true
}

// File returns the file of the square (0=a, 7=h).
func (sq Square) File() int {
	return int(sq) & 7
}

// Row returns the board row counted from the top (0 = rank 8).
func (sq Square) Row() int {
	return int(sq) >> 4
}

// Rank returns the rank number minus one (0 = rank 1, 7 = rank 8).
func (sq Square) Rank() int {
	return 7 - sq.Row()
}

// Index64 returns the square as 0..63 in row-major order from a8.
func (sq Square) Index64() int {
	return sq.Row()*8 + sq.File()
}

// Mirror returns the vertically mirrored 64-square index (for Black tables).
func (sq Square) Mirror() int {
	return (7-sq.Row())*8 + sq.File()
}

// String returns the algebraic reference for the square (e.g. "e4").
func (sq Square) String() string {
	if !sq.OnBoard() {
		return "-"
	}
	return fmt.Sprintf("%c%c", 'a'+sq.File(), '1'+sq.Rank())
}

// NewSquare creates a square from file and rank (0-indexed, rank 0 = rank 1).
func NewSquare(file, rank int) Square {
	return Square((7-rank)*16 + file)
}

// FromIndex64 converts a 0..63 index in FEN order (a8 first) to a 0x88 square.
func FromIndex64(i int) Square {
	return Square((i/8)*16 + i%8)
}

// ParseSquare parses algebraic notation (e.g. "e4") into a Square.
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return NoSquare, fmt.Errorf("invalid square: %s", s)
	}

	file := int(s[0]) - 'a'
	rank := int(s[1]) - '1'

	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoSquare, fmt.Errorf("invalid square: %s", s)
	}

	return NewSquare(file, rank), nil
}

// SquareRef is the protocol reference for a square.
func SquareRef(sq Square) string {
	return sq.String()
}
