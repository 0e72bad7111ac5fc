package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Snapshot is a parsed FEN record. Squares are in FEN order, a8 first.
// Castling and EnPassant are kept verbatim; nothing in the engine acts on them.
type Snapshot struct {
	Squares        [64]Piece
	SideToMove     Color
	Castling       string
	EnPassant      string
	HalfMoveClock  int
	FullMoveNumber int
}

// ParseFEN parses a FEN string into a Snapshot.
func ParseFEN(fen string) (Snapshot, error) {
	snap := Snapshot{
		Castling:       "-",
		EnPassant:      "-",
		FullMoveNumber: 1,
	}

	parts := strings.Fields(fen)
	if len(parts) < 2 {
		return snap, fmt.Errorf("invalid FEN: need at least 2 fields, got %d", len(parts))
	}

	// Parse piece placement (field 0)
	if err := parsePiecePlacement(&snap, parts[0]); err != nil {
		return snap, err
	}

	// Parse side to move (field 1)
	switch parts[1] {
	case "w":
		snap.SideToMove = White
	case "b":
		snap.SideToMove = Black
	default:
		return snap, fmt.Errorf("invalid side to move: %s", parts[1])
	}

	// Castling rights and en passant square (fields 2, 3) are carried as-is.
	if len(parts) > 2 {
		if err := validateCastling(parts[2]); err != nil {
			return snap, err
		}
		snap.Castling = parts[2]
	}
	if len(parts) > 3 {
		if parts[3] != "-" {
			if _, err := ParseSquare(parts[3]); err != nil {
				return snap, fmt.Errorf("invalid en passant square: %w", err)
			}
		}
		snap.EnPassant = parts[3]
	}

	// Parse half-move clock (field 4, optional)
	if len(parts) > 4 {
		hmc, err := strconv.Atoi(parts[4])
		if err != nil {
			return snap, fmt.Errorf("invalid half-move clock: %s", parts[4])
		}
		snap.HalfMoveClock = hmc
	}

	// Parse full-move number (field 5, optional)
	if len(parts) > 5 {
		fmn, err := strconv.Atoi(parts[5])
		if err != nil {
			return snap, fmt.Errorf("invalid full-move number: %s", parts[5])
		}
		snap.FullMoveNumber = fmn
	}

	return snap, nil
}

// ParsePosition parses a FEN string straight into a Position.
func ParsePosition(fen string, keys *Zobrist) (*Position, error) {
	snap, err := ParseFEN(fen)
	if err != nil {
		return nil, err
	}
	return NewPosition(snap, keys), nil
}

// parsePiecePlacement parses the piece placement section of a FEN string.
func parsePiecePlacement(snap *Snapshot, placement string) error {
	for i := range snap.Squares {
		snap.Squares[i] = Empty
	}

	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("invalid piece placement: need 8 ranks, got %d", len(ranks))
	}

	for row, rankStr := range ranks {
		file := 0

		for _, c := range rankStr {
			if file > 7 {
				return fmt.Errorf("too many squares in rank %d", 8-row)
			}

			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}

			piece := PieceFromChar(byte(c))
			if piece == Empty {
				return fmt.Errorf("invalid piece character: %c", c)
			}
			snap.Squares[row*8+file] = piece
			file++
		}

		if file != 8 {
			return fmt.Errorf("invalid number of squares in rank %d: got %d", 8-row, file)
		}
	}

	return nil
}

// validateCastling checks the castling field's alphabet.
func validateCastling(castling string) error {
	if castling == "-" {
		return nil
	}
	for _, c := range castling {
		switch c {
		case 'K', 'Q', 'k', 'q':
		default:
			return fmt.Errorf("invalid castling character: %c", c)
		}
	}
	return nil
}

// Snapshot captures the current board in FEN order.
func (p *Position) Snapshot() Snapshot {
	snap := Snapshot{
		SideToMove:     p.sideToMove,
		Castling:       p.castling,
		EnPassant:      p.enPassant,
		HalfMoveClock:  p.halfMoveClock,
		FullMoveNumber: p.fullMoveNumber,
	}
	for i := range snap.Squares {
		snap.Squares[i] = p.squares[FromIndex64(i)]
	}
	return snap
}

// Reset replaces the board with snap and empties the undo stack.
func (p *Position) Reset(snap Snapshot) {
	keys := p.keys
	*p = *NewPosition(snap, keys)
}

// ToFEN returns the FEN representation of the position.
func (p *Position) ToFEN() string {
	var sb strings.Builder

	// Piece placement
	for row := 0; row < 8; row++ {
		empty := 0
		for file := 0; file < 8; file++ {
			piece := p.squares[row*16+file]
			if piece == Empty {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(piece.String())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if row < 7 {
			sb.WriteByte('/')
		}
	}

	// Side to move
	sb.WriteByte(' ')
	if p.sideToMove == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}

	sb.WriteByte(' ')
	sb.WriteString(p.castling)
	sb.WriteByte(' ')
	sb.WriteString(p.enPassant)

	// Half-move clock and full-move number
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.halfMoveClock))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.fullMoveNumber))

	return sb.String()
}
