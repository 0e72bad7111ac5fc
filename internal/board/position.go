package board

import (
	"fmt"
	"strings"
)

// undoRecord is what Apply pushes so that Undo can restore the board exactly.
// moved and captured are read from the board at apply time rather than taken
// from the move, so a move built by an external caller cannot desync undo.
type undoRecord struct {
	move     Move
	moved    Piece
	captured Piece
	null     bool
}

// Position represents a chess position on the 0x88 board.
type Position struct {
	squares    [BoardSize]Piece
	sideToMove Color

	// King positions (cached for check detection)
	kingSquare [2]Square

	history []undoRecord

	// Carried for FEN round trips only; the core never interprets them.
	castling  string
	enPassant string

	halfMoveClock  int
	fullMoveNumber int

	keys *Zobrist
}

// NewPosition builds a position from a parsed snapshot.
// keys may be nil, in which case a table built from DefaultSeed is used.
func NewPosition(snap Snapshot, keys *Zobrist) *Position {
	if keys == nil {
		keys = NewZobrist(DefaultSeed)
	}

	p := &Position{keys: keys}
	p.Clear()

	for i, piece := range snap.Squares {
		sq := FromIndex64(i)
		p.squares[sq] = piece
		if piece.Type() == King {
			p.kingSquare[piece.Color()] = sq
		}
	}

	p.sideToMove = snap.SideToMove
	p.castling = snap.Castling
	p.enPassant = snap.EnPassant
	p.halfMoveClock = snap.HalfMoveClock
	p.fullMoveNumber = snap.FullMoveNumber

	return p
}

// StartPosition returns the standard initial position.
func StartPosition(keys *Zobrist) *Position {
	snap, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return NewPosition(snap, keys)
}

// Clear resets the position to an empty board with White to move.
func (p *Position) Clear() {
	for i := range p.squares {
		if Square(i).OnBoard() {
			p.squares[i] = Empty
		} else {
			p.squares[i] = OffBoard
		}
	}
	p.sideToMove = White
	p.kingSquare = [2]Square{NoSquare, NoSquare}
	p.history = p.history[:0]
	p.castling = "-"
	p.enPassant = "-"
	p.halfMoveClock = 0
	p.fullMoveNumber = 1
}

// Clone creates a deep copy of the position sharing the same Zobrist table.
func (p *Position) Clone() *Position {
	newPos := *p
	newPos.history = make([]undoRecord, len(p.history), len(p.history)+64)
	copy(newPos.history, p.history)
	return &newPos
}

// Keys returns the Zobrist table used by the position.
func (p *Position) Keys() *Zobrist {
	return p.keys
}

// PieceAt returns the piece at the given square.
func (p *Position) PieceAt(sq Square) Piece {
	if !sq.OnBoard() {
		return OffBoard
	}
	return p.squares[sq]
}

// SideToMove returns the color to move.
func (p *Position) SideToMove() Color {
	return p.sideToMove
}

// KingSquare returns the cached king square of c, or NoSquare.
func (p *Position) KingSquare(c Color) Square {
	return p.kingSquare[c]
}

// Ply returns the number of moves on the undo stack.
func (p *Position) Ply() int {
	return len(p.history)
}

// Castling returns the opaque castling-rights field.
func (p *Position) Castling() string {
	return p.castling
}

// EnPassant returns the opaque en-passant field.
func (p *Position) EnPassant() string {
	return p.enPassant
}

// Apply makes a move: the moving piece lands on the destination, the origin is
// cleared, the king cache follows the king, and the side to move flips.
// A pawn reaching its last rank becomes a Queen.
func (p *Position) Apply(m Move) {
	moved := p.squares[m.From]
	rec := undoRecord{
		move:     m,
		moved:    moved,
		captured: p.squares[m.To],
	}
	p.history = append(p.history, rec)

	result := moved
	if isPromotion(moved, m.To) {
		result = NewPiece(Queen, moved.Color())
	}

	p.squares[m.To] = result
	p.squares[m.From] = Empty

	if moved.Type() == King {
		p.kingSquare[moved.Color()] = m.To
	}

	p.sideToMove = p.sideToMove.Other()
}

// MakeNullMove passes the turn without moving a piece.
// Used for null move pruning in search; undone with Undo.
func (p *Position) MakeNullMove() {
	p.history = append(p.history, undoRecord{null: true})
	p.sideToMove = p.sideToMove.Other()
}

// Undo reverts the last Apply or MakeNullMove.
func (p *Position) Undo() {
	n := len(p.history)
	if n == 0 {
		return
	}
	rec := p.history[n-1]
	p.history = p.history[:n-1]
	p.sideToMove = p.sideToMove.Other()

	if rec.null {
		return
	}

	m := rec.move
	p.squares[m.From] = rec.moved
	p.squares[m.To] = rec.captured

	if rec.moved.Type() == King {
		p.kingSquare[rec.moved.Color()] = m.From
	}
}

// LastMove returns the most recently applied move, or NoMove.
func (p *Position) LastMove() Move {
	if len(p.history) == 0 {
		return NoMove
	}
	return p.history[len(p.history)-1].move
}

// Fingerprint folds the Zobrist keys over every occupied square and the
// side to move. Recomputed from scratch on each call.
func (p *Position) Fingerprint() uint64 {
	var hash uint64

	for sq := Square(0); sq < BoardSize; sq++ {
		if !sq.OnBoard() {
			sq += 7
			continue
		}
		if piece := p.squares[sq]; piece.IsPiece() {
			hash ^= p.keys.Piece(piece, sq)
		}
	}

	if p.sideToMove == White {
		hash ^= p.keys.WhiteToMove()
	}

	return hash
}

// IsInCheck returns true if the king of color c is attacked.
func (p *Position) IsInCheck(c Color) bool {
	return p.IsAttacked(p.kingSquare[c], c.Other())
}

// InCheck returns true if the side to move is in check.
func (p *Position) InCheck() bool {
	return p.IsInCheck(p.sideToMove)
}

// OpponentInCheck returns true if the side that just moved left the other king attacked.
func (p *Position) OpponentInCheck() bool {
	return p.IsInCheck(p.sideToMove.Other())
}

// Material returns the material balance (positive favors white).
func (p *Position) Material() int {
	score := 0
	for sq := Square(0); sq < BoardSize; sq++ {
		piece := p.PieceAt(sq)
		if !piece.IsPiece() || piece.Type() == King {
			continue
		}
		if piece.Color() == White {
			score += piece.Value()
		} else {
			score -= piece.Value()
		}
	}
	return score
}

// String returns a visual representation of the position: the pieces, a map
// of squares White attacks, and a few derived facts.
func (p *Position) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	for row := 0; row < 8; row++ {
		fmt.Fprintf(&sb, "%d  ", 8-row)
		for file := 0; file < 8; file++ {
			sb.WriteString(p.squares[row*16+file].String())
			sb.WriteByte(' ')
		}
		sb.WriteString("   ")
		for file := 0; file < 8; file++ {
			if p.IsAttacked(Square(row*16+file), White) {
				sb.WriteString("* ")
			} else {
				sb.WriteString("- ")
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("\n   a b c d e f g h\n\n")
	fmt.Fprintf(&sb, "Side to move: %s\n", p.sideToMove)
	fmt.Fprintf(&sb, "Castling: %s\n", p.castling)
	fmt.Fprintf(&sb, "En passant: %s\n", p.enPassant)
	fmt.Fprintf(&sb, "White in check: %v (%s)\n", p.IsInCheck(White), p.kingSquare[White])
	fmt.Fprintf(&sb, "Black in check: %v (%s)\n", p.IsInCheck(Black), p.kingSquare[Black])
	fmt.Fprintf(&sb, "Hash: %016x\n", p.Fingerprint())
	return sb.String()
}
