package board

// Color represents the color of a piece or player.
type Color uint8

const (
	White Color = iota
	Black
	NoColor Color = 2
)

// Other returns the opposite color.
func (c Color) Other() Color {
	return c ^ 1
}

// String returns the color name.
func (c Color) String() string {
	switch c {
	case White:
		return "White"
	case Black:
		return "Black"
	default:
		return "NoColor"
	}
}

// PieceType represents the type of a chess piece.
type PieceType uint8

const (
	Pawn PieceType = iota
	Knight
	Bishop
	Rook
	Queen
	King
	NoPieceType PieceType = 6
)

// String returns the piece type name.
func (pt PieceType) String() string {
	switch pt {
	case Pawn:
		return "Pawn"
	case Knight:
		return "Knight"
	case Bishop:
		return "Bishop"
	case Rook:
		return "Rook"
	case Queen:
		return "Queen"
	case King:
		return "King"
	default:
		return "None"
	}
}

// Piece combines PieceType and Color into a single cell value.
// Encoded as pieceType + color*6, followed by the Empty and OffBoard sentinels.
type Piece uint8

const (
	WhitePawn   Piece = Piece(Pawn) + Piece(White)*6
	WhiteKnight Piece = Piece(Knight) + Piece(White)*6
	WhiteBishop Piece = Piece(Bishop) + Piece(White)*6
	WhiteRook   Piece = Piece(Rook) + Piece(White)*6
	WhiteQueen  Piece = Piece(Queen) + Piece(White)*6
	WhiteKing   Piece = Piece(King) + Piece(White)*6
	BlackPawn   Piece = Piece(Pawn) + Piece(Black)*6
	BlackKnight Piece = Piece(Knight) + Piece(Black)*6
	BlackBishop Piece = Piece(Bishop) + Piece(Black)*6
	BlackRook   Piece = Piece(Rook) + Piece(Black)*6
	BlackQueen  Piece = Piece(Queen) + Piece(Black)*6
	BlackKing   Piece = Piece(King) + Piece(Black)*6
	Empty       Piece = 12
	OffBoard    Piece = 13
)

// NewPiece creates a Piece from PieceType and Color.
func NewPiece(pt PieceType, c Color) Piece {
	if pt >= NoPieceType || c >= NoColor {
		return Empty
	}
	return Piece(pt) + Piece(c)*6
}

// IsPiece reports whether p is one of the 12 real pieces.
func (p Piece) IsPiece() bool {
	return p < Empty
}

// Type returns the PieceType of the piece.
func (p Piece) Type() PieceType {
	if !p.IsPiece() {
		return NoPieceType
	}
	return PieceType(p % 6)
}

// Color returns the Color of the piece.
func (p Piece) Color() Color {
	if !p.IsPiece() {
		return NoColor
	}
	return Color(p / 6)
}

// String returns the FEN character for the piece.
// Uppercase for white, lowercase for black.
func (p Piece) String() string {
	const chars = "PNBRQKpnbrqk. "
	if p > OffBoard {
		return "?"
	}
	return string(chars[p])
}

// PieceFromChar converts a FEN character to a Piece.
func PieceFromChar(c byte) Piece {
	switch c {
	case 'P':
		return WhitePawn
	case 'N':
		return WhiteKnight
	case 'B':
		return WhiteBishop
	case 'R':
		return WhiteRook
	case 'Q':
		return WhiteQueen
	case 'K':
		return WhiteKing
	case 'p':
		return BlackPawn
	case 'n':
		return BlackKnight
	case 'b':
		return BlackBishop
	case 'r':
		return BlackRook
	case 'q':
		return BlackQueen
	case 'k':
		return BlackKing
	default:
		return Empty
	}
}

// PieceValue is the material value per piece type in centipawns.
var PieceValue = [7]int{100, 320, 330, 500, 900, 20000, 0}

// Value returns the material value of the piece in centipawns.
func (p Piece) Value() int {
	return PieceValue[p.Type()]
}
