package board

// Direction tables for the 0x88 board.
var (
	knightDirections = [8]int{
		North + North + East, East + East + North, South + South + East, West + West + South,
		South + East + East, South + South + West, North + North + West, North + West + West,
	}
	kingDirections   = [8]int{North, West, North + West, South + West, South, East, East + South, North + East}
	bishopDirections = [4]int{North + East, East + South, South + West, West + North}
	rookDirections   = [4]int{North, East, South, West}
)

// pawnAttackOrigins are the offsets from a target square to the squares a pawn
// of the given color would attack it from.
var pawnAttackOrigins = [2][2]int{
	White: {South + East, South + West},
	Black: {North + East, North + West},
}

// IsAttacked returns true if sq is attacked by any piece of color by.
// Checks pawns, knights and kings first, then slides outward along rook and
// bishop lines until the first occupied square.
func (p *Position) IsAttacked(sq Square, by Color) bool {
	if !sq.OnBoard() || by >= NoColor {
		return false
	}

	pawn := NewPiece(Pawn, by)
	for _, d := range pawnAttackOrigins[by] {
		if from, ok := sq.offset(d); ok && p.squares[from] == pawn {
			return true
		}
	}

	knight := NewPiece(Knight, by)
	for _, d := range knightDirections {
		if from, ok := sq.offset(d); ok && p.squares[from] == knight {
			return true
		}
	}

	king := NewPiece(King, by)
	for _, d := range kingDirections {
		if from, ok := sq.offset(d); ok && p.squares[from] == king {
			return true
		}
	}

	rook, queen := NewPiece(Rook, by), NewPiece(Queen, by)
	for _, d := range rookDirections {
		if p.slideHits(sq, d, rook, queen) {
			return true
		}
	}

	bishop := NewPiece(Bishop, by)
	for _, d := range bishopDirections {
		if p.slideHits(sq, d, bishop, queen) {
			return true
		}
	}

	return false
}

// slideHits walks from sq along d and reports whether the first piece met is
// one of the two given sliders.
func (p *Position) slideHits(sq Square, d int, a, b Piece) bool {
	cur := sq
	for {
		next, ok := cur.offset(d)
		if !ok {
			return false
		}
		piece := p.squares[next]
		if piece != Empty {
			return piece == a || piece == b
		}
		cur = next
	}
}
