package board

// MVV-LVA (Most Valuable Victim - Least Valuable Attacker) scores, indexed
// by [victim][attacker]. Higher score = search first.
var mvvLva [6][6]int

func init() {
	for victim := Pawn; victim <= King; victim++ {
		for attacker := Pawn; attacker <= King; attacker++ {
			victimScore := (int(victim) + 1) * 100
			attackerScore := (int(attacker) + 1) * 100
			mvvLva[victim][attacker] = victimScore + 6 - attackerScore/100
		}
	}
}

// CaptureScore returns the MVV-LVA ordering score of attacker taking victim.
// Non-captures score zero.
func CaptureScore(attacker, victim Piece) int {
	if !attacker.IsPiece() || !victim.IsPiece() {
		return 0
	}
	return mvvLva[victim.Type()][attacker.Type()]
}

// PseudoLegalMoves generates moves that follow piece movement rules but may
// leave the mover's king attacked. King steps onto attacked squares are
// already excluded. Each move carries its capture score; the list is not sorted.
func (p *Position) PseudoLegalMoves() *MoveList {
	ml := NewMoveList()
	p.generateAllMoves(ml)
	return ml
}

// LegalMoves generates all legal moves in generation order.
func (p *Position) LegalMoves() *MoveList {
	return p.filterLegalMoves(p.PseudoLegalMoves())
}

// OrderedMoves returns the legal moves sorted by descending capture score.
// Ties keep generation order.
func (p *Position) OrderedMoves() *MoveList {
	ml := p.LegalMoves()
	ml.Sort()
	return ml
}

// LegalCaptures returns the ordered legal moves that capture a piece.
func (p *Position) LegalCaptures() *MoveList {
	all := p.OrderedMoves()
	result := NewMoveList()
	for i := 0; i < all.Len(); i++ {
		if all.Get(i).IsCapture() {
			result.Add(all.Get(i), all.Score(i))
		}
	}
	return result
}

// MoveExists reports whether m is currently a legal move.
func (p *Position) MoveExists(m Move) bool {
	if m.IsNull() {
		return false
	}
	return p.LegalMoves().Contains(m)
}

// generateAllMoves generates all pseudo-legal moves for the side to move.
func (p *Position) generateAllMoves(ml *MoveList) {
	us := p.sideToMove

	for from := Square(0); from < BoardSize; from++ {
		if !from.OnBoard() {
			from += 7
			continue
		}

		piece := p.squares[from]
		if piece.Color() != us {
			continue
		}

		switch piece.Type() {
		case Pawn:
			p.generatePawnMoves(ml, from, piece)
		case Knight:
			p.generateLeaps(ml, from, piece, knightDirections[:], false)
		case King:
			p.generateLeaps(ml, from, piece, kingDirections[:], true)
		case Bishop:
			p.generateSlides(ml, from, piece, bishopDirections[:])
		case Rook:
			p.generateSlides(ml, from, piece, rookDirections[:])
		case Queen:
			p.generateSlides(ml, from, piece, rookDirections[:])
			p.generateSlides(ml, from, piece, bishopDirections[:])
		}
	}
}

// add appends a move from -> to with flags and score derived from the board.
func (p *Position) add(ml *MoveList, from, to Square, piece Piece) {
	captured := p.squares[to]
	ml.Add(newMove(from, to, piece, captured), CaptureScore(piece, captured))
}

// generatePawnMoves generates pushes, double pushes from the home row, and
// diagonal captures.
func (p *Position) generatePawnMoves(ml *MoveList, from Square, piece Piece) {
	us := piece.Color()
	push, homeRow := North, 6
	if us == Black {
		push, homeRow = South, 1
	}

	if to, ok := from.offset(push); ok && p.squares[to] == Empty {
		p.add(ml, from, to, piece)

		if from.Row() == homeRow {
			if to2, ok := to.offset(push); ok && p.squares[to2] == Empty {
				p.add(ml, from, to2, piece)
			}
		}
	}

	for _, side := range [2]int{East, West} {
		if to, ok := from.offset(push + side); ok && p.squares[to].Color() == us.Other() {
			p.add(ml, from, to, piece)
		}
	}
}

// generateLeaps generates single-step moves for knights and kings. King
// destinations attacked by the opponent are skipped.
func (p *Position) generateLeaps(ml *MoveList, from Square, piece Piece, dirs []int, king bool) {
	us := piece.Color()
	for _, d := range dirs {
		to, ok := from.offset(d)
		if !ok || p.squares[to].Color() == us {
			continue
		}
		if king && p.IsAttacked(to, us.Other()) {
			continue
		}
		p.add(ml, from, to, piece)
	}
}

// generateSlides generates ray moves, including the capture of the first
// opposing blocker.
func (p *Position) generateSlides(ml *MoveList, from Square, piece Piece, dirs []int) {
	us := piece.Color()
	for _, d := range dirs {
		to, ok := from.offset(d)
		for ok && p.squares[to].Color() != us {
			p.add(ml, from, to, piece)
			if p.squares[to] != Empty {
				break
			}
			to, ok = to.offset(d)
		}
	}
}

// filterLegalMoves keeps the moves that do not leave the mover's king attacked.
// Every candidate is applied and undone regardless of the outcome.
func (p *Position) filterLegalMoves(ml *MoveList) *MoveList {
	result := NewMoveList()
	us := p.sideToMove

	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		p.Apply(m)
		if !p.IsInCheck(us) {
			result.Add(m, ml.Score(i))
		}
		p.Undo()
	}

	return result
}

// HasLegalMoves returns true if the side to move has any legal moves.
func (p *Position) HasLegalMoves() bool {
	return p.LegalMoves().Len() > 0
}

// IsCheckmate returns true if the position is checkmate.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsStalemate returns true if the position is stalemate.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}
