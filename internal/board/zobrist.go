package board

// DefaultSeed seeds the Zobrist table when the caller has no preference.
const DefaultSeed uint64 = 0x98F107A2BEEF1234

// Zobrist holds the random keys used to fingerprint positions.
// Keys are fixed once the table is built; the same seed always yields the
// same table.
type Zobrist struct {
	seed   uint64
	pieces [2][6][BoardSize]uint64
	white  uint64
}

// Simple PRNG for reproducible Zobrist keys
type prng struct {
	state uint64
}

func newPRNG(seed uint64) *prng {
	if seed == 0 {
		seed = DefaultSeed
	}
	return &prng{state: seed}
}

// xorshift64* algorithm
func (p *prng) next() uint64 {
	p.state ^= p.state >> 12
	p.state ^= p.state << 25
	p.state ^= p.state >> 27
	return p.state * 0x2545F4914F6CDD1D
}

// NewZobrist builds a key table from seed. A zero seed selects DefaultSeed.
func NewZobrist(seed uint64) *Zobrist {
	rng := newPRNG(seed)
	z := &Zobrist{seed: rng.state}

	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for sq := 0; sq < BoardSize; sq++ {
				z.pieces[c][pt][sq] = rng.next()
			}
		}
	}
	z.white = rng.next()

	return z
}

// Seed returns the seed the table was built from.
func (z *Zobrist) Seed() uint64 {
	return z.seed
}

// Piece returns the key for piece on sq.
func (z *Zobrist) Piece(piece Piece, sq Square) uint64 {
	if !piece.IsPiece() || !sq.OnBoard() {
		return 0
	}
	return z.pieces[piece.Color()][piece.Type()][sq]
}

// WhiteToMove returns the key folded in when White is to move.
func (z *Zobrist) WhiteToMove() uint64 {
	return z.white
}
