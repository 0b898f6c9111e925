package domain

// Color identifies a side. The zero value marks an empty cell.
type Color uint8

const (
	NoColor Color = iota
	Red
	Black
)

func (c Color) String() string {
	switch c {
	case Red:
		return "red"
	case Black:
		return "black"
	default:
		return ""
	}
}

// Name returns the capitalised side name used in messages.
func (c Color) Name() string {
	switch c {
	case Red:
		return "Red"
	case Black:
		return "Black"
	default:
		return ""
	}
}

// Opponent returns the other side; NoColor has no opponent.
func (c Color) Opponent() Color {
	switch c {
	case Red:
		return Black
	case Black:
		return Red
	default:
		return NoColor
	}
}

// Forward is the row delta of a non-king step: Red moves down the board, Black up.
func (c Color) Forward() int {
	if c == Red {
		return 1
	}
	return -1
}

// Piece is a man or king. The zero Piece means no piece.
type Piece struct {
	Color Color
	King  bool
}

// Empty reports whether p is the absence of a piece.
func (p Piece) Empty() bool { return p.Color == NoColor }

// Size is the number of rows and columns.
const Size = 8

// Cell is a board coordinate, row 0 at Red's home rank.
type Cell struct {
	Row int
	Col int
}

func (c Cell) InBounds() bool {
	return c.Row >= 0 && c.Row < Size && c.Col >= 0 && c.Col < Size
}

// Dark cells are the playable ones.
func (c Cell) Dark() bool { return (c.Row+c.Col)%2 == 1 }

// Board is an 8x8 grid stored row-major.
type Board [Size][Size]Piece

// InitialBoard returns the opening layout: Red on the dark cells of rows 0-2,
// Black on rows 5-7.
func InitialBoard() Board {
	var b Board
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			cell := Cell{r, c}
			if !cell.Dark() {
				continue
			}
			switch {
			case r < 3:
				b[r][c] = Piece{Color: Red}
			case r > 4:
				b[r][c] = Piece{Color: Black}
			}
		}
	}
	return b
}

// Get returns the piece at c; ok is false when c is off the board.
func (b *Board) Get(c Cell) (Piece, bool) {
	if !c.InBounds() {
		return Piece{}, false
	}
	return b[c.Row][c.Col], true
}

// Set places p at c. Out-of-bounds cells are ignored.
func (b *Board) Set(c Cell, p Piece) {
	if !c.InBounds() {
		return
	}
	b[c.Row][c.Col] = p
}

func (b *Board) Clear(c Cell) { b.Set(c, Piece{}) }

// MovePiece transfers the piece at src to dst without checking legality.
func (b *Board) MovePiece(src, dst Cell) {
	p, ok := b.Get(src)
	if !ok || !dst.InBounds() {
		return
	}
	b.Clear(src)
	b.Set(dst, p)
}

// CountPieces returns how many pieces of color remain.
func (b *Board) CountPieces(color Color) int {
	n := 0
	for r := range b {
		for c := range b[r] {
			if b[r][c].Color == color {
				n++
			}
		}
	}
	return n
}
