package domain

// Rules holds the house-rule switches of a game.
type Rules struct {
	// BackwardCaptures lets men jump backwards. Men never step backwards.
	BackwardCaptures bool
	// RestoreCaptureInPlace makes Undo put a captured piece back on the cell it
	// was taken from instead of on the mover's destination.
	RestoreCaptureInPlace bool
}

// DefaultRules allows backward captures and restores captured pieces on the
// mover's destination when undoing.
func DefaultRules() Rules {
	return Rules{BackwardCaptures: true}
}

// IsValidMove reports whether piece may move from src to dst on b.
func (r Rules) IsValidMove(b *Board, src, dst Cell, piece Piece) bool {
	if piece.Empty() || !src.InBounds() {
		return false
	}
	if occupant, ok := b.Get(dst); !ok || !occupant.Empty() {
		return false
	}
	dr, dc := dst.Row-src.Row, dst.Col-src.Col
	switch {
	case abs(dr) == 1 && abs(dc) == 1:
		return piece.King || dr == piece.Color.Forward()
	case abs(dr) == 2 && abs(dc) == 2:
		if !piece.King && dr != 2*piece.Color.Forward() && !r.BackwardCaptures {
			return false
		}
		_, jumped, ok := CapturedPiece(b, src, dst)
		return ok && jumped.Color == piece.Color.Opponent()
	default:
		return false
	}
}

// Hints lists the destinations the piece at src may legally move to.
// Candidates off the board are skipped.
func (r Rules) Hints(b *Board, src Cell) []Cell {
	piece, ok := b.Get(src)
	if !ok || piece.Empty() {
		return nil
	}
	var out []Cell
	for _, dist := range []int{1, 2} {
		for _, d := range diagonals {
			dst := Cell{src.Row + d[0]*dist, src.Col + d[1]*dist}
			if !dst.InBounds() {
				continue
			}
			if r.IsValidMove(b, src, dst, piece) {
				out = append(out, dst)
			}
		}
	}
	return out
}

var diagonals = [4][2]int{{1, -1}, {1, 1}, {-1, -1}, {-1, 1}}

// JumpedCell returns the midpoint of a two-step diagonal move.
func JumpedCell(src, dst Cell) (Cell, bool) {
	dr, dc := dst.Row-src.Row, dst.Col-src.Col
	if abs(dr) != 2 || abs(dc) != 2 {
		return Cell{}, false
	}
	return Cell{(src.Row + dst.Row) / 2, (src.Col + dst.Col) / 2}, true
}

// CapturedPiece returns the piece a jump from src to dst passes over, if any.
func CapturedPiece(b *Board, src, dst Cell) (Cell, Piece, bool) {
	mid, ok := JumpedCell(src, dst)
	if !ok {
		return Cell{}, Piece{}, false
	}
	p, ok := b.Get(mid)
	if !ok || p.Empty() {
		return Cell{}, Piece{}, false
	}
	return mid, p, true
}

// Promote crowns a man that has reached the far rank. The second result is
// true only when the piece changed.
func Promote(p Piece, row int) (Piece, bool) {
	if p.King || p.Empty() {
		return p, false
	}
	if (p.Color == Red && row == Size-1) || (p.Color == Black && row == 0) {
		p.King = true
		return p, true
	}
	return p, false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
