package domain

import "errors"

// LastMove is the single undoable move.
type LastMove struct {
	Piece      Piece
	From       Cell
	To         Cell
	Captured   Piece
	CapturedAt Cell
	Promoted   bool
}

// Game holds the current state of a checkers match.
type Game struct {
	Board    Board
	Turn     Color
	Winner   Color
	Over     bool
	Moves    int
	Captured [3]int // indexed by Color: pieces of that color taken so far
	Last     *LastMove
	Rules    Rules
}

// Errors returned by domain operations.
var (
	ErrOutOfBounds  = errors.New("out of bounds")
	ErrNoPiece      = errors.New("no piece on cell")
	ErrNotYourPiece = errors.New("piece belongs to the other side")
	ErrOccupied     = errors.New("cell occupied")
	ErrIllegalMove  = errors.New("illegal move")
	ErrGameOver     = errors.New("game over")
)

// New returns a new game with Red to move.
func New(rules Rules) Game {
	return Game{Board: InitialBoard(), Turn: Red, Rules: rules}
}

// CheckMove validates a move for the side to play without applying it.
func (g *Game) CheckMove(src, dst Cell) error {
	if g.Over {
		return ErrGameOver
	}
	if !src.InBounds() || !dst.InBounds() {
		return ErrOutOfBounds
	}
	piece, _ := g.Board.Get(src)
	if piece.Empty() {
		return ErrNoPiece
	}
	if piece.Color != g.Turn {
		return ErrNotYourPiece
	}
	if target, _ := g.Board.Get(dst); !target.Empty() {
		return ErrOccupied
	}
	if !g.Rules.IsValidMove(&g.Board, src, dst, piece) {
		return ErrIllegalMove
	}
	return nil
}

// Apply moves the piece at src to dst for the side to play, resolving any
// capture and promotion, then hands the turn over. A rejected move leaves the
// game untouched.
func (g *Game) Apply(src, dst Cell) error {
	if err := g.CheckMove(src, dst); err != nil {
		return err
	}
	piece, _ := g.Board.Get(src)
	last := &LastMove{Piece: piece, From: src, To: dst}

	if at, jumped, ok := CapturedPiece(&g.Board, src, dst); ok {
		g.Board.Clear(at)
		g.Captured[jumped.Color]++
		last.Captured, last.CapturedAt = jumped, at
	}

	g.Board.MovePiece(src, dst)
	if promoted, ok := Promote(piece, dst.Row); ok {
		g.Board.Set(dst, promoted)
		last.Promoted = true
	}
	g.Last = last
	g.Moves++
	g.Turn = g.Turn.Opponent()
	g.checkWinner()
	return nil
}

// Skip forfeits the current turn without touching the board.
func (g *Game) Skip() error {
	if g.Over {
		return ErrGameOver
	}
	g.Last = nil
	g.Turn = g.Turn.Opponent()
	return nil
}

// Undo reverts the last move. It reports false when there is nothing to undo.
// The moved piece keeps any crown it earned.
func (g *Game) Undo() bool {
	if g.Over || g.Last == nil {
		return false
	}
	last := g.Last
	// a crown earned by the move is kept
	piece := last.Piece
	if last.Promoted {
		piece.King = true
	}
	g.Board.Clear(last.To)
	g.Board.Set(last.From, piece)
	if !last.Captured.Empty() {
		at := last.To
		if g.Rules.RestoreCaptureInPlace {
			at = last.CapturedAt
		}
		g.Board.Set(at, last.Captured)
		g.Captured[last.Captured.Color]--
	}
	g.Last = nil
	g.Moves--
	g.Turn = g.Turn.Opponent()
	return true
}

// Count returns the number of pieces color has left.
func (g *Game) Count(color Color) int { return g.Board.CountPieces(color) }

// Clone returns a deep copy safe to hand to readers.
func (g *Game) Clone() Game {
	cp := *g
	if g.Last != nil {
		last := *g.Last
		cp.Last = &last
	}
	return cp
}

func (g *Game) checkWinner() {
	switch {
	case g.Board.CountPieces(Red) == 0:
		g.Winner, g.Over = Black, true
	case g.Board.CountPieces(Black) == 0:
		g.Winner, g.Over = Red, true
	}
}
