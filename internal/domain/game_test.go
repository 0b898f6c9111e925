package domain

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

// emptyGame returns a game on a cleared board with Red to move.
func emptyGame(rules Rules) Game {
	g := New(rules)
	g.Board = Board{}
	return g
}

func TestNewGameInitialState(t *testing.T) {
	g := New(DefaultRules())
	require.Equal(t, Red, g.Turn)
	require.False(t, g.Over)
	require.Nil(t, g.Last)
	require.Equal(t, 12, g.Count(Red))
	require.Equal(t, 12, g.Count(Black))

	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			p := g.Board[r][c]
			if p.Empty() {
				continue
			}
			require.True(t, Cell{r, c}.Dark(), "piece on light square at (%d,%d)", r, c)
			require.False(t, p.King)
			if p.Color == Red {
				require.Less(t, r, 3)
			} else {
				require.Greater(t, r, 4)
			}
		}
	}
}

func TestSimpleStepDirection(t *testing.T) {
	rules := DefaultRules()
	src := Cell{4, 3}
	for _, color := range []Color{Red, Black} {
		for _, king := range []bool{false, true} {
			for _, d := range diagonals {
				var b Board
				piece := Piece{Color: color, King: king}
				b.Set(src, piece)
				dst := Cell{src.Row + d[0], src.Col + d[1]}
				want := king || d[0] == color.Forward()
				require.Equal(t, want, rules.IsValidMove(&b, src, dst, piece),
					"%s king=%v step %v", color, king, d)
			}
		}
	}
}

func TestMoveRejectsOccupiedAndOffBoard(t *testing.T) {
	rules := DefaultRules()
	b := InitialBoard()
	red := Piece{Color: Red}
	require.False(t, rules.IsValidMove(&b, Cell{1, 0}, Cell{2, 1}, red), "occupied destination")
	require.False(t, rules.IsValidMove(&b, Cell{2, 7}, Cell{3, 8}, red), "off the board")
	require.False(t, rules.IsValidMove(&b, Cell{2, 1}, Cell{4, 1}, red), "straight move")
	require.False(t, rules.IsValidMove(&b, Cell{2, 1}, Cell{5, 4}, red), "three-step diagonal")
}

func TestJumpNeedsOpposingPiece(t *testing.T) {
	rules := DefaultRules()
	src, dst := Cell{2, 1}, Cell{4, 3}
	red := Piece{Color: Red}

	var b Board
	b.Set(src, red)
	require.False(t, rules.IsValidMove(&b, src, dst, red), "jump over empty cell")

	b.Set(Cell{3, 2}, Piece{Color: Red})
	require.False(t, rules.IsValidMove(&b, src, dst, red), "jump over own piece")

	b.Set(Cell{3, 2}, Piece{Color: Black})
	require.True(t, rules.IsValidMove(&b, src, dst, red))
}

func TestBackwardJumpForMen(t *testing.T) {
	src, dst := Cell{4, 3}, Cell{2, 1}
	red := Piece{Color: Red}
	var b Board
	b.Set(src, red)
	b.Set(Cell{3, 2}, Piece{Color: Black})

	require.True(t, DefaultRules().IsValidMove(&b, src, dst, red))
	require.False(t, Rules{}.IsValidMove(&b, src, dst, red))
	require.True(t, Rules{}.IsValidMove(&b, src, dst, Piece{Color: Red, King: true}))
}

func TestScenarioOpeningStep(t *testing.T) {
	g := New(DefaultRules())
	require.NoError(t, g.Apply(Cell{2, 1}, Cell{3, 2}))
	require.Equal(t, Black, g.Turn)
	p, _ := g.Board.Get(Cell{3, 2})
	require.Equal(t, Piece{Color: Red}, p)
	p, _ = g.Board.Get(Cell{2, 1})
	require.True(t, p.Empty())
}

func TestScenarioCapture(t *testing.T) {
	g := emptyGame(DefaultRules())
	g.Board.Set(Cell{2, 1}, Piece{Color: Red})
	g.Board.Set(Cell{3, 2}, Piece{Color: Black})
	g.Board.Set(Cell{7, 0}, Piece{Color: Black})

	require.NoError(t, g.Apply(Cell{2, 1}, Cell{4, 3}))
	jumped, _ := g.Board.Get(Cell{3, 2})
	require.True(t, jumped.Empty())
	require.Equal(t, 1, g.Count(Red))
	require.Equal(t, 1, g.Count(Black))
	require.Equal(t, 1, g.Captured[Black])
	require.False(t, g.Over)
}

func TestScenarioPromotionAllowsBackwardStep(t *testing.T) {
	g := emptyGame(DefaultRules())
	g.Board.Set(Cell{6, 1}, Piece{Color: Red})
	g.Board.Set(Cell{5, 6}, Piece{Color: Black})

	require.NoError(t, g.Apply(Cell{6, 1}, Cell{7, 2}))
	king, _ := g.Board.Get(Cell{7, 2})
	require.True(t, king.King)

	require.NoError(t, g.Apply(Cell{5, 6}, Cell{4, 5}))
	require.NoError(t, g.Apply(Cell{7, 2}, Cell{6, 1}), "king steps backwards")
	king, _ = g.Board.Get(Cell{6, 1})
	require.True(t, king.King)
}

func TestPromoteIsIdempotent(t *testing.T) {
	p, changed := Promote(Piece{Color: Black}, 0)
	require.True(t, changed)
	require.True(t, p.King)

	again, changed := Promote(p, 0)
	require.False(t, changed)
	require.Equal(t, p, again)

	stay, changed := Promote(Piece{Color: Black}, 7)
	require.False(t, changed)
	require.False(t, stay.King)
}

func TestScenarioWinEndsGame(t *testing.T) {
	g := emptyGame(DefaultRules())
	g.Board.Set(Cell{2, 1}, Piece{Color: Red})
	g.Board.Set(Cell{3, 2}, Piece{Color: Black})

	require.NoError(t, g.Apply(Cell{2, 1}, Cell{4, 3}))
	require.True(t, g.Over)
	require.Equal(t, Red, g.Winner)

	before := g.Clone()
	require.ErrorIs(t, g.Apply(Cell{4, 3}, Cell{5, 4}), ErrGameOver)
	require.ErrorIs(t, g.Skip(), ErrGameOver)
	require.False(t, g.Undo())
	require.Equal(t, before, g)
}

func TestApplyRejectionsLeaveGameUntouched(t *testing.T) {
	cases := []struct {
		name     string
		src, dst Cell
		want     error
	}{
		{"off board", Cell{2, 1}, Cell{-1, 0}, ErrOutOfBounds},
		{"empty source", Cell{3, 0}, Cell{4, 1}, ErrNoPiece},
		{"opponent piece", Cell{5, 0}, Cell{4, 1}, ErrNotYourPiece},
		{"occupied", Cell{1, 0}, Cell{2, 1}, ErrOccupied},
		{"straight", Cell{2, 1}, Cell{3, 1}, ErrIllegalMove},
		{"too far", Cell{2, 1}, Cell{4, 3}, ErrIllegalMove},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := New(DefaultRules())
			before := g.Clone()
			require.ErrorIs(t, g.Apply(tc.src, tc.dst), tc.want)
			require.Equal(t, before, g)
		})
	}
}

func TestUndoSimpleMoveRestoresBoard(t *testing.T) {
	g := New(DefaultRules())
	before := g.Board
	require.NoError(t, g.Apply(Cell{2, 1}, Cell{3, 2}))
	require.True(t, g.Undo())
	require.Equal(t, before, g.Board)
	require.Equal(t, Red, g.Turn)
	require.Zero(t, g.Moves)
	require.False(t, g.Undo(), "second undo is a no-op")
}

func TestUndoCaptureRestoresOnDestination(t *testing.T) {
	g := emptyGame(DefaultRules())
	g.Board.Set(Cell{2, 1}, Piece{Color: Red})
	g.Board.Set(Cell{3, 2}, Piece{Color: Black})
	g.Board.Set(Cell{7, 0}, Piece{Color: Black})

	require.NoError(t, g.Apply(Cell{2, 1}, Cell{4, 3}))
	require.True(t, g.Undo())

	mover, _ := g.Board.Get(Cell{2, 1})
	require.Equal(t, Piece{Color: Red}, mover)
	restored, _ := g.Board.Get(Cell{4, 3})
	require.Equal(t, Piece{Color: Black}, restored)
	mid, _ := g.Board.Get(Cell{3, 2})
	require.True(t, mid.Empty())
	require.Zero(t, g.Captured[Black])
	require.Equal(t, Red, g.Turn)
	require.False(t, g.Undo())
}

func TestUndoCaptureInPlace(t *testing.T) {
	g := emptyGame(Rules{BackwardCaptures: true, RestoreCaptureInPlace: true})
	g.Board.Set(Cell{2, 1}, Piece{Color: Red})
	g.Board.Set(Cell{3, 2}, Piece{Color: Black})
	g.Board.Set(Cell{7, 0}, Piece{Color: Black})
	before := g.Board

	require.NoError(t, g.Apply(Cell{2, 1}, Cell{4, 3}))
	require.True(t, g.Undo())
	require.Equal(t, before, g.Board)
}

func TestUndoKeepsCrown(t *testing.T) {
	g := emptyGame(DefaultRules())
	g.Board.Set(Cell{6, 1}, Piece{Color: Red})
	g.Board.Set(Cell{5, 6}, Piece{Color: Black})

	require.NoError(t, g.Apply(Cell{6, 1}, Cell{7, 0}))
	require.True(t, g.Last.Promoted)
	require.True(t, g.Undo())
	p, _ := g.Board.Get(Cell{6, 1})
	require.True(t, p.King)
	empty, _ := g.Board.Get(Cell{7, 0})
	require.True(t, empty.Empty())
}

func TestUndoRestoresRecordedPiece(t *testing.T) {
	g := emptyGame(DefaultRules())
	g.Board.Set(Cell{2, 1}, Piece{Color: Red})
	g.Board.Set(Cell{5, 6}, Piece{Color: Black})

	require.NoError(t, g.Apply(Cell{2, 1}, Cell{3, 2}))
	require.False(t, g.Last.Promoted)
	require.Equal(t, Piece{Color: Red}, g.Last.Piece)
	require.True(t, g.Undo())
	p, _ := g.Board.Get(Cell{2, 1})
	require.Equal(t, Piece{Color: Red}, p)
}

func TestSkipSwitchesTurnAndDropsUndo(t *testing.T) {
	g := New(DefaultRules())
	require.NoError(t, g.Apply(Cell{2, 1}, Cell{3, 2}))
	board := g.Board
	require.NoError(t, g.Skip())
	require.Equal(t, Red, g.Turn)
	require.Equal(t, board, g.Board)
	require.False(t, g.Undo())
}

func TestHintsStayOnBoard(t *testing.T) {
	rules := DefaultRules()
	b := InitialBoard()
	require.ElementsMatch(t, []Cell{{3, 0}, {3, 2}}, rules.Hints(&b, Cell{2, 1}))
	require.ElementsMatch(t, []Cell{{3, 6}}, rules.Hints(&b, Cell{2, 7}))
	require.Empty(t, rules.Hints(&b, Cell{0, 1}))
	require.Empty(t, rules.Hints(&b, Cell{3, 0}))
	require.Empty(t, rules.Hints(&b, Cell{9, 9}))

	var corner Board
	corner.Set(Cell{7, 0}, Piece{Color: Red, King: true})
	require.ElementsMatch(t, []Cell{{6, 1}}, rules.Hints(&corner, Cell{7, 0}))
}

// Random legal play must never break the board invariants.
func TestRandomPlayKeepsInvariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	g := New(DefaultRules())
	total := g.Count(Red) + g.Count(Black)

	for step := 0; step < 400 && !g.Over; step++ {
		var moves [][2]Cell
		for r := 0; r < Size; r++ {
			for c := 0; c < Size; c++ {
				src := Cell{r, c}
				if p, _ := g.Board.Get(src); p.Color != g.Turn {
					continue
				}
				for _, dst := range g.Rules.Hints(&g.Board, src) {
					moves = append(moves, [2]Cell{src, dst})
				}
			}
		}
		if len(moves) == 0 || rng.IntN(10) == 0 {
			require.NoError(t, g.Skip())
			continue
		}
		m := moves[rng.IntN(len(moves))]
		require.NoError(t, g.Apply(m[0], m[1]))

		remaining := g.Count(Red) + g.Count(Black)
		require.LessOrEqual(t, remaining, total)
		require.Equal(t, 12, g.Count(Red)+g.Captured[Red])
		require.Equal(t, 12, g.Count(Black)+g.Captured[Black])
		total = remaining
		for r := 0; r < Size; r++ {
			for c := 0; c < Size; c++ {
				if !(Cell{r, c}).Dark() {
					require.True(t, g.Board[r][c].Empty(), "light cell (%d,%d) occupied", r, c)
				}
			}
		}
	}
}
