package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jaminalder/trivia-checkers/internal/app"
	"github.com/jaminalder/trivia-checkers/internal/domain"
)

type cellJSON struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type challengeJSON struct {
	ID          string    `json:"id"`
	Question    string    `json:"question"`
	Choices     []string  `json:"choices"`
	Deadline    time.Time `json:"deadline"`
	RemainingMS int64     `json:"remaining_ms"`
}

// stateJSON is the public snapshot of a game. It never carries the answer.
type stateJSON struct {
	ID        string                           `json:"id"`
	Phase     app.Phase                        `json:"phase"`
	Turn      string                           `json:"turn"`
	Board     [domain.Size][domain.Size]string `json:"board"`
	Red       int                              `json:"red"`
	Black     int                              `json:"black"`
	Captured  map[string]int                   `json:"captured"`
	Moves     int                              `json:"moves"`
	Over      bool                             `json:"over"`
	Winner    string                           `json:"winner,omitempty"`
	Selected  *cellJSON                        `json:"selected,omitempty"`
	Hints     []cellJSON                       `json:"hints"`
	Challenge *challengeJSON                   `json:"challenge,omitempty"`
	CanUndo   bool                             `json:"can_undo"`
	Notice    string                           `json:"notice,omitempty"`
}

// pieceCode encodes a piece as r, R, b, B or the empty string; capitals are kings.
func pieceCode(p domain.Piece) string {
	switch {
	case p.Color == domain.Red && p.King:
		return "R"
	case p.Color == domain.Red:
		return "r"
	case p.Color == domain.Black && p.King:
		return "B"
	case p.Color == domain.Black:
		return "b"
	}
	return ""
}

func newStateJSON(gs app.GameState, now time.Time) stateJSON {
	g := gs.Game
	out := stateJSON{
		ID:    gs.ID,
		Phase: gs.Phase,
		Turn:  g.Turn.String(),
		Red:   g.Count(domain.Red),
		Black: g.Count(domain.Black),
		Captured: map[string]int{
			domain.Red.String():   g.Captured[domain.Red],
			domain.Black.String(): g.Captured[domain.Black],
		},
		Moves:   g.Moves,
		Over:    g.Over,
		Hints:   []cellJSON{},
		CanUndo: g.Last != nil && gs.Challenge == nil && !g.Over,
		Notice:  gs.Notice,
	}
	if g.Over {
		out.Winner = g.Winner.String()
	}
	for r := range g.Board {
		for c, p := range g.Board[r] {
			out.Board[r][c] = pieceCode(p)
		}
	}
	if gs.Selected != nil {
		out.Selected = &cellJSON{Row: gs.Selected.Row, Col: gs.Selected.Col}
	}
	for _, h := range gs.Hints {
		out.Hints = append(out.Hints, cellJSON{Row: h.Row, Col: h.Col})
	}
	if ch := gs.Challenge; ch != nil {
		out.Challenge = &challengeJSON{
			ID:          ch.ID,
			Question:    ch.Question.Text,
			Choices:     append([]string(nil), ch.Question.Choices...),
			Deadline:    ch.Deadline,
			RemainingMS: gs.Remaining(now).Milliseconds(),
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
