package web

import (
	"bytes"
	"html/template"
	"time"

	"github.com/jaminalder/trivia-checkers/internal/app"
	"github.com/jaminalder/trivia-checkers/internal/domain"
)

type templates struct {
	game  *template.Template
	board *template.Template
	index *template.Template
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"seconds":   func(d time.Duration) int { return int((d + time.Second - 1) / time.Second) },
		"unixMilli": func(t time.Time) int64 { return t.UnixMilli() },
	}
}

func loadTemplates() *templates {
	base := template.Must(template.New("base").Funcs(funcs()).Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<title>Trivia Checkers</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org/dist/ext/sse.js"></script>
<style>` + styles + `</style>
</head><body>{{template "content" .}}</body></html>`))
	template.Must(base.New("board").Parse(boardTemplate))
	index := template.Must(template.Must(base.Clone()).New("content").Parse(`<h1>Trivia Checkers</h1>
<p>Answer a question to make your move. Get it wrong and your turn is gone.</p>
<form action="/game" method="post"><button>Start game</button></form>`))
	game := template.Must(template.Must(base.Clone()).New("content").Parse(`
<div hx-ext="sse" sse-connect="/game/{{.ID}}/events">
  <div id="board-stream" sse-swap="board" hx-swap="innerHTML">{{template "board" .}}</div>
</div>
<script>` + countdownScript + `</script>`))
	board := template.Must(template.New("board_only").Funcs(funcs()).Parse(boardTemplate))
	return &templates{game: game, board: board, index: index}
}

func renderTemplate(t *template.Template, name string, data any) []byte {
	var buf bytes.Buffer
	if name == "" {
		_ = t.Execute(&buf, data)
	} else {
		_ = t.ExecuteTemplate(&buf, name, data)
	}
	return buf.Bytes()
}

type cellView struct {
	Row, Col int
	Dark     bool
	Piece    string // "red", "black" or empty
	King     bool
	Selected bool
	Hint     bool
	Action   string // select, cell or empty when the cell is inert
}

type choiceView struct {
	Index int
	Text  string
}

type challengeView struct {
	ID        string
	Text      string
	Choices   []choiceView
	Deadline  time.Time
	Remaining time.Duration
}

type boardView struct {
	ID        string
	Rows      [domain.Size][domain.Size]cellView
	Turn      string
	Phase     app.Phase
	Red       int
	Black     int
	Winner    string
	Over      bool
	CanUndo   bool
	Notice    string
	Error     string
	Challenge *challengeView
}

func newBoardView(gs app.GameState, errMsg string, now time.Time) boardView {
	g := gs.Game
	v := boardView{
		ID:      gs.ID,
		Turn:    g.Turn.Name(),
		Phase:   gs.Phase,
		Red:     g.Count(domain.Red),
		Black:   g.Count(domain.Black),
		Over:    g.Over,
		CanUndo: g.Last != nil && gs.Challenge == nil && !g.Over,
		Notice:  gs.Notice,
		Error:   errMsg,
	}
	if g.Over {
		v.Winner = g.Winner.Name()
	}
	hints := make(map[domain.Cell]bool, len(gs.Hints))
	for _, c := range gs.Hints {
		hints[c] = true
	}
	interactive := gs.Phase == app.AwaitingSelection || gs.Phase == app.AwaitingDestination
	for r := 0; r < domain.Size; r++ {
		for c := 0; c < domain.Size; c++ {
			at := domain.Cell{Row: r, Col: c}
			p, _ := g.Board.Get(at)
			cv := cellView{Row: r, Col: c, Dark: at.Dark(), King: p.King, Hint: hints[at]}
			if !p.Empty() {
				cv.Piece = p.Color.String()
			}
			cv.Selected = gs.Selected != nil && *gs.Selected == at
			switch {
			case !interactive:
			case !p.Empty() && p.Color == g.Turn:
				cv.Action = "select"
			case p.Empty() && at.Dark() && gs.Selected != nil:
				cv.Action = "cell"
			}
			v.Rows[r][c] = cv
		}
	}
	if ch := gs.Challenge; ch != nil {
		cv := &challengeView{
			ID:        ch.ID,
			Text:      ch.Question.Text,
			Deadline:  ch.Deadline,
			Remaining: gs.Remaining(now),
		}
		for i, text := range ch.Question.Choices {
			cv.Choices = append(cv.Choices, choiceView{Index: i, Text: text})
		}
		v.Challenge = cv
	}
	return v
}

const boardTemplate = `
<div id="board" class="game phase-{{.Phase}}">
  <div class="status">
    {{if .Over}}<strong>{{.Winner}} wins!</strong>{{else}}<span class="turn">{{.Turn}} to move</span>{{end}}
    <span class="counts">Red: {{.Red}} | Black: {{.Black}}</span>
  </div>
  {{if .Error}}<div class="alert">{{.Error}}</div>{{end}}
  {{if .Notice}}<div class="notice">{{.Notice}}</div>{{end}}
  <div class="grid">
  {{range $row := .Rows}}
    <div class="row">
    {{range $row}}
      <div class="cell{{if .Dark}} dark{{else}} light{{end}}{{if .Hint}} hint{{end}}{{if .Selected}} selected{{end}}">
      {{if .Action}}
        <form hx-post="/game/{{$.ID}}/{{.Action}}" hx-target="#board" hx-swap="outerHTML" method="post" action="/game/{{$.ID}}/{{.Action}}">
          <input type="hidden" name="r" value="{{.Row}}">
          <input type="hidden" name="c" value="{{.Col}}">
          <button type="submit">{{if .Piece}}<span class="piece {{.Piece}}{{if .King}} king{{end}}"></span>{{end}}</button>
        </form>
      {{else if .Piece}}
        <span class="piece {{.Piece}}{{if .King}} king{{end}}"></span>
      {{end}}
      </div>
    {{end}}
    </div>
  {{end}}
  </div>
  {{with .Challenge}}
  <div class="question" data-deadline="{{unixMilli .Deadline}}">
    <p>{{.Text}}</p>
    <p class="countdown">Time left: <span class="seconds">{{seconds .Remaining}}</span>s</p>
    {{range .Choices}}
    <form hx-post="/game/{{$.ID}}/answer" hx-target="#board" hx-swap="outerHTML" method="post" action="/game/{{$.ID}}/answer">
      <input type="hidden" name="challenge" value="{{$.Challenge.ID}}">
      <input type="hidden" name="choice" value="{{.Index}}">
      <button type="submit">{{.Text}}</button>
    </form>
    {{end}}
  </div>
  {{end}}
  <div class="controls">
    <form hx-post="/game/{{.ID}}/undo" hx-target="#board" hx-swap="outerHTML" method="post" action="/game/{{.ID}}/undo">
      <button type="submit"{{if not .CanUndo}} disabled{{end}}>Undo</button>
    </form>
    <form hx-post="/game/{{.ID}}/restart" hx-target="#board" hx-swap="outerHTML" method="post" action="/game/{{.ID}}/restart">
      <button type="submit">Restart</button>
    </form>
    <a href="/game/{{.ID}}/board.png">Snapshot</a>
    <a href="/game/{{.ID}}/qr.png">QR</a>
  </div>
</div>
`

const styles = `
.grid{display:inline-block;border:2px solid #333}
.row{display:flex}
.cell{width:56px;height:56px;display:flex;align-items:center;justify-content:center}
.cell form,.cell button{width:100%;height:100%;margin:0;padding:0;border:0;background:none;cursor:pointer;display:flex;align-items:center;justify-content:center}
.light{background:#f0d9b5}
.dark{background:#8b5a2b}
.hint{background:#c9d66b}
.selected{outline:3px solid #fff;outline-offset:-3px}
.piece{display:block;width:44px;height:44px;border-radius:50%;border:2px solid #000}
.piece.red{background:#c0392b}
.piece.black{background:#1b1b1b}
.piece.red.king{box-shadow:inset 0 0 0 10px #ffd700}
.piece.black.king{box-shadow:inset 0 0 0 10px #1e90ff}
.alert{color:#b00}
.question{margin-top:1em}
.controls{margin-top:1em;display:flex;gap:.5em}
`

const countdownScript = `
setInterval(function () {
  document.querySelectorAll('.question[data-deadline]').forEach(function (q) {
    var left = Math.max(0, Math.ceil((+q.dataset.deadline - Date.now()) / 1000));
    var s = q.querySelector('.seconds');
    if (s) { s.textContent = left; }
  });
}, 250);
`
