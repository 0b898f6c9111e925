package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jaminalder/trivia-checkers/internal/app"
	"github.com/jaminalder/trivia-checkers/internal/domain"
	"github.com/jaminalder/trivia-checkers/internal/obslog"
	"github.com/jaminalder/trivia-checkers/internal/render"
)

type handlers struct {
	svc *app.Service
	tpl *templates
}

func (h *handlers) renderBoard(gs app.GameState, errMsg string) []byte {
	return renderTemplate(h.tpl.board, "", newBoardView(gs, errMsg, h.svc.Now()))
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(renderTemplate(h.tpl.index, "", nil))
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	gs, err := h.svc.CreateGame()
	if err != nil {
		http.Error(w, "failed to create", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/game/"+gs.ID, http.StatusSeeOther)
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	gs, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(renderTemplate(h.tpl.game, "", newBoardView(*gs, "", h.svc.Now())))
}

func (h *handlers) state(w http.ResponseWriter, r *http.Request) {
	gs, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": app.ErrNotFound.Error()})
		return
	}
	writeJSON(w, http.StatusOK, newStateJSON(*gs, h.svc.Now()))
}

func (h *handlers) boardPNG(w http.ResponseWriter, r *http.Request) {
	gs, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if size < 64 || size > 2048 {
		size = 512
	}
	img, err := render.BoardPNG(r.Context(), &gs.Game.Board, render.Options{
		Size:     size,
		Selected: gs.Selected,
		Hints:    gs.Hints,
	})
	if err != nil {
		obslog.L().Warn("render board", zap.String("game", gs.ID), zap.Error(err))
		http.Error(w, "failed to render", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(img)
}

// cellFromForm reads the r and c form fields. Malformed input yields an
// off-board cell so the service rejects it.
func cellFromForm(r *http.Request) domain.Cell {
	_ = r.ParseForm()
	row, err1 := strconv.Atoi(r.Form.Get("r"))
	col, err2 := strconv.Atoi(r.Form.Get("c"))
	if err1 != nil || err2 != nil {
		return domain.Cell{Row: -1, Col: -1}
	}
	return domain.Cell{Row: row, Col: col}
}

func (h *handlers) selectPiece(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	gs, err := h.svc.SelectPiece(id, cellFromForm(r))
	h.respond(w, r, gs, err)
}

func (h *handlers) selectCell(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	at := cellFromForm(r)
	gs, err := h.svc.SelectCell(id, at)
	// clicking another own piece while one is selected switches the selection
	if errors.Is(err, domain.ErrOccupied) && gs != nil && gs.Selected != nil {
		if p, _ := gs.Game.Board.Get(at); p.Color == gs.Game.Turn {
			gs, err = h.svc.SelectPiece(id, at)
		}
	}
	h.respond(w, r, gs, err)
}

func (h *handlers) answer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_ = r.ParseForm()
	choice, err := strconv.Atoi(r.Form.Get("choice"))
	if err != nil {
		choice = -1
	}
	gs, err := h.svc.Answer(id, r.Form.Get("challenge"), choice)
	h.respond(w, r, gs, err)
}

func (h *handlers) undo(w http.ResponseWriter, r *http.Request) {
	gs, err := h.svc.Undo(chi.URLParam(r, "id"))
	h.respond(w, r, gs, err)
}

func (h *handlers) restart(w http.ResponseWriter, r *http.Request) {
	gs, err := h.svc.Restart(chi.URLParam(r, "id"))
	h.respond(w, r, gs, err)
}

// respond writes the board fragment. Rejected input still renders the
// unchanged board with a short message.
func (h *handlers) respond(w http.ResponseWriter, r *http.Request, gs *app.GameState, err error) {
	if gs == nil {
		http.NotFound(w, r)
		return
	}
	var errMsg string
	if err != nil {
		errMsg = errorMessage(err)
		obslog.L().Debug("input rejected", zap.String("game", gs.ID), zap.String("path", r.URL.Path), zap.Error(err))
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(h.renderBoard(*gs, errMsg))
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, app.ErrChallengePending):
		return "Answer the question first"
	case errors.Is(err, app.ErrNoChallenge):
		return "That question is already closed"
	case errors.Is(err, app.ErrNoSelection):
		return "Select a piece first"
	case errors.Is(err, app.ErrNothingToUndo):
		return "Nothing to undo"
	case errors.Is(err, domain.ErrNotYourPiece):
		return "Not your piece"
	case errors.Is(err, domain.ErrNoPiece):
		return "No piece there"
	case errors.Is(err, domain.ErrOccupied):
		return "Cell is occupied"
	case errors.Is(err, domain.ErrOutOfBounds):
		return "Out of bounds"
	case errors.Is(err, domain.ErrGameOver):
		return "Game is over"
	case errors.Is(err, domain.ErrIllegalMove):
		return "Invalid move"
	default:
		return "No question available, try again"
	}
}

var heartbeatInterval = 15 * time.Second

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.svc.Get(id); !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	// In tests or non-EventSource requests, just acknowledge headers and return
	if r.Header.Get("Accept") != "text/event-stream" {
		w.WriteHeader(http.StatusOK)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx := r.Context()
	ch, unsub, err := h.svc.Subscribe(ctx, id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer unsub()
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	// current board first so a reconnect is never stale
	if gs, ok := h.svc.Get(id); ok {
		writeEvent(w, "board", h.renderBoard(*gs, ""))
	}
	flusher.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case b, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, "board", b)
			flusher.Flush()
		}
	}
}

// writeEvent emits one SSE event, prefixing every payload line with data:.
func writeEvent(w io.Writer, name string, payload []byte) {
	_, _ = fmt.Fprintf(w, "event: %s\n", name)
	for _, line := range bytes.Split(bytes.TrimRight(payload, "\n"), []byte("\n")) {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = io.WriteString(w, "\n")
}
