package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jaminalder/trivia-checkers/internal/app"
	"github.com/jaminalder/trivia-checkers/internal/obslog"
)

// NewServer wires routes and returns an http.Handler. It also installs the
// board fragment renderer used for SSE broadcasts.
func NewServer(s *app.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	h := &handlers{svc: s, tpl: loadTemplates()}
	s.SetRenderer(func(gs app.GameState) []byte { return h.renderBoard(gs, "") })

	r.Get("/", h.index)
	r.Get("/healthz", h.healthz)
	r.Post("/game", h.create)
	r.Route("/game/{id}", func(r chi.Router) {
		r.Get("/", h.view)
		r.Get("/state", h.state)
		r.Get("/board.png", h.boardPNG)
		r.Get("/events", h.events)
		r.Get("/ws", h.feed)
		r.Get("/qr.png", h.qr)
		r.Post("/select", h.selectPiece)
		r.Post("/cell", h.selectCell)
		r.Post("/answer", h.answer)
		r.Post("/undo", h.undo)
		r.Post("/restart", h.restart)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)),
		}
		if status >= http.StatusInternalServerError {
			obslog.L().Warn("http_request", fields...)
			return
		}
		obslog.L().Debug("http_request", fields...)
	})
}
