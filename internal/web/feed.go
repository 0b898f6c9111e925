package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/jaminalder/trivia-checkers/internal/obslog"
)

const (
	writeWait = 10 * time.Second
	qrSize    = 320
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// feed streams JSON state snapshots over a websocket, one per change. The
// first message is the current state.
func (h *handlers) feed(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.svc.Get(id); !ok {
		http.NotFound(w, r)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		obslog.L().Debug("websocket upgrade", zap.String("game", id), zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	// the feed is read-only; a failed read means the client went away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	changes, unsub, err := h.svc.Subscribe(ctx, id)
	if err != nil {
		return
	}
	defer unsub()

	send := func() bool {
		gs, ok := h.svc.Get(id)
		if !ok {
			return false
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(newStateJSON(*gs, h.svc.Now())) == nil
	}
	if !send() {
		return
	}
	ping := time.NewTicker(heartbeatInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case _, ok := <-changes:
			if !ok || !send() {
				return
			}
		}
	}
}

// qr serves a QR code of the game page URL.
func (h *handlers) qr(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.svc.Get(id); !ok {
		http.NotFound(w, r)
		return
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	url := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr.png")

	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		obslog.L().Warn("qr generation", zap.String("game", id), zap.Error(err))
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}
