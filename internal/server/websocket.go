package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
)

// wsErrorFrame is sent when one frame cannot be processed.
type wsErrorFrame struct {
	Error string `json:"error"`
}

// handleWebSocket serves one chat connection. Each inbound frame is a
// ChatRequest and gets exactly one response frame; frames without a session
// share a per-connection session.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxBody)

	connKey := "ws:" + ulid.Make().String()
	slog.Info("WebSocket connected", "session", connKey, "remote", r.RemoteAddr)

	ctx := r.Context()
	for {
		var req ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				slog.Debug("WebSocket read ended", "session", connKey, "err", err)
			}
			return
		}
		if req.Session == "" {
			req.Session = connKey
		}

		var out any
		if resp, _, err := s.turn(ctx, req); err != nil {
			out = wsErrorFrame{Error: err.Error()}
		} else {
			out = resp
		}
		if err := conn.WriteJSON(out); err != nil {
			slog.Warn("WebSocket write failed", "session", connKey, "err", err)
			return
		}
	}
}
