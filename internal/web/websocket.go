package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/comigor/leo-go/internal/logger"
)

const writeWait = 10 * time.Second

// handleWebSocket streams a snapshot after every session mutation. The
// socket is closed when the session ends or the client goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	m := managerFrom(r.Context())
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.L.Warn("websocket upgrade failed", "session", m.ID(), "error", err)
		return
	}
	defer conn.Close()

	snaps, cancel := m.Subscribe()
	defer cancel()

	// Inbound frames are ignored; reading only notices the client leaving.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snap, ok := <-snaps:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				logger.L.Debug("websocket write failed", "session", m.ID(), "error", err)
				return
			}
		case <-gone:
			return
		}
	}
}
