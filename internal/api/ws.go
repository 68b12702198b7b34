package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"vectra/internal/logging"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// handleStatusSocket streams job snapshots over a websocket. The subscriber
// immediately receives the current snapshot, then every change; the socket
// closes normally once a terminal snapshot has been delivered.
func (s *Server) handleStatusSocket(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]
	if _, err := s.manager.Get(jobID); err != nil {
		writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed",
			logging.String(logging.FieldJobID, jobID),
			logging.Error(err))
		return
	}
	defer conn.Close()

	sub := s.hub.Subscribe(jobID)
	defer sub.Cancel()

	// Drain client frames so close handshakes and pongs are processed.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pings := time.NewTicker(wsPingInterval)
	defer pings.Stop()

	for {
		select {
		case <-clientGone:
			return
		case <-pings.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case snap, ok := <-sub.Updates():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
			if snap.State.IsTerminal() {
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(snap.State)))
				return
			}
		}
	}
}
