package api

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// logEvent is one combat-log line pushed to a watcher.
type logEvent struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// handleWatch upgrades to a websocket and streams the player's combat-log
// lines as they happen. The socket closes when the client goes away or the
// server shuts down; missing a line is acceptable, the authoritative log is
// in the store.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	pid, ok := playerID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing or invalid " + playerHeader})
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logrus.WithError(err).Debug("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	lines, cancel := s.svc.Notifier().Subscribe(pid)
	defer cancel()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			writeCtx, done := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, logEvent{Message: line, At: time.Now().UTC()})
			done()
			if err != nil {
				logrus.WithError(err).Debug("Websocket write failed, dropping watcher")
				return
			}
		}
	}
}
