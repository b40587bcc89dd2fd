package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// CORS already decides who may talk to the API
	CheckOrigin: func(r *http.Request) bool { return true },
}

// playerSocket streams now-playing snapshots: one on connect, one per store
// change and one per tick while playing so progress moves.
func (s *Server) playerSocket(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "requestID", requestID(r.Context()), "err", err)
		return
	}
	defer conn.Close()

	changes, cancel := sess.Store.Subscribe()
	defer cancel()

	// drain control frames; a read error means the client is gone
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func() bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(sess.View.NowPlaying()); err != nil {
			slog.Debug("websocket write failed", "guildID", sess.GuildID, "err", err)
			return false
		}
		return true
	}

	slog.Debug("websocket connected", "requestID", requestID(r.Context()), "guildID", sess.GuildID)
	if !send() {
		return
	}

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-sess.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "player stopped"),
				time.Now().Add(writeWait))
			return
		case _, ok := <-changes:
			if !ok || !send() {
				return
			}
		case <-ticker.C:
			if !sess.Store.Snapshot().IsPlaying {
				continue
			}
			if !send() {
				return
			}
		}
	}
}
