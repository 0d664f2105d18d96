package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vitrina/vitrina/pkg/auth"
	"github.com/vitrina/vitrina/pkg/realtime"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is token-authenticated; origin checks add nothing here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsInitMessage struct {
	Type     string `json:"type"`
	Mode     string `json:"mode"`
	Version  string `json:"version"`
	OwnerID  string `json:"owner_id"`
	Interval int    `json:"ping_interval_seconds"`
}

type wsFigureMessage struct {
	Type   string              `json:"type"`
	Figure realtime.FigureEvent `json:"figure"`
}

// HandleFirehoseWS streams ingestion events for the authenticated owner
// over a WebSocket. Browsers cannot set an Authorization header on a
// WebSocket handshake, so the token may also arrive as a query parameter.
func (s *Server) HandleFirehoseWS(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Firehose unavailable", "Realtime hub is not configured")
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		header := r.Header.Get("Authorization")
		if len(header) > 7 && header[:7] == "Bearer " {
			token = header[7:]
		}
	}
	ownerID, err := auth.UserIDFromToken(token, s.jwtSecret)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "Unauthorized", "A valid token is required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.logger.Debugf("websocket upgrade failed: %v", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	listenerID, events := s.hub.Register()
	defer s.hub.Unregister(listenerID)

	init := wsInitMessage{
		Type:     "init",
		Mode:     "push",
		Version:  "v1",
		OwnerID:  ownerID,
		Interval: int(wsPingInterval.Seconds()),
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(init); err != nil {
		return
	}

	// Drain client frames so pings and close handshakes are processed.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(wsPingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-clientGone:
			return
		case <-pingTicker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.OwnerID != ownerID {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(wsFigureMessage{Type: "figure", Figure: ev}); err != nil {
				return
			}
		}
	}
}
