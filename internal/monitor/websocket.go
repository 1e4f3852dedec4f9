package monitor

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Handler serves the event feed over WebSocket.
type Handler struct {
	hub            *Hub
	originPatterns []string
}

// NewHandler creates a feed handler. allowedOrigins are full origins or
// "*"; only their host part is matched.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	patterns := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if _, host, ok := strings.Cut(origin, "://"); ok {
			origin = host
		}
		patterns = append(patterns, origin)
	}
	return &Handler{hub: hub, originPatterns: patterns}
}

// wsMessage is a control message from the client.
type wsMessage struct {
	Type string `json:"type"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "ip", r.RemoteAddr)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "feed ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	sub, err := h.hub.Subscribe()
	if err != nil {
		_ = ws.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer h.hub.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		defer cancel()
		h.readLoop(ctx, ws, sub.ID)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				_ = ws.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if err := wsjson.Write(ctx, ws, event); err != nil {
				slog.Debug("Failed to write event", "error", err, "subscriber_id", sub.ID)
				return
			}
		}
	}
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, subscriberID string) {
	for {
		var msg wsMessage
		if err := wsjson.Read(ctx, ws, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "subscriber_id", subscriberID)
			} else if ctx.Err() == nil {
				slog.Debug("WebSocket read error", "error", err, "subscriber_id", subscriberID)
			}
			return
		}
		if msg.Type == "ping" {
			if err := wsjson.Write(ctx, ws, wsMessage{Type: "pong"}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
				return
			}
		}
	}
}
