package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"codybuddy/internal/hub"
)

// WebSocketHandler upgrades HTTP requests and attaches the connection to the hub
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
}

// NewWebSocketHandler creates a WebSocketHandler. An empty allowedOrigin accepts any origin.
func NewWebSocketHandler(h *hub.Hub, allowedOrigin string) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" || allowedOrigin == "*" {
				return true
			}
			origin := r.Header.Get("Origin")
			// non-browser clients send no Origin
			return origin == "" || origin == allowedOrigin
		},
	}

	return &WebSocketHandler{
		upgrader: upgrader,
		hub:      h,
	}
}

// HandleConnection serves GET /ws. Rooms are joined afterwards with joinRoom events.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	logCtx := logrus.WithField("client_ip", c.ClientIP())

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		logCtx.WithError(err).Warn("WS Handler: failed to upgrade connection")
		return
	}

	client := hub.NewClient(h.hub, conn)
	logCtx = logCtx.WithField("conn_id", client.ID())

	if !h.hub.Register(client) {
		logCtx.Warn("WS Handler: hub is stopped, closing connection")
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		client.CloseConn()
		return
	}

	client.Run()
	logCtx.Info("WS Handler: client connected")
}
