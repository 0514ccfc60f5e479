package hub

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var (
	errClientClosed   = errors.New("client closed")
	errSendBufferFull = errors.New("client send buffer full")
)

// Client is one WebSocket connection attached to the hub
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	id   string
	send chan []byte

	// cancelled when the client is unregistered; in-flight run requests use it
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closed   bool
	userName string
}

// NewClient creates a Client with a fresh connection id
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:    hub,
		conn:   conn,
		id:     uuid.NewString(),
		send:   make(chan []byte, sendBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Run starts the read and write goroutines
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// Send queues a frame without blocking. Sending to a closed client is a no-op.
func (c *Client) Send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClientClosed
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return errSendBufferFull
	}
}

// close shuts the send queue and cancels the client's context. Safe to call twice.
func (c *Client) close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
	c.cancel()
}

// ReadPump reads frames and hands them to the hub in arrival order.
// When the connection ends it asks the hub to unregister the client.
func (c *Client) ReadPump() {
	logCtx := logrus.WithField("conn_id", c.id)
	defer func() {
		c.hub.requestUnregister(c)
		c.CloseConn()
		logCtx.Info("readPump exited")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				logCtx.Debug("WebSocket connection closed")
			}
			return
		}
		if messageType != websocket.TextMessage {
			logCtx.Debugf("Ignoring non-text message type: %d", messageType)
			continue
		}
		c.hub.HandleMessage(c, message)
	}
}

// WritePump writes queued frames to the connection and keeps it alive with pings
func (c *Client) WritePump() {
	logCtx := logrus.WithField("conn_id", c.id)
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.CloseConn()
		logCtx.Debug("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub closed the queue
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logCtx.WithError(err).Warn("Failed to write message to websocket")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logCtx.WithError(err).Debug("Failed to send ping message")
				return
			}
		}
	}
}

func (c *Client) ID() string               { return c.id }
func (c *Client) Context() context.Context { return c.ctx }

func (c *Client) UserName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userName
}

func (c *Client) setUserName(name string) {
	c.mu.Lock()
	c.userName = name
	c.mu.Unlock()
}

// CloseConn closes the underlying connection, which ends both pumps
func (c *Client) CloseConn() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
