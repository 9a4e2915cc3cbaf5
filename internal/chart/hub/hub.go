// Package hub pushes chart figures to browsers over websocket.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"livechart/internal/chart/figure"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var ErrClosed = errors.New("hub: closed")

// Hub is the set of connected browser clients. Every client holds at most one
// pending figure; a newer figure replaces an unsent one.
type Hub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
	latest  []byte
	closed  bool
}

type client struct {
	id      string
	conn    *websocket.Conn
	mailbox chan []byte
	done    chan struct{}
	once    sync.Once
}

func New(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		clients: make(map[string]*client),
	}
}

// Render serializes fig once and hands it to every connected client.
func (h *Hub) Render(_ context.Context, fig figure.Figure) error {
	data, err := json.Marshal(fig)
	if err != nil {
		return fmt.Errorf("marshal figure: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}

	h.latest = data
	for _, c := range h.clients {
		c.deliver(data)
	}
	return nil
}

// ServeWS upgrades the request and streams figures until the browser goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:      uuid.NewString(),
		conn:    conn,
		mailbox: make(chan []byte, 1),
		done:    make(chan struct{}),
	}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	h.logger.Info("chart client connected", zap.String("client", c.id), zap.String("remote", r.RemoteAddr))

	go h.writePump(c)
	h.readPump(c)

	h.unregister(c)
	h.logger.Info("chart client disconnected", zap.String("client", c.id))
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects further renders.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[string]*client)
	h.mu.Unlock()

	for _, c := range clients {
		c.stop()
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	if h.latest != nil {
		c.deliver(h.latest)
	}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
	c.stop()
}

// readPump discards browser input; it exists to process pongs and notice closes.
func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("chart client read error", zap.String("client", c.id), zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.mailbox:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("chart client write failed", zap.String("client", c.id), zap.Error(err))
				c.stop()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.stop()
				return
			}
		case <-c.done:
			return
		}
	}
}

// deliver replaces any pending figure with msg. Callers hold the hub lock, so
// there is a single producer per mailbox.
func (c *client) deliver(msg []byte) {
	select {
	case c.mailbox <- msg:
		return
	default:
	}
	select {
	case <-c.mailbox:
	default:
	}
	select {
	case c.mailbox <- msg:
	default:
	}
}

func (c *client) stop() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
