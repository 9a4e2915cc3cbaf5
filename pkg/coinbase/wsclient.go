package coinbase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const maxBackoff = 5 * time.Minute

var ErrMaxRetries = errors.New("coinbase: websocket reconnect retries exhausted")

// WSOptions configures a WSClient. Zero durations disable the matching feature.
type WSOptions struct {
	URL              string
	Products         []string
	Channels         []string
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
	HeartbeatTimeout time.Duration
	MaxRetries       int // 0 retries forever
	RetryDelay       time.Duration
}

// WSClient handles the websocket connection to the Coinbase feed and message routing.
type WSClient struct {
	opts    WSOptions
	handler func([]byte)
	logger  *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn

	lastFrame atomic.Int64 // unix nanos of the last frame read
}

// NewWSClient creates a new websocket client with the given options and logger.
func NewWSClient(opts WSOptions, logger *zap.Logger) *WSClient {
	if len(opts.Channels) == 0 {
		opts.Channels = []string{"ticker", "heartbeat"}
	}
	return &WSClient{
		opts:   opts,
		logger: logger,
	}
}

// SetMessageHandler sets the function to handle incoming messages.
// Frames are delivered one at a time, in arrival order.
func (c *WSClient) SetMessageHandler(h func([]byte)) {
	c.handler = h
}

// SetProducts replaces the product list used by the next subscription.
func (c *WSClient) SetProducts(products []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.Products = append([]string(nil), products...)
}

// Connect establishes the websocket connection and subscribes to the configured
// channels. It does not start the listener.
func (c *WSClient) Connect(ctx context.Context) error {
	if err := c.dialAndSubscribe(ctx); err != nil {
		c.logger.Error("failed to connect to websocket", zap.String("url", c.opts.URL), zap.Error(err))
		return err
	}
	c.logger.Info("websocket connected", zap.String("url", c.opts.URL), zap.Strings("products", c.products()))
	return nil
}

// Listen reads frames until ctx is cancelled, reconnecting and resubscribing
// with exponential backoff whenever the connection fails. It returns ctx.Err()
// on cancel or ErrMaxRetries when reconnecting gives up.
func (c *WSClient) Listen(ctx context.Context) error {
	stop := context.AfterFunc(ctx, c.closeConn)
	defer stop()

	go c.keepalive(ctx)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn := c.current()
		if conn == nil {
			if err := c.reconnect(ctx); err != nil {
				return err
			}
			continue
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("websocket read error", zap.Error(err))
			c.dropConn(conn)
			if err := c.reconnect(ctx); err != nil {
				return err
			}
			continue
		}

		c.touch()
		if c.handler != nil {
			c.handler(msg)
		}
	}
}

// Close closes the current connection. A running Listen will try to reconnect
// unless its context is cancelled.
func (c *WSClient) Close() error {
	c.closeConn()
	return nil
}

func (c *WSClient) reconnect(ctx context.Context) error {
	for attempt := 0; ; attempt++ {
		if c.opts.MaxRetries > 0 && attempt >= c.opts.MaxRetries {
			c.logger.Error("max reconnect retries reached", zap.Int("retries", attempt))
			return ErrMaxRetries
		}

		delay := backoff(c.opts.RetryDelay, attempt)
		c.logger.Warn("reconnecting to websocket",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", c.opts.MaxRetries),
			zap.Duration("delay", delay))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err := c.dialAndSubscribe(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("reconnect attempt failed", zap.Error(err))
			continue
		}
		c.logger.Info("reconnected successfully")
		return nil
	}
}

func (c *WSClient) dialAndSubscribe(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.opts.HandshakeTimeout}
	newConn, _, err := dialer.DialContext(ctx, c.opts.URL, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	subMsg := SubscribeRequest{
		Type:       "subscribe",
		ProductIDs: c.products(),
		Channels:   c.opts.Channels,
	}
	if err := newConn.WriteJSON(subMsg); err != nil {
		_ = newConn.Close()
		return fmt.Errorf("websocket subscribe failed: %w", err)
	}

	c.mu.Lock()
	old := c.conn
	c.conn = newConn
	c.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	// a cancel that raced the dial found no connection to close
	if err := ctx.Err(); err != nil {
		c.closeConn()
		return err
	}

	c.touch()
	return nil
}

// keepalive pings the server and recycles the connection when the feed goes
// quiet for longer than HeartbeatTimeout.
func (c *WSClient) keepalive(ctx context.Context) {
	var pingC, watchC <-chan time.Time
	if c.opts.PingInterval > 0 {
		t := time.NewTicker(c.opts.PingInterval)
		defer t.Stop()
		pingC = t.C
	}
	if c.opts.HeartbeatTimeout > 0 {
		t := time.NewTicker(c.opts.HeartbeatTimeout / 2)
		defer t.Stop()
		watchC = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-pingC:
			if conn := c.current(); conn != nil {
				deadline := time.Now().Add(10 * time.Second)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					c.logger.Debug("websocket ping failed", zap.Error(err))
				}
			}
		case <-watchC:
			idle := time.Since(time.Unix(0, c.lastFrame.Load()))
			if idle > c.opts.HeartbeatTimeout {
				c.logger.Warn("heartbeat timeout, recycling connection", zap.Duration("idle", idle))
				c.closeConn()
			}
		}
	}
}

func (c *WSClient) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *WSClient) products() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.opts.Products...)
}

// dropConn forgets conn if it is still the current connection.
func (c *WSClient) dropConn(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = conn.Close()
}

// closeConn closes the current connection without forgetting it, which makes
// the blocked reader fail and reconnect.
func (c *WSClient) closeConn() {
	if conn := c.current(); conn != nil {
		_ = conn.Close()
	}
}

func (c *WSClient) touch() {
	c.lastFrame.Store(time.Now().UnixNano())
}

// backoff returns base * 2^attempt, capped at maxBackoff.
func backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
