package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned by Send while no relay session is open.
var ErrNotConnected = errors.New("relay not connected")

// ClientConfig holds the relay connection settings.
type ClientConfig struct {
	URL          string
	Name         string
	PingInterval time.Duration
	IdleTimeout  time.Duration
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
}

// DefaultClientConfig returns the relay defaults for url.
func DefaultClientConfig(url string) ClientConfig {
	return ClientConfig{
		URL:          url,
		Name:         "campus_nav",
		PingInterval: 20 * time.Second,
		IdleTimeout:  45 * time.Second,
		BaseBackoff:  500 * time.Millisecond,
		MaxBackoff:   10 * time.Second,
	}
}

// Backoff returns the delay before reconnect attempt n (0-based):
// base*2^n capped at limit.
func Backoff(n int, base, limit time.Duration) time.Duration {
	d := base
	for i := 0; i < n && d < limit; i++ {
		d *= 2
	}
	return min(d, limit)
}

// Client keeps a websocket session to the relay open and hands decoded
// events to a callback. The callback runs on the read goroutine and must not
// block.
type Client struct {
	cfg    ClientConfig
	dialer *websocket.Dialer

	onEvent func(Event)

	mu        sync.Mutex // serializes writes and guards conn
	conn      *websocket.Conn
	connected atomic.Bool
}

// NewClient creates a relay client. Call Run to connect.
func NewClient(cfg ClientConfig) *Client {
	def := DefaultClientConfig(cfg.URL)
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = def.BaseBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	return &Client{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// OnEvent registers the inbound event handler.
func (c *Client) OnEvent(fn func(Event)) {
	c.onEvent = fn
}

// Connected reports whether a relay session is open.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Send writes an envelope of type t carrying v.
func (c *Client) Send(t EventType, v any) error {
	msg, err := encode(t, v)
	if err != nil {
		return err
	}
	return c.write(msg)
}

func (c *Client) write(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

func (c *Client) writeEnvelope(env Envelope) error {
	msg, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.write(msg)
}

// Run connects and reconnects until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0
	for {
		opened, err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if opened {
			attempt = 0
		}
		wait := Backoff(attempt, c.cfg.BaseBackoff, c.cfg.MaxBackoff)
		attempt++
		log.Warnf("Relay session ended: %v, reconnecting in %s", err, wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// session runs one connection until it fails. opened reports whether the
// handshake succeeded.
func (c *Client) session(ctx context.Context) (opened bool, err error) {
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.connected.Store(true)
	log.Infof("Connected to relay %s", c.cfg.URL)

	done := make(chan struct{})
	defer func() {
		close(done)
		c.connected.Store(false)
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}()

	if err := c.writeEnvelope(Envelope{Type: EventHello, Client: c.cfg.Name}); err != nil {
		return true, fmt.Errorf("hello: %w", err)
	}

	go func() {
		ticker := time.NewTicker(c.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case t := <-ticker.C:
				if err := c.writeEnvelope(Envelope{Type: EventPing, T: t.UnixMilli()}); err != nil {
					log.Debugf("Ping failed: %v", err)
				}
			}
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(c.cfg.IdleTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		ev, err := Decode(raw)
		if err != nil {
			log.Debugf("Dropping relay message: %v", err)
			continue
		}
		switch ev.Type {
		case EventPing:
			if err := c.writeEnvelope(Envelope{Type: EventPong, T: time.Now().UnixMilli()}); err != nil {
				log.Debugf("Pong failed: %v", err)
			}
		case EventPong, EventHello:
		default:
			if c.onEvent != nil {
				c.onEvent(ev)
			}
		}
	}
}
