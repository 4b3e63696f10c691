package pushclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"PumpRadar/internal/domain/models"
	applogger "PumpRadar/pkg/logger"

	"github.com/gorilla/websocket"
)

// Client subscribes to a push channel and reconnects with exponential backoff.
// It keeps the latest snapshot seen in a hello or state event.
type Client struct {
	url     string
	dialer  *websocket.Dialer
	backoff *Backoff
	log     *applogger.Logger
	onEvent func(models.PushEvent)

	mu     sync.RWMutex
	latest *models.Snapshot
	seq    uint64
}

type Option func(*Client)

// WithBackoff overrides the default 1s..30s reconnect backoff.
func WithBackoff(initial, max time.Duration) Option {
	return func(c *Client) { c.backoff = NewBackoff(initial, max) }
}

// WithHandler registers a callback for every decoded event.
func WithHandler(fn func(models.PushEvent)) Option {
	return func(c *Client) { c.onEvent = fn }
}

func New(url string, l *applogger.Logger, opts ...Option) *Client {
	c := &Client{
		url:     url,
		dialer:  websocket.DefaultDialer,
		backoff: NewBackoff(time.Second, 30*time.Second),
		log:     l,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run connects and reads until ctx is done, reconnecting after every failure.
func (c *Client) Run(ctx context.Context) error {
	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		delay := c.backoff.Next()
		c.log.Warn("push channel lost",
			applogger.Error(err),
			applogger.Duration("retry_in_ms", delay),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// Latest returns the newest snapshot received and its sequence number.
func (c *Client) Latest() (*models.Snapshot, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest, c.seq
}

func (c *Client) session(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	c.backoff.Reset()
	c.log.Info("push channel connected", applogger.String("url", c.url))

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		var ev models.PushEvent
		if err := json.Unmarshal(b, &ev); err != nil {
			continue
		}
		if ev.Snapshot != nil {
			c.mu.Lock()
			c.latest = ev.Snapshot
			c.seq = ev.Seq
			c.mu.Unlock()
		}
		if c.onEvent != nil {
			c.onEvent(ev)
		}
	}
}
