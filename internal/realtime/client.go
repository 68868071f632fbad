package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aafarian/hantibink-sub003/internal/api"
)

var ErrNotConnected = errors.New("realtime client is not connected")

type Config struct {
	URL              string
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
}

// Client owns one websocket connection to the live channel and feeds its
// frames into the embedded Dispatcher.
type Client struct {
	*Dispatcher

	cfg    Config
	tokens api.TokenSource
	log    *zap.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	done   chan struct{}
	cancel context.CancelFunc
}

func NewClient(cfg Config, tokens api.TokenSource, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 25 * time.Second
	}
	return &Client{
		Dispatcher: NewDispatcher(log),
		cfg:        cfg,
		tokens:     tokens,
		log:        log,
	}
}

// Connect dials the channel and starts the read loop. The connection lives
// until Close or ctx cancellation.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	header := http.Header{}
	if c.tokens != nil {
		if token := c.tokens.AccessToken(); token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}

	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return fmt.Errorf("dial realtime channel (status %d): %w", status, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.conn = conn
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.readLoop(runCtx, conn)
	go c.pingLoop(runCtx, conn)

	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	go func() {
		<-c.done
		stop()
	}()

	c.log.Info("realtime channel connected", zap.String("url", c.cfg.URL))
	return nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer close(c.done)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("realtime read failed", zap.Error(err))
			}
			return
		}
		c.Dispatch(raw)
	}
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// Close tears the connection down and stops the loops. Safe to call twice.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	cancel := c.cancel
	done := c.done
	c.conn = nil
	c.cancel = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	err := conn.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
	return err
}
