package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-geochat/internal/session"
)

const (
	// maxDialAttempts bounds reconnection; after exhaustion the channel
	// stays disconnected until a caller explicitly reconnects.
	maxDialAttempts = 5
	backoffStep     = 2 * time.Second
)

// Backoff returns the wait before retry attempt n (1-based): linearly
// increasing, attempt × 2s.
func Backoff(attempt int) time.Duration {
	return time.Duration(attempt) * backoffStep
}

// MessageFunc receives decoded push messages.
type MessageFunc func(*session.Response)

// Channel is the optional realtime push channel. Responses arriving over
// the websocket are decoded exactly like HTTP chat responses and handed
// to the message handler.
type Channel struct {
	url     string
	handler MessageFunc
	dialer  *websocket.Dialer
	logger  *zap.Logger
	backoff func(int) time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewChannel creates a push channel for the given ws:// or wss:// URL.
func NewChannel(url string, handler MessageFunc, logger *zap.Logger) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{
		url:     url,
		handler: handler,
		dialer:  websocket.DefaultDialer,
		logger:  logger,
		backoff: Backoff,
	}
}

// Run connects and pumps messages until ctx is done or reconnection is
// exhausted. There is no silent infinite retry: once the bounded attempts
// are spent, Run returns and the channel stays down until the caller
// invokes Run again.
func (c *Channel) Run(ctx context.Context) error {
	for {
		conn, err := c.dial(ctx)
		if err != nil {
			return err
		}
		c.setConn(conn)
		c.readLoop(ctx, conn)
		c.setConn(nil)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Info("realtime channel lost, reconnecting")
	}
}

// Connected reports whether the socket is currently up.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Send pushes a query over the socket.
func (c *Channel) Send(query string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("realtime channel is disconnected")
	}
	return conn.WriteJSON(map[string]string{"query": query})
}

func (c *Channel) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	var lastErr error
	for attempt := 1; attempt <= maxDialAttempts; attempt++ {
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		c.logger.Warn("realtime dial failed",
			zap.Int("attempt", attempt), zap.Error(err))
		if attempt == maxDialAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.backoff(attempt)):
		}
	}
	return nil, fmt.Errorf("realtime channel: %d attempts exhausted: %w", maxDialAttempts, lastErr)
}

func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	for {
		var cr ChatResponse
		if err := conn.ReadJSON(&cr); err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("realtime read failed", zap.Error(err))
			}
			return
		}
		if c.handler != nil {
			c.handler(decode(&cr, c.logger))
		}
	}
}
