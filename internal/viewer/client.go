package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const (
	sendBuffer     = 256
	incomingBuffer = 64
	writeTimeout   = 5 * time.Second
)

// Client keeps a websocket connection to the image viewer. Outgoing messages
// are queued and written by a single writer; incoming messages are delivered
// on Incoming.
type Client struct {
	url    string
	dialer *websocket.Dialer
	logger *slog.Logger

	send     chan Message
	incoming chan Message

	mu        sync.RWMutex
	connected bool
	dropped   int
}

// NewClient creates a client for the viewer at url (ws:// or wss://)
func NewClient(url string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url: url,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		logger:   logger,
		send:     make(chan Message, sendBuffer),
		incoming: make(chan Message, incomingBuffer),
	}
}

// Send queues a message. It reports false when the queue is full and the
// message was dropped.
func (c *Client) Send(msg Message) bool {
	select {
	case c.send <- msg:
		return true
	default:
		c.mu.Lock()
		c.dropped++
		c.mu.Unlock()
		c.logger.Warn("viewer queue full, message dropped", "type", msg.Type)
		return false
	}
}

// Incoming delivers messages received from the viewer
func (c *Client) Incoming() <-chan Message {
	return c.incoming
}

// Connected reports whether the connection is up
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Dropped returns the number of messages dropped because the queue was full
func (c *Client) Dropped() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dropped
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// Run connects and pumps messages until ctx is cancelled or the connection
// fails. Cancellation closes the connection gracefully and returns nil.
func (c *Client) Run(ctx context.Context) error {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("failed to connect to viewer (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("failed to connect to viewer: %w", err)
	}
	c.setConnected(true)
	defer c.setConnected(false)
	c.logger.Info("viewer connected", "url", c.url)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.readLoop(gctx, conn)
	})

	g.Go(func() error {
		return c.writeLoop(gctx, conn)
	})

	// closing the connection unblocks the reader
	g.Go(func() error {
		<-gctx.Done()
		return conn.Close()
	})

	err = g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errViewerClosed
			}
			return fmt.Errorf("failed to read viewer message: %w", err)
		}

		select {
		case c.incoming <- msg:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Client) writeLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			deadline := time.Now().Add(writeTimeout)
			// Ignore close errors as connection might already be closed
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			return nil
		case msg := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				return fmt.Errorf("failed to send viewer message '%s': %w", msg.Type, err)
			}
		}
	}
}

// errViewerClosed stops the group when the viewer hangs up
var errViewerClosed = errors.New("viewer closed the connection")

// IsClosed reports whether err means the viewer ended the session normally
func IsClosed(err error) bool {
	return errors.Is(err, errViewerClosed)
}
