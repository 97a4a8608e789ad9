package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/framelink/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Messages buffered between the reader goroutine and Read
	inboxSize = 64
)

// WebSocket carries the byte stream over a WebSocket. Each binary or text
// message received is appended to the stream; message boundaries carry no
// meaning. Writes are sent as single binary messages.
type WebSocket struct {
	ws      *websocket.Conn
	url     string
	timeout time.Duration

	inbox   chan []byte
	pending []byte

	mu      sync.Mutex
	readErr error

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

var _ Conn = (*WebSocket)(nil)

// DialWebSocket connects to a WebSocket bridge at url.
func DialWebSocket(ctx context.Context, url string, readTimeout time.Duration) (*WebSocket, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	logging.LogConnection(url, "websocket_connected")
	return NewWebSocket(ws, url, readTimeout), nil
}

// NewWebSocket wraps an established connection and starts its reader.
func NewWebSocket(ws *websocket.Conn, url string, readTimeout time.Duration) *WebSocket {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	c := &WebSocket{
		ws:      ws,
		url:     url,
		timeout: readTimeout,
		inbox:   make(chan []byte, inboxSize),
		closed:  make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// readLoop pumps messages into the inbox. gorilla/websocket connections
// cannot be read again after a read deadline expires, so reads here block
// and Read applies the timeout on the channel instead.
func (c *WebSocket) readLoop() {
	defer close(c.inbox)
	for {
		typ, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = io.EOF
			}
			c.mu.Lock()
			c.readErr = err
			c.mu.Unlock()

			logging.Debug("WebSocket reader stopped",
				zap.String("url", c.url),
				zap.Error(err),
			)
			return
		}
		if typ != websocket.BinaryMessage && typ != websocket.TextMessage {
			continue
		}
		select {
		case c.inbox <- data:
		case <-c.closed:
			return
		}
	}
}

func (c *WebSocket) Read(p []byte) (int, error) {
	if len(c.pending) == 0 {
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()

		select {
		case data, ok := <-c.inbox:
			if !ok {
				return 0, c.err()
			}
			c.pending = data
		case <-timer.C:
			return 0, nil
		case <-c.closed:
			return 0, io.ErrClosedPipe
		}
	}

	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

func (c *WebSocket) err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr == nil {
		return io.EOF
	}
	return c.readErr
}

func (c *WebSocket) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return 0, err
	}
	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// FlushInput discards every message received so far.
func (c *WebSocket) FlushInput() error {
	c.pending = nil
	for {
		select {
		case _, ok := <-c.inbox:
			if !ok {
				return nil
			}
		default:
			return nil
		}
	}
}

// FlushOutput is a no-op; WriteMessage sends each write immediately.
func (c *WebSocket) FlushOutput() error {
	return nil
}

// Close sends a close frame and closes the connection.
func (c *WebSocket) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)

		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.writeMu.Unlock()

		err = c.ws.Close()
		if errors.Is(err, io.ErrClosedPipe) {
			err = nil
		}
		logging.LogConnection(c.url, "websocket_closed")
	})
	return err
}
