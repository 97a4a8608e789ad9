package messenger

import (
	"bytes"
	"sync"
	"time"
)

// scriptConn is an in-memory Connection. Queued chunks are returned one read
// at a time; an empty queue behaves like a read timeout.
type scriptConn struct {
	mu      sync.Mutex
	chunks  [][]byte
	written bytes.Buffer
	readErr error

	// echo is appended to the read queue whenever it is written,
	// the way a device answers the handshake.
	echo []byte

	timeout    time.Duration
	reads      int
	flushedIn  int
	flushedOut int
	flushErr   error
}

func newScriptConn() *scriptConn {
	return &scriptConn{timeout: 2 * time.Millisecond}
}

// echoHandshake makes the connection answer the default handshake frame.
func (c *scriptConn) echoHandshake(frame []byte) *scriptConn {
	c.echo = frame
	return c
}

func (c *scriptConn) feed(chunks ...[]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range chunks {
		c.chunks = append(c.chunks, append([]byte(nil), ch...))
	}
}

// feedSplit queues data cut into pieces of the given sizes, cycling through them.
func (c *scriptConn) feedSplit(data []byte, sizes ...int) {
	for i := 0; len(data) > 0; i++ {
		n := sizes[i%len(sizes)]
		if n > len(data) {
			n = len(data)
		}
		c.feed(data[:n])
		data = data[n:]
	}
}

func (c *scriptConn) failReads(err error) {
	c.mu.Lock()
	c.readErr = err
	c.mu.Unlock()
}

func (c *scriptConn) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, ch := range c.chunks {
		n += len(ch)
	}
	return n
}

func (c *scriptConn) Read(p []byte) (int, error) {
	c.mu.Lock()
	c.reads++
	if len(c.chunks) == 0 {
		err := c.readErr
		c.mu.Unlock()
		if err != nil {
			return 0, err
		}
		time.Sleep(c.timeout)
		return 0, nil
	}
	ch := c.chunks[0]
	n := copy(p, ch)
	if n < len(ch) {
		c.chunks[0] = ch[n:]
	} else {
		c.chunks = c.chunks[1:]
	}
	c.mu.Unlock()
	return n, nil
}

func (c *scriptConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written.Write(p)
	if c.echo != nil && bytes.Equal(p, c.echo) {
		c.chunks = append(c.chunks, append([]byte(nil), p...))
	}
	return len(p), nil
}

func (c *scriptConn) FlushInput() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushedIn++
	return c.flushErr
}

func (c *scriptConn) FlushOutput() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushedOut++
	return c.flushErr
}

func (c *scriptConn) writtenBytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.written.Bytes()...)
}
