package transport

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/muurk/framelink/internal/messenger"
)

// drainWindow is how long FlushInput waits for more input before it
// considers the receive side empty.
const drainWindow = 5 * time.Millisecond

// maxDrain bounds FlushInput against a peer that never stops sending.
const maxDrain = 1 << 20

// Conn is a messenger.Connection that can be closed.
type Conn interface {
	messenger.Connection
	io.Closer
}

// DeadlineReadWriter is a byte stream with read deadlines, such as a net.Conn
// or an *os.File opened on a tty.
type DeadlineReadWriter interface {
	io.ReadWriter
	SetReadDeadline(t time.Time) error
}

// Stream adapts a DeadlineReadWriter to messenger.Connection. Every Read
// waits at most the read timeout and reports a timeout as (0, nil).
type Stream struct {
	rw      DeadlineReadWriter
	timeout time.Duration
	name    string
}

var _ Conn = (*Stream)(nil)

// NewStream wraps rw. A non-positive timeout selects the default.
func NewStream(rw DeadlineReadWriter, readTimeout time.Duration, name string) *Stream {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	return &Stream{rw: rw, timeout: readTimeout, name: name}
}

// Name identifies the remote end in logs.
func (s *Stream) Name() string { return s.name }

// Timeout returns the read timeout.
func (s *Stream) Timeout() time.Duration { return s.timeout }

func (s *Stream) Read(p []byte) (int, error) {
	if err := s.rw.SetReadDeadline(time.Now().Add(s.timeout)); err != nil {
		return 0, fmt.Errorf("set read deadline: %w", err)
	}
	n, err := s.rw.Read(p)
	if messenger.IsTimeout(err) {
		err = nil
	}
	return n, err
}

func (s *Stream) Write(p []byte) (int, error) {
	return s.rw.Write(p)
}

// FlushInput discards input that has already arrived.
func (s *Stream) FlushInput() error {
	defer func() { _ = s.rw.SetReadDeadline(time.Time{}) }()

	scratch := make([]byte, 512)
	for total := 0; total < maxDrain; {
		if err := s.rw.SetReadDeadline(time.Now().Add(drainWindow)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}
		n, err := s.rw.Read(scratch)
		total += n
		if messenger.IsTimeout(err) || (n == 0 && err == nil) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// FlushOutput flushes the underlying stream if it buffers writes.
func (s *Stream) FlushOutput() error {
	if f, ok := s.rw.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close closes the underlying stream if it is an io.Closer.
func (s *Stream) Close() error {
	if c, ok := s.rw.(io.Closer); ok {
		err := c.Close()
		if errors.Is(err, io.ErrClosedPipe) {
			return nil
		}
		return err
	}
	return nil
}
