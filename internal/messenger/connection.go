package messenger

import (
	"errors"
	"net"
	"os"
)

// Connection is the duplex byte channel the messenger owns while running.
//
// Read must return within the connection's read timeout. A timed-out read
// may return (0, nil) or an error for which IsTimeout is true; both count as
// an empty read. Any other error stops the messenger.
type Connection interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	FlushInput() error
	FlushOutput() error
}

// IsTimeout reports whether err is a read timeout rather than a failure.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
