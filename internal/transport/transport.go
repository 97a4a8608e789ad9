package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/framelink/internal/config"
	"github.com/muurk/framelink/internal/logging"
)

// DefaultReadTimeout bounds a single Read when no timeout is given.
const DefaultReadTimeout = config.DefaultReadTimeout

// ErrNoDeadline is returned by OpenSerial for files that cannot time out reads.
var ErrNoDeadline = errors.New("transport: device does not support read deadlines")

// Open connects to the endpoint described by ep.
func Open(ctx context.Context, ep config.Endpoint) (Conn, error) {
	if ep.Address == "" {
		return nil, fmt.Errorf("transport: %s endpoint has no address", ep.Transport)
	}

	var (
		conn Conn
		err  error
	)
	switch ep.Transport {
	case config.TransportSerial:
		conn, err = OpenSerial(ep.Address, ep.Timeout())
	case config.TransportTCP:
		conn, err = DialTCP(ctx, ep.Address, ep.Timeout())
	case config.TransportWebSocket:
		conn, err = DialWebSocket(ctx, ep.Address, ep.Timeout())
	default:
		return nil, fmt.Errorf("transport: unknown transport %q", ep.Transport)
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// DialTCP connects to a TCP serial bridge such as ser2net.
func DialTCP(ctx context.Context, addr string, readTimeout time.Duration) (*Stream, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}

	logging.LogConnection(addr, "tcp_connected")
	return NewStream(conn, readTimeout, addr), nil
}

// OpenSerial opens a serial character device. Line settings (baud rate,
// parity) are expected to be configured already, for example with stty.
func OpenSerial(path string, readTimeout time.Duration) (*Stream, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open serial device: %w", err)
	}

	if err := f.SetReadDeadline(time.Time{}); err != nil {
		_ = f.Close()
		if errors.Is(err, os.ErrNoDeadline) {
			return nil, fmt.Errorf("%w: %s", ErrNoDeadline, path)
		}
		return nil, fmt.Errorf("open serial device: %w", err)
	}

	logging.Info("Serial device opened",
		zap.String("path", path),
		zap.Duration("read_timeout", readTimeout),
	)
	return NewStream(f, readTimeout, path), nil
}
