package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/framelink/internal/config"
	"github.com/muurk/framelink/internal/discovery"
	"github.com/muurk/framelink/internal/logging"
	"github.com/muurk/framelink/internal/messenger"
	"github.com/muurk/framelink/internal/transport"
)

// Connection flags shared by listen and monitor
var (
	connTransport string
	connAddress   string
	connTimeout   time.Duration
	connDiscover  bool
	bridgeName    string
)

func addConnectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&connTransport, "transport", "", "Override the configured transport (serial, tcp, websocket)")
	cmd.Flags().StringVar(&connAddress, "address", "", "Override the configured address (device path, host:port or ws:// URL)")
	cmd.Flags().DurationVar(&connTimeout, "read-timeout", 0, "Override the configured read timeout")
	cmd.Flags().BoolVar(&connDiscover, "discover", false, "Find a bridge via mDNS instead of using the configured address")
	cmd.Flags().StringVar(&bridgeName, "bridge", "", "Bridge instance name to wait for when discovering (default: first found)")
}

// frameHandler receives every decoded message of a session.
type frameHandler func(id int, name string, labels []string, fields []any)

// session is an open connection with a messenger registered for every
// configured message.
type session struct {
	cfg      *config.Config
	endpoint config.Endpoint
	conn     transport.Conn
	m        *messenger.Messenger
	once     sync.Once
}

// loadConfig reads the configuration file and applies the connection flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	applyConnectionFlags(&cfg.Connection)
	return cfg, nil
}

func applyConnectionFlags(ep *config.Endpoint) {
	if connTransport != "" {
		ep.Transport = connTransport
	}
	if connAddress != "" {
		ep.Address = connAddress
		ep.Discover = false
	}
	if connTimeout > 0 {
		ep.ReadTimeout = config.Duration(connTimeout)
	}
	if connDiscover {
		ep.Discover = true
	}
}

// resolveEndpoint turns a discover endpoint into a concrete bridge address.
func resolveEndpoint(ctx context.Context, ep config.Endpoint) (config.Endpoint, error) {
	if !ep.Discover {
		return ep, nil
	}

	fmt.Printf("Looking for a framelink bridge (timeout: %s)...\n", discovery.DefaultScanTimeout)
	b, err := discovery.NewScanner().WaitForBridge(ctx, bridgeName)
	if err != nil {
		return ep, fmt.Errorf("discovery failed: %w", err)
	}
	fmt.Printf("Found %s\n\n", b)
	return b.Endpoint(ep.Timeout()), nil
}

// openSession connects to the configured device and registers a handler for
// every configured message. The messenger is not started.
func openSession(ctx context.Context, cfg *config.Config, handle frameHandler) (*session, error) {
	ep, err := resolveEndpoint(ctx, cfg.Connection)
	if err != nil {
		return nil, err
	}

	conn, err := transport.Open(ctx, ep)
	if err != nil {
		return nil, err
	}

	m, err := messenger.New(conn, cfg.Protocol.MessengerConfig())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	for _, spec := range cfg.Messages {
		name := cfg.Label(spec.ID)
		labels := spec.Fields
		if err := m.Register(spec.ID, func(id int, fields []any) error {
			handle(id, name, labels, fields)
			return nil
		}, spec.Layout); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("message %s: %w", name, err)
		}
	}

	logging.Info("Session opened",
		zap.String("transport", ep.Transport),
		zap.String("address", ep.Address),
		zap.Int("messages", len(cfg.Messages)),
	)
	return &session{cfg: cfg, endpoint: ep, conn: conn, m: m}, nil
}

// describe returns "transport address" for headers.
func (s *session) describe() string {
	return s.endpoint.Transport + " " + s.endpoint.Address
}

// close stops the messenger, then releases the connection.
func (s *session) close() {
	s.once.Do(func() {
		_ = s.m.Close()
		if err := s.conn.Close(); err != nil {
			logging.Warn("Failed to close connection", zap.Error(err))
		}
	})
}

func statsDetails(st messenger.Stats) map[string]string {
	return map[string]string{
		"Bytes read": strconv.FormatUint(st.BytesRead, 10),
		"Frames":     strconv.FormatUint(st.Frames, 10),
		"Dispatched": strconv.FormatUint(st.Dispatched, 10),
		"Dropped":    strconv.FormatUint(st.Dropped, 10),
	}
}

// failureHints suggests fixes for common session failures.
func failureHints(err error) []string {
	switch {
	case errors.Is(err, messenger.ErrHandshakeTimeout):
		return []string{
			"Check that the handshake token matches the device firmware",
			"Set protocol.handshake to \"\" if the device does not echo a handshake",
			"Increase protocol.handshake_timeout for slow devices",
		}
	case errors.Is(err, messenger.ErrRunLoopFault):
		return []string{
			"Check that each message layout matches what the device sends",
			"Run with --log-level debug to see raw frames",
		}
	case errors.Is(err, transport.ErrNoDeadline):
		return []string{"The address is not a serial device; use --transport tcp or websocket"}
	default:
		return nil
	}
}
