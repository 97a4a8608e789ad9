package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/framelink/internal/config"
	"github.com/muurk/framelink/internal/discovery"
	"github.com/muurk/framelink/internal/logging"
	"github.com/muurk/framelink/internal/transport"
)

// DefaultPath is the WebSocket request path when none is configured.
const DefaultPath = "/stream"

// ErrBusy is logged when a client connects while another one is attached.
var ErrBusy = errors.New("bridge: device already has a client")

// Config holds the bridge configuration
type Config struct {
	Host        string
	Port        int
	Transport   string        // config.TransportTCP or config.TransportWebSocket
	Path        string        // WebSocket request path
	Instance    string        // mDNS instance name (empty = do not announce)
	ReadTimeout time.Duration // Bound on a single read from either side
}

// Server exposes one device connection to a single network client at a time.
type Server struct {
	config *Config
	device transport.Conn

	listener net.Listener
	httpSrv  *http.Server
	upgrader websocket.Upgrader
	announce *discovery.Announcement

	wg         sync.WaitGroup
	mu         sync.Mutex
	closing    bool // set by Shutdown; no client is attached afterwards
	claiming   bool // a client is flushing the device before it attaches
	active     transport.Conn
	activeAddr string
	sessions   int
}

// New creates a bridge for device.
func New(device transport.Conn, cfg *Config) (*Server, error) {
	if device == nil {
		return nil, fmt.Errorf("bridge: nil device")
	}
	c := *cfg
	switch c.Transport {
	case "":
		c.Transport = config.TransportTCP
	case config.TransportTCP, config.TransportWebSocket:
	default:
		return nil, fmt.Errorf("bridge: unsupported transport %q", c.Transport)
	}
	if c.Transport == config.TransportWebSocket && c.Path == "" {
		c.Path = DefaultPath
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = transport.DefaultReadTimeout
	}

	return &Server{
		config: &c,
		device: device,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}, nil
}

// Listen opens the listening socket and returns its address.
func (s *Server) Listen() (net.Addr, error) {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %w", err)
	}
	s.listener = listener

	logging.Info("Bridge listening for connections",
		zap.String("addr", listener.Addr().String()),
		zap.String("transport", s.config.Transport),
	)
	return listener.Addr(), nil
}

// Serve accepts clients until ctx is cancelled. It calls Listen if needed.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if _, err := s.Listen(); err != nil {
			return err
		}
	}

	if s.config.Instance != "" {
		port := s.listener.Addr().(*net.TCPAddr).Port
		a, err := discovery.Announce(s.config.Instance, port, s.config.Transport, s.config.Path)
		if err != nil {
			logging.Warn("mDNS announcement failed", zap.Error(err))
		}
		s.announce = a
	}

	errChan := make(chan error, 1)
	go func() {
		if s.config.Transport == config.TransportWebSocket {
			errChan <- s.serveWebSocket(ctx)
			return
		}
		errChan <- s.acceptConnections(ctx)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown requested, stopping bridge...")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		_ = s.Shutdown(context.Background())
		return err
	}
}

// acceptConnections accepts raw TCP clients.
func (s *Server) acceptConnections(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logging.Error("Failed to accept connection", zap.Error(err))
			continue
		}
		if tc, ok := conn.(*net.TCPConn); ok {
			_ = tc.SetNoDelay(true)
		}

		remoteAddr := conn.RemoteAddr().String()
		if !s.track() {
			_ = conn.Close()
			return nil
		}
		go func() {
			defer s.wg.Done()
			s.attach(ctx, transport.NewStream(conn, s.config.ReadTimeout, remoteAddr), remoteAddr)
		}()
	}
}

// serveWebSocket upgrades requests on the configured path.
func (s *Server) serveWebSocket(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(s.config.Path, func(w http.ResponseWriter, r *http.Request) {
		if !s.track() {
			http.Error(w, "bridge is shutting down", http.StatusServiceUnavailable)
			return
		}
		defer s.wg.Done()

		ws, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Error("WebSocket upgrade failed",
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			return
		}
		s.attach(ctx, transport.NewWebSocket(ws, r.RemoteAddr, s.config.ReadTimeout), r.RemoteAddr)
	})

	s.mu.Lock()
	s.httpSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	srv := s.httpSrv
	s.mu.Unlock()

	err := srv.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// track counts a client handler in wg unless Shutdown has begun.
func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.wg.Add(1)
	return true
}

// attach pipes bytes between client and the device until either side fails,
// the client disconnects or ctx is cancelled.
func (s *Server) attach(ctx context.Context, client transport.Conn, remoteAddr string) {
	s.mu.Lock()
	if s.closing || s.active != nil || s.claiming {
		busy := s.activeAddr
		s.mu.Unlock()
		logging.Warn("Rejecting client",
			zap.String("remote_addr", remoteAddr),
			zap.String("active_client", busy),
			zap.Error(ErrBusy),
		)
		_ = client.Close()
		return
	}
	s.claiming = true
	s.mu.Unlock()

	// Stale device output is not meant for the new client.
	if err := s.device.FlushInput(); err != nil {
		logging.Warn("Failed to flush device input", zap.Error(err))
	}

	s.mu.Lock()
	s.claiming = false
	if s.closing {
		s.mu.Unlock()
		_ = client.Close()
		return
	}
	s.active = client
	s.activeAddr = remoteAddr
	s.sessions++
	s.mu.Unlock()

	logging.LogConnection(remoteAddr, "client_attached")

	defer func() {
		_ = client.Close()
		s.mu.Lock()
		s.active = nil
		s.activeAddr = ""
		s.mu.Unlock()
		logging.LogConnection(remoteAddr, "client_detached")
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer cancel()
		if err := pump(ctx, s.device, client); err != nil {
			logging.Info("Device to client stream ended", zap.String("remote_addr", remoteAddr), zap.Error(err))
		}
	}()
	go func() {
		defer wg.Done()
		defer cancel()
		if err := pump(ctx, client, s.device); err != nil {
			logging.Info("Client to device stream ended", zap.String("remote_addr", remoteAddr), zap.Error(err))
		}
	}()
	wg.Wait()
}

// pump copies src to dst until ctx ends or either side fails.
// src reads are bounded by its read timeout, so cancellation is noticed
// within one timeout.
func pump(ctx context.Context, src, dst transport.Conn) error {
	buf := make([]byte, 4096)
	for ctx.Err() == nil {
		n, err := src.Read(buf)
		if n > 0 {
			logging.LogRawBytes("Bridged chunk", buf[:n])
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write: %w", werr)
			}
		}
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
	}
	return nil
}

// Shutdown stops accepting clients, detaches the active one and withdraws
// the mDNS announcement.
func (s *Server) Shutdown(ctx context.Context) error {
	s.announce.Shutdown()

	s.mu.Lock()
	s.closing = true
	httpSrv := s.httpSrv
	active := s.active
	s.mu.Unlock()

	if httpSrv != nil {
		_ = httpSrv.Close()
	} else if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}
	if active != nil {
		_ = active.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("Bridge stopped")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	case <-time.After(10 * time.Second):
		logging.Warn("Shutdown timeout after 10 seconds, forcing close")
	}
	return nil
}

// Sessions returns the number of clients that have been attached so far.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions
}

// Attached reports whether a client is currently attached.
func (s *Server) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}
