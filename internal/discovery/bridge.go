package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/muurk/framelink/internal/config"
)

// TXT record keys advertised by a bridge.
const (
	TxtTransport = "transport"
	TxtPath      = "path"
)

// Bridge represents a framelink bridge discovered on the network: a host
// that exposes a serial device over TCP or WebSocket.
type Bridge struct {
	// Instance is the mDNS service instance name (e.g., "bench-scope")
	Instance string

	// Hostname is the mDNS hostname (e.g., "pi-lab.local.")
	Hostname string

	// IP is the preferred address, IPv4 when available
	IP string

	// Port is the bridge's TCP port
	Port int

	// Transport is config.TransportTCP or config.TransportWebSocket
	Transport string

	// Path is the WebSocket request path (e.g., "/stream")
	Path string

	// Metadata contains all mDNS TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the bridge was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the bridge
func (b *Bridge) String() string {
	return fmt.Sprintf("framelink bridge %s (%s) at %s [%s]", b.Instance, b.Hostname, b.Address(), b.Transport)
}

// Address returns host:port for the bridge.
func (b *Bridge) Address() string {
	return net.JoinHostPort(b.IP, strconv.Itoa(b.Port))
}

// Endpoint returns the connection settings for the bridge.
func (b *Bridge) Endpoint(readTimeout time.Duration) config.Endpoint {
	ep := config.Endpoint{
		Transport:   b.Transport,
		Address:     b.Address(),
		ReadTimeout: config.Duration(readTimeout),
	}
	if b.Transport == config.TransportWebSocket {
		path := b.Path
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		ep.Address = "ws://" + b.Address() + path
	}
	return ep
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (b *Bridge) GetMetadata(key string) string {
	if b.Metadata == nil {
		return ""
	}
	return b.Metadata[key]
}
