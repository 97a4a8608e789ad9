package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/muurk/framelink/internal/messenger"
)

// CurrentVersion is the config file format version.
const CurrentVersion = 1

// Transport names accepted in Endpoint.Transport.
const (
	TransportSerial    = "serial"
	TransportTCP       = "tcp"
	TransportWebSocket = "websocket"
)

// DefaultReadTimeout bounds a single connection read when none is configured.
const DefaultReadTimeout = 100 * time.Millisecond

// Config represents the entire framelink configuration file.
type Config struct {
	Version    int              `yaml:"version"`
	Connection Endpoint         `yaml:"connection"`
	Protocol   ProtocolSettings `yaml:"protocol"`
	Messages   []MessageSpec    `yaml:"messages,omitempty"`
}

// Endpoint describes where the device is reached.
type Endpoint struct {
	Transport   string   `yaml:"transport"`              // serial, tcp or websocket
	Address     string   `yaml:"address,omitempty"`      // device path, host:port or ws:// URL
	ReadTimeout Duration `yaml:"read_timeout,omitempty"` // Bound on a single read
	Discover    bool     `yaml:"discover,omitempty"`     // Resolve the address via mDNS
}

// ProtocolSettings holds the wire settings shared with the device.
type ProtocolSettings struct {
	Header           string   `yaml:"header"`
	Footer           string   `yaml:"footer"`
	Handshake        string   `yaml:"handshake"` // Empty disables the handshake
	HandshakeTimeout Duration `yaml:"handshake_timeout"`
	ChunkSize        int      `yaml:"chunk_size"`
	MaxBuffer        int      `yaml:"max_buffer,omitempty"` // 0 means unbounded
}

// MessageSpec declares one message id the device sends.
type MessageSpec struct {
	ID     int      `yaml:"id"`
	Name   string   `yaml:"name,omitempty"`
	Layout string   `yaml:"layout"`
	Fields []string `yaml:"fields,omitempty"` // Optional labels, one per decoded value
}

// Duration is a time.Duration stored as a Go duration string ("250ms").
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", value.Line, s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Default returns a configuration using the standard wire settings.
func Default() *Config {
	mc := messenger.DefaultConfig()
	return &Config{
		Version: CurrentVersion,
		Connection: Endpoint{
			Transport:   TransportSerial,
			Address:     "/dev/ttyUSB0",
			ReadTimeout: Duration(DefaultReadTimeout),
		},
		Protocol: ProtocolSettings{
			Header:           mc.Header,
			Footer:           mc.Footer,
			Handshake:        mc.Handshake,
			HandshakeTimeout: Duration(mc.HandshakeTimeout),
			ChunkSize:        mc.ChunkSize,
			MaxBuffer:        mc.MaxBuffer,
		},
	}
}

// MessengerConfig converts the settings into a messenger.Config.
func (p ProtocolSettings) MessengerConfig() messenger.Config {
	return messenger.Config{
		Header:           p.Header,
		Footer:           p.Footer,
		Handshake:        p.Handshake,
		HandshakeTimeout: p.HandshakeTimeout.Std(),
		ChunkSize:        p.ChunkSize,
		MaxBuffer:        p.MaxBuffer,
	}
}

// Timeout returns the endpoint read timeout, or DefaultReadTimeout when unset.
func (e Endpoint) Timeout() time.Duration {
	if e.ReadTimeout <= 0 {
		return DefaultReadTimeout
	}
	return e.ReadTimeout.Std()
}

// Label returns the configured name for message id, or "msg<id>".
func (c *Config) Label(id int) string {
	for _, m := range c.Messages {
		if m.ID == id && m.Name != "" {
			return m.Name
		}
	}
	return fmt.Sprintf("msg%d", id)
}
