package messenger

import (
	"fmt"
	"time"

	"github.com/muurk/framelink/internal/protocol"
)

// Defaults used by DefaultConfig.
const (
	DefaultHandshakeTimeout = 3 * time.Second
	DefaultChunkSize        = 10
)

// Config holds the wire settings of a Messenger.
type Config struct {
	Header           string        // Frame start marker
	Footer           string        // Frame end marker
	Handshake        string        // Handshake token; empty disables the handshake
	HandshakeTimeout time.Duration // How long to wait for the handshake echo
	ChunkSize        int           // Bytes requested per read
	MaxBuffer        int           // Receive buffer cap in bytes (0 = unlimited)
}

// DefaultConfig returns "HEAD"/"FOOT" markers, handshake "c", a 3 second
// handshake timeout and 10 byte reads.
func DefaultConfig() Config {
	return Config{
		Header:           protocol.DefaultHeader,
		Footer:           protocol.DefaultFooter,
		Handshake:        protocol.DefaultHandshake,
		HandshakeTimeout: DefaultHandshakeTimeout,
		ChunkSize:        DefaultChunkSize,
	}
}

// Markers returns the frame markers.
func (c Config) Markers() protocol.Markers {
	return protocol.Markers{Header: c.Header, Footer: c.Footer}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Markers().Validate(); err != nil {
		return err
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("messenger: chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.HandshakeTimeout < 0 {
		return fmt.Errorf("messenger: handshake timeout must not be negative, got %s", c.HandshakeTimeout)
	}
	if c.MaxBuffer < 0 {
		return fmt.Errorf("messenger: max buffer must not be negative, got %d", c.MaxBuffer)
	}
	if floor := c.ChunkSize + len(c.Header) + len(c.Footer); c.MaxBuffer > 0 && c.MaxBuffer < floor {
		return fmt.Errorf("messenger: max buffer %d is below chunk size plus markers (%d)", c.MaxBuffer, floor)
	}
	return nil
}
