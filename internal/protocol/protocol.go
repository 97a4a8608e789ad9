package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Default wire settings.
const (
	DefaultHeader    = "HEAD"
	DefaultFooter    = "FOOT"
	DefaultHandshake = "c"

	// MessageIDSize is the width of the message id that opens every payload.
	MessageIDSize = 2
)

var (
	ErrEmptyMarker    = errors.New("protocol: header and footer must be non-empty")
	ErrShortPayload   = errors.New("protocol: payload shorter than message id")
	ErrMessageIDRange = errors.New("protocol: message id out of int16 range")
	ErrBufferOverflow = errors.New("protocol: receive buffer limit exceeded")
)

// Markers holds the header and footer that delimit frames.
type Markers struct {
	Header string
	Footer string
}

// DefaultMarkers returns the "HEAD"/"FOOT" markers.
func DefaultMarkers() Markers {
	return Markers{Header: DefaultHeader, Footer: DefaultFooter}
}

// Validate checks that both markers are non-empty.
func (m Markers) Validate() error {
	if m.Header == "" || m.Footer == "" {
		return ErrEmptyMarker
	}
	return nil
}

// Wrap surrounds raw bytes with the header and footer.
func (m Markers) Wrap(inner []byte) []byte {
	out := make([]byte, 0, len(m.Header)+len(inner)+len(m.Footer))
	out = append(out, m.Header...)
	out = append(out, inner...)
	out = append(out, m.Footer...)
	return out
}

// HandshakeFrame returns HEADER + token + FOOTER.
func (m Markers) HandshakeFrame(token string) []byte {
	return m.Wrap([]byte(token))
}

// EncodeFrame builds HEADER + id + payload + FOOTER.
func (m Markers) EncodeFrame(id int, payload []byte) ([]byte, error) {
	if id < math.MinInt16 || id > math.MaxInt16 {
		return nil, fmt.Errorf("%w: %d", ErrMessageIDRange, id)
	}
	inner := make([]byte, MessageIDSize+len(payload))
	binary.BigEndian.PutUint16(inner[:MessageIDSize], uint16(int16(id)))
	copy(inner[MessageIDSize:], payload)
	return m.Wrap(inner), nil
}

// ContainsHandshake reports whether buf holds the complete handshake frame.
func (m Markers) ContainsHandshake(buf []byte, token string) bool {
	return bytes.Contains(buf, m.HandshakeFrame(token))
}

// NewExtractor returns an Extractor for these markers.
func (m Markers) NewExtractor() (*Extractor, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{header: []byte(m.Header), footer: []byte(m.Footer)}, nil
}

// SplitMessageID reads the big-endian signed message id that opens a payload
// and returns it with the remaining field bytes.
func SplitMessageID(payload []byte) (int, []byte, error) {
	if len(payload) < MessageIDSize {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrShortPayload, len(payload))
	}
	id := int16(binary.BigEndian.Uint16(payload[:MessageIDSize]))
	return int(id), payload[MessageIDSize:], nil
}
