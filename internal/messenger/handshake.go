package messenger

import (
	"bytes"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/framelink/internal/logging"
)

// handshake writes HEADER+token+FOOTER and waits until the same frame is
// read back or the handshake timeout passes. An empty token skips it.
func (m *Messenger) handshake() error {
	token := m.cfg.Handshake
	if token == "" {
		logging.Debug("Handshake disabled")
		return nil
	}

	frame := m.markers.HandshakeFrame(token)
	logging.Info("Sending handshake",
		zap.String("token", token),
		zap.Duration("timeout", m.cfg.HandshakeTimeout),
	)
	if _, err := m.conn.Write(frame); err != nil {
		return fault("handshake write", err)
	}

	deadline := time.Now().Add(m.cfg.HandshakeTimeout)
	buf := make([]byte, m.cfg.ChunkSize)
	var received []byte

	for !bytes.Contains(received, frame) && time.Now().Before(deadline) {
		if m.stop.Load() {
			return newError(KindClosed, "closed during handshake", nil)
		}

		n, err := m.read(buf)
		received = append(received, buf[:n]...)
		if err != nil {
			return fault("handshake read", err)
		}

		// Keep only what could still begin the handshake frame.
		if keep := len(frame) - 1; len(received) > keep && !bytes.Contains(received, frame) {
			received = append(received[:0], received[len(received)-keep:]...)
		}
	}

	if !bytes.Contains(received, frame) {
		logging.Warn("Handshake timed out", zap.Duration("timeout", m.cfg.HandshakeTimeout))
		return newError(KindHandshakeTimeout, HandshakeTimedOut, nil)
	}

	logging.Info("Handshake complete")
	return nil
}
