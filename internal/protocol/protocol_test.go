package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkers_Validate(t *testing.T) {
	tests := []struct {
		name    string
		markers Markers
		wantErr bool
	}{
		{name: "defaults", markers: DefaultMarkers()},
		{name: "custom", markers: Markers{Header: "\x7e\x7e", Footer: "\r\n"}},
		{name: "empty header", markers: Markers{Footer: "FOOT"}, wantErr: true},
		{name: "empty footer", markers: Markers{Header: "HEAD"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.markers.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrEmptyMarker)
				_, err = tt.markers.NewExtractor()
				assert.ErrorIs(t, err, ErrEmptyMarker)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestEncodeFrame(t *testing.T) {
	m := DefaultMarkers()

	frame, err := m.EncodeFrame(5, []byte{0xaa, 0xbb, 0xcc, 0xdd})
	require.NoError(t, err)
	assert.Equal(t, []byte("HEAD\x00\x05\xaa\xbb\xcc\xddFOOT"), frame)

	frame, err = m.EncodeFrame(-2, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("HEAD\xff\xfeFOOT"), frame)

	_, err = m.EncodeFrame(1<<15, nil)
	assert.ErrorIs(t, err, ErrMessageIDRange)
}

func TestHandshakeFrame(t *testing.T) {
	m := DefaultMarkers()
	assert.Equal(t, []byte("HEADcFOOT"), m.HandshakeFrame(DefaultHandshake))

	assert.True(t, m.ContainsHandshake([]byte("xxHEADcFOOTyy"), "c"))
	assert.False(t, m.ContainsHandshake([]byte("HEADcFOO"), "c"))
	assert.False(t, m.ContainsHandshake([]byte("HEADdFOOT"), "c"))
}

func TestSplitMessageID(t *testing.T) {
	id, body, err := SplitMessageID([]byte{0x00, 0xff, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, 255, id)
	assert.Equal(t, []byte{1, 2}, body)

	id, body, err = SplitMessageID([]byte{0x80, 0x00})
	require.NoError(t, err)
	assert.Equal(t, -32768, id)
	assert.Empty(t, body)

	_, _, err = SplitMessageID([]byte{0x01})
	assert.ErrorIs(t, err, ErrShortPayload)

	_, _, err = SplitMessageID(nil)
	assert.ErrorIs(t, err, ErrShortPayload)
}
