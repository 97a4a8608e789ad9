package discovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/muurk/framelink/internal/config"
)

func TestBridge_String(t *testing.T) {
	bridge := &Bridge{
		Instance:  "bench",
		Hostname:  "pi-lab.local.",
		IP:        "192.168.4.16",
		Port:      4000,
		Transport: config.TransportTCP,
	}

	assert.Equal(t, "framelink bridge bench (pi-lab.local.) at 192.168.4.16:4000 [tcp]", bridge.String())
}

func TestBridge_Endpoint(t *testing.T) {
	tests := []struct {
		name     string
		bridge   *Bridge
		expected config.Endpoint
	}{
		{
			name: "tcp",
			bridge: &Bridge{
				IP:        "192.168.4.16",
				Port:      4000,
				Transport: config.TransportTCP,
			},
			expected: config.Endpoint{
				Transport:   config.TransportTCP,
				Address:     "192.168.4.16:4000",
				ReadTimeout: config.Duration(100 * time.Millisecond),
			},
		},
		{
			name: "websocket",
			bridge: &Bridge{
				IP:        "10.0.0.5",
				Port:      8080,
				Transport: config.TransportWebSocket,
				Path:      "/stream",
			},
			expected: config.Endpoint{
				Transport:   config.TransportWebSocket,
				Address:     "ws://10.0.0.5:8080/stream",
				ReadTimeout: config.Duration(100 * time.Millisecond),
			},
		},
		{
			name: "websocket without path",
			bridge: &Bridge{
				IP:        "10.0.0.5",
				Port:      8080,
				Transport: config.TransportWebSocket,
			},
			expected: config.Endpoint{
				Transport:   config.TransportWebSocket,
				Address:     "ws://10.0.0.5:8080/",
				ReadTimeout: config.Duration(100 * time.Millisecond),
			},
		},
		{
			name: "IPv6",
			bridge: &Bridge{
				IP:        "fe80::1",
				Port:      4000,
				Transport: config.TransportTCP,
			},
			expected: config.Endpoint{
				Transport:   config.TransportTCP,
				Address:     "[fe80::1]:4000",
				ReadTimeout: config.Duration(100 * time.Millisecond),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.bridge.Endpoint(100*time.Millisecond))
		})
	}
}

func TestBridge_GetMetadata(t *testing.T) {
	bridge := &Bridge{
		Metadata: map[string]string{
			"transport": "tcp",
			"device":    "/dev/ttyUSB0",
		},
	}

	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{name: "existing key", key: "transport", expected: "tcp"},
		{name: "another existing key", key: "device", expected: "/dev/ttyUSB0"},
		{name: "non-existent key", key: "missing", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, bridge.GetMetadata(tt.key))
		})
	}
}

func TestBridge_GetMetadata_NilMap(t *testing.T) {
	bridge := &Bridge{}

	assert.Empty(t, bridge.GetMetadata("anything"))
}
