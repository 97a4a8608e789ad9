package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/framelink/internal/config"
)

func TestScanner_parseServiceEntry(t *testing.T) {
	scanner := NewScanner()

	tests := []struct {
		name          string
		entry         *zeroconf.ServiceEntry
		wantNil       bool
		wantIP        string
		wantPort      int
		wantTransport string
		wantPath      string
	}{
		{
			name: "tcp bridge with IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "bench"},
				HostName:      "pi-lab.local.",
				Port:          4000,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
				Text:          []string{"transport=tcp"},
			},
			wantIP:        "192.168.4.16",
			wantPort:      4000,
			wantTransport: config.TransportTCP,
		},
		{
			name: "missing transport defaults to tcp",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "bare"},
				HostName:      "bare.local.",
				Port:          2000,
				AddrIPv4:      []net.IP{net.ParseIP("10.0.0.5")},
			},
			wantIP:        "10.0.0.5",
			wantPort:      2000,
			wantTransport: config.TransportTCP,
		},
		{
			name: "websocket bridge with path",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "ws"},
				HostName:      "ws.local.",
				Port:          8080,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.100")},
				Text:          []string{"transport=websocket", "path=/stream"},
			},
			wantIP:        "192.168.1.100",
			wantPort:      8080,
			wantTransport: config.TransportWebSocket,
			wantPath:      "/stream",
		},
		{
			name: "unknown transport",
			entry: &zeroconf.ServiceEntry{
				HostName: "odd.local.",
				Port:     80,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.1")},
				Text:     []string{"transport=carrier-pigeon"},
			},
			wantNil: true,
		},
		{
			name: "no port",
			entry: &zeroconf.ServiceEntry{
				HostName: "noport.local.",
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.1")},
			},
			wantNil: true,
		},
		{
			name: "no IP address",
			entry: &zeroconf.ServiceEntry{
				HostName: "noip.local.",
				Port:     80,
			},
			wantNil: true,
		},
		{
			name: "IPv6 only bridge",
			entry: &zeroconf.ServiceEntry{
				HostName: "v6.local.",
				Port:     4000,
				AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
			},
			wantIP:        "fe80::1",
			wantPort:      4000,
			wantTransport: config.TransportTCP,
		},
		{
			name: "both IPv4 and IPv6 (should prefer IPv4)",
			entry: &zeroconf.ServiceEntry{
				HostName: "dual.local.",
				Port:     4000,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.50")},
				AddrIPv6: []net.IP{net.ParseIP("fe80::2")},
			},
			wantIP:        "192.168.1.50",
			wantPort:      4000,
			wantTransport: config.TransportTCP,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bridge := scanner.parseServiceEntry(tt.entry)
			if tt.wantNil {
				assert.Nil(t, bridge)
				return
			}

			require.NotNil(t, bridge)
			assert.Equal(t, tt.wantIP, bridge.IP)
			assert.Equal(t, tt.wantPort, bridge.Port)
			assert.Equal(t, tt.wantTransport, bridge.Transport)
			assert.Equal(t, tt.wantPath, bridge.Path)
			assert.Equal(t, tt.entry.HostName, bridge.Hostname)
			assert.Equal(t, tt.entry.Instance, bridge.Instance)
			assert.WithinDuration(t, time.Now(), bridge.DiscoveredAt, time.Second)
		})
	}
}

func TestScanner_parseServiceEntry_Metadata(t *testing.T) {
	scanner := NewScanner()

	entry := &zeroconf.ServiceEntry{
		HostName: "pi-lab.local.",
		Port:     4000,
		AddrIPv4: []net.IP{net.ParseIP("192.168.4.16")},
		Text:     []string{"transport=tcp", "device=/dev/ttyACM0", "flag", "baud=115200"},
	}

	bridge := scanner.parseServiceEntry(entry)
	require.NotNil(t, bridge)

	assert.Equal(t, map[string]string{
		"transport": "tcp",
		"device":    "/dev/ttyACM0",
		"flag":      "", // Key without value
		"baud":      "115200",
	}, bridge.Metadata)
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()
	require.NotNil(t, scanner)
	assert.Equal(t, DefaultScanTimeout, scanner.Timeout)
}

// Note: live mDNS discovery needs multicast on the test host and is not
// exercised here.
