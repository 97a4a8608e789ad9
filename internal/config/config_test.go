package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/framelink/internal/messenger"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	require.NoError(t, err)
	assert.Contains(t, configDir, "framelink")

	switch runtime.GOOS {
	case "windows":
		assert.Contains(t, configDir, "AppData")
	case "darwin":
		assert.Contains(t, configDir, ".config")
	}
}

func TestGetConfigDir_XDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME only applies on Linux")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")

	configDir, err := GetConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg-test", "framelink"), configDir)
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", filepath.Base(configPath))
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, messenger.DefaultConfig(), cfg.Protocol.MessengerConfig())
	assert.Equal(t, 100*time.Millisecond, cfg.Connection.Timeout())
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "HEAD", cfg.Protocol.Header)
	assert.Equal(t, "FOOT", cfg.Protocol.Footer)
}

func TestParse_PartialFileKeepsDefaults(t *testing.T) {
	data := []byte(`
version: 1
connection:
  transport: tcp
  address: 10.0.0.5:4000
protocol:
  header: "<<"
  handshake_timeout: 500ms
messages:
  - id: 5
    name: sensor
    layout: 3sB
    fields: [tag, level]
`)

	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, TransportTCP, cfg.Connection.Transport)
	assert.Equal(t, "<<", cfg.Protocol.Header)
	assert.Equal(t, "FOOT", cfg.Protocol.Footer, "unset footer keeps the default")
	assert.Equal(t, "c", cfg.Protocol.Handshake, "unset handshake keeps the default")
	assert.Equal(t, 500*time.Millisecond, cfg.Protocol.HandshakeTimeout.Std())
	assert.Equal(t, DefaultReadTimeout, cfg.Connection.Timeout())
	require.Len(t, cfg.Messages, 1)
	assert.Equal(t, "3sB", cfg.Messages[0].Layout)
	assert.Equal(t, "sensor", cfg.Label(5))
	assert.Equal(t, "msg6", cfg.Label(6))
}

func TestParse_EmptyHandshakeDisables(t *testing.T) {
	cfg, err := Parse([]byte("version: 1\nprotocol:\n  handshake: \"\"\n"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Protocol.Handshake)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "bad version",
			yaml:    "version: 2\n",
			wantErr: "unsupported config version",
		},
		{
			name:    "bad duration",
			yaml:    "version: 1\nprotocol:\n  handshake_timeout: soon\n",
			wantErr: "invalid duration",
		},
		{
			name:    "unknown transport",
			yaml:    "version: 1\nconnection:\n  transport: carrier-pigeon\n  address: x\n",
			wantErr: "unknown transport",
		},
		{
			name:    "missing address",
			yaml:    "version: 1\nconnection:\n  transport: tcp\n  address: \"\"\n",
			wantErr: "address is required",
		},
		{
			name:    "empty footer",
			yaml:    "version: 1\nprotocol:\n  footer: \"\"\n",
			wantErr: "protocol",
		},
		{
			name:    "zero chunk size",
			yaml:    "version: 1\nprotocol:\n  chunk_size: 0\n",
			wantErr: "chunk size",
		},
		{
			name:    "max buffer below one read",
			yaml:    "version: 1\nprotocol:\n  chunk_size: 10\n  max_buffer: 12\n",
			wantErr: "max buffer",
		},
		{
			name:    "message id out of range",
			yaml:    "version: 1\nmessages:\n  - id: 256\n    layout: B\n",
			wantErr: "outside 0..255",
		},
		{
			name:    "duplicate id",
			yaml:    "version: 1\nmessages:\n  - id: 1\n    layout: B\n  - id: 1\n    layout: H\n",
			wantErr: "duplicate id",
		},
		{
			name:    "byte order token",
			yaml:    "version: 1\nmessages:\n  - id: 1\n    layout: \"<H\"\n",
			wantErr: "invalid type spec",
		},
		{
			name:    "field count mismatch",
			yaml:    "version: 1\nmessages:\n  - id: 1\n    layout: HH\n    fields: [a]\n",
			wantErr: "field names",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Example()
	cfg.Connection = Endpoint{
		Transport:   TransportWebSocket,
		Address:     "ws://bridge.local:8080/stream",
		ReadTimeout: Duration(250 * time.Millisecond),
	}
	cfg.Protocol.MaxBuffer = 4096

	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file should not remain after Save()")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "read_timeout: 250ms", "durations are written as strings")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Connection, loaded.Connection)
	assert.Equal(t, cfg.Protocol, loaded.Protocol)
	assert.Equal(t, cfg.Messages, loaded.Messages)
}

func TestExampleValidates(t *testing.T) {
	assert.NoError(t, Example().Validate())
}
