package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/muurk/framelink/internal/layout"
	"github.com/muurk/framelink/internal/messenger"
)

const (
	appName    = "framelink"
	configFile = "config.yaml"
)

// Mutex for thread-safe file operations
var fileMutex sync.Mutex

// GetConfigDir returns the OS-appropriate configuration directory for the application.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/framelink or $HOME/.config/framelink
//   - macOS: $HOME/.config/framelink
//   - Windows: %LOCALAPPDATA%\framelink
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, appName), nil
		}
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(userProfile, "AppData", "Local", appName), nil

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil

	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil
	}
}

// GetConfigPath returns the full path to the default configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// Load reads the configuration at path. An empty path means GetConfigPath.
// If the file doesn't exist, the defaults are returned.
// Keys missing from the file keep their default values.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes and validates YAML configuration data.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", cfg.Version, CurrentVersion)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the connection, the wire settings and every message layout.
func (c *Config) Validate() error {
	switch c.Connection.Transport {
	case TransportSerial, TransportTCP, TransportWebSocket:
	default:
		return fmt.Errorf("connection: unknown transport %q", c.Connection.Transport)
	}
	if c.Connection.Address == "" && !c.Connection.Discover {
		return fmt.Errorf("connection: address is required unless discover is set")
	}
	if c.Connection.ReadTimeout < 0 {
		return fmt.Errorf("connection: read timeout must not be negative")
	}

	if err := c.Protocol.MessengerConfig().Validate(); err != nil {
		return fmt.Errorf("protocol: %w", err)
	}

	seen := make(map[int]bool, len(c.Messages))
	for i, m := range c.Messages {
		if m.ID < messenger.MinMessageID || m.ID > messenger.MaxMessageID {
			return fmt.Errorf("messages[%d]: id %d outside %d..%d", i, m.ID, messenger.MinMessageID, messenger.MaxMessageID)
		}
		if seen[m.ID] {
			return fmt.Errorf("messages[%d]: duplicate id %d", i, m.ID)
		}
		seen[m.ID] = true

		l, err := layout.Compile(m.Layout)
		if err != nil {
			return fmt.Errorf("messages[%d]: %w", i, err)
		}
		if len(m.Fields) > 0 && len(m.Fields) != l.NumValues() {
			return fmt.Errorf("messages[%d]: %d field names for %d values", i, len(m.Fields), l.NumValues())
		}
	}
	return nil
}

// Marshal renders the configuration as YAML with a header comment.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# framelink configuration
#
# connection.transport is one of serial, tcp or websocket.
# Each entry under messages maps a message id (0-255) to the layout of its
# payload, for example "3sB" for a three byte string followed by a byte.

`)
	return append(header, data...), nil
}

// Save writes the configuration to path. An empty path means GetConfigPath.
// Performs an atomic write to prevent corruption on crash.
func (c *Config) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	// Create directory with user-only permissions (0700)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}

// Example returns the default configuration with a sample message catalog.
// config init writes it as a starting point.
func Example() *Config {
	cfg := Default()
	cfg.Messages = []MessageSpec{
		{ID: 1, Name: "heartbeat", Layout: "I", Fields: []string{"uptime"}},
		{ID: 5, Name: "sensor", Layout: "3sB", Fields: []string{"tag", "level"}},
		{ID: 10, Name: "position", Layout: "hhh", Fields: []string{"x", "y", "z"}},
	}
	return cfg
}
