// Package config provides configuration file management for framelink.
//
// The configuration is a YAML file describing how to reach the device, the
// wire settings both sides agree on, and the catalog of messages the device
// sends. The file follows OS-specific conventions for storage location.
//
// # Configuration File Location
//
// The default configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/framelink/config.yaml or $HOME/.config/framelink/config.yaml
//   - macOS: $HOME/.config/framelink/config.yaml
//   - Windows: %LOCALAPPDATA%\framelink\config.yaml
//
// # File Format
//
//	version: 1
//	connection:
//	    transport: tcp
//	    address: 192.168.1.40:4000
//	    read_timeout: 100ms
//	protocol:
//	    header: HEAD
//	    footer: FOOT
//	    handshake: c
//	    handshake_timeout: 3s
//	    chunk_size: 10
//	messages:
//	    - id: 5
//	      name: sensor
//	      layout: 3sB
//	      fields: [tag, level]
//
// Durations are Go duration strings. Keys left out of the file keep their
// default values.
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	m, err := messenger.New(conn, cfg.Protocol.MessengerConfig())
//
// # Thread Safety
//
// Save is protected by a mutex and writes atomically through a temporary file.
package config
