// Package logging provides structured logging for framelink.
//
// This package wraps a global zap logger with convenience functions used by
// the messenger, the transports and the CLI.
//
// # Log Levels
//
//   - Debug: raw chunks, extracted frames, dropped message ids
//   - Info: connections, handshake results, state changes
//   - Warn: recoverable transport problems
//   - Error: run loop faults
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// With an empty level the FRAMELINK_LOG_LEVEL environment variable is used,
// and when that is unset too, logging is silent.
//
// # Frame Logging
//
//	logging.LogFrame("received", id, payload)
//	logging.LogRawBytes("chunk", data)
//
// # Thread Safety
//
// All logging functions are safe for concurrent use.
package logging
