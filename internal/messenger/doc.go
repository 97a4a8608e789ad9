// Package messenger runs the framelink receive loop over a Connection.
//
// A Messenger owns one connection and one background worker. Handlers are
// registered per message id together with the layout of their payload:
//
//	m, err := messenger.New(conn, messenger.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	m.Register(5, func(id int, fields []any) error {
//	    name, level := fields[0].([]byte), fields[1].(uint8)
//	    ...
//	    return nil
//	}, "3sB")
//
//	if err := m.Start(ctx); err != nil {
//	    return err // ErrHandshakeTimeout when the peer never answered
//	}
//	defer m.Close()
//
// # Lifecycle
//
//	not_started -> handshaking -> running -> stopped
//	                    |            |
//	                    +-> failed <-+
//
// Start flushes both directions of the connection, sends the handshake frame
// and blocks until the same frame is read back. Close stops the worker and
// waits for it to exit. A fault in the worker (a read error, a payload that
// does not match its layout, a handler error or panic) moves the messenger to
// failed; Err reports the cause.
//
// # Dispatch
//
// Handlers run synchronously on the worker, one at a time, in stream order.
// A slow handler stalls reading. Frames whose id has no registered handler
// are dropped and counted in Stats.
//
// # Thread Safety
//
// Register, Close, State, Err and Stats may be called from any goroutine,
// including from inside a handler, except that Close must not be called from
// a handler because it waits for the worker.
package messenger
