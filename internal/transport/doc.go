// Package transport provides messenger connections over serial devices,
// TCP serial bridges and WebSockets.
//
// Every connection bounds a single Read by its read timeout (100ms by
// default) and reports an expired timeout as a zero-byte read, which the
// messenger treats as "no data yet".
//
//	conn, err := transport.Open(ctx, cfg.Connection)
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
package transport
