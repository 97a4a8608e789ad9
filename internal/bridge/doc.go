// Package bridge exposes a local serial device to the network.
//
// A bridge relays the raw byte stream between one device connection and a
// single network client, over plain TCP or over WebSocket binary messages.
// It does not interpret frames; the remote side runs the messenger as if it
// were attached to the serial line. A second client is refused while one
// is attached.
//
// When an instance name is configured the bridge advertises itself with
// mDNS so that "framelink discover" and endpoints with discover: true can
// find it.
//
//	srv, err := bridge.New(device, &bridge.Config{
//	    Port:      4000,
//	    Transport: config.TransportWebSocket,
//	    Instance:  "bench",
//	})
//	if err != nil {
//	    return err
//	}
//	return srv.Serve(ctx)
package bridge
