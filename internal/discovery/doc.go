// Package discovery provides mDNS-based discovery of framelink bridges.
//
// A bridge is a host that exposes a serial device over TCP or WebSocket and
// advertises itself with the "_framelink._tcp" service type. Its TXT records
// name the transport and, for WebSocket bridges, the request path:
//
//	transport=websocket
//	path=/stream
//
// # Usage Example
//
//	bridges, err := discovery.Scan(ctx, 5*time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, b := range bridges {
//	    fmt.Println(b)
//	}
//
//	conn, err := transport.Open(ctx, bridges[0].Endpoint(100*time.Millisecond))
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Bridges must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
