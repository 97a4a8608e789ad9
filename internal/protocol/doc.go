// Package protocol implements the framelink wire format.
//
// Messages travel inside a continuous byte stream (a serial line, a TCP
// bridge, a WebSocket) delimited by configurable header and footer markers.
//
// # Frame Format
//
//	HEADER | message id (2 bytes, big-endian int16) | payload | FOOTER
//
// The header and footer are arbitrary byte strings, "HEAD" and "FOOT" by
// default. The payload width is fixed per message id by the layout the
// receiver registered for it; the frame itself carries no length field.
//
// # Handshake Frame
//
// Before normal operation both sides exchange a single handshake frame:
//
//	HEADER | token | FOOTER
//
// The default token is "c". The handshake frame carries no message id.
//
// # Extraction
//
// Extractor accumulates stream bytes and carves out complete payloads:
//
//	ex, _ := protocol.DefaultMarkers().NewExtractor()
//	ex.Write(chunk)
//	for {
//	    payload, ok := ex.Next()
//	    if !ok {
//	        break
//	    }
//	    id, body, err := protocol.SplitMessageID(payload)
//	    ...
//	}
//
// Bytes before a header are discarded. A frame split across several reads is
// completed once its footer arrives. The footer search starts at the
// header's first byte rather than after it, so a footer that overlaps the
// header yields an empty payload.
//
// # Thread Safety
//
// Markers and the encoding functions are safe for concurrent use. An
// Extractor is owned by a single reader goroutine.
package protocol
