// Package layout compiles fixed-width field layouts and decodes payloads with them.
//
// A layout is a string of format codes, each optionally preceded by a repeat
// count, in the style of C struct packing:
//
//	"3sB"   a 3-byte string followed by one unsigned byte
//	"hhI"   two int16 values and a uint32
//	"2x d"  two pad bytes and a float64
//
// Byte order is fixed to big-endian by the wire protocol, so the byte-order
// prefixes '<', '>', '@', '=' and '!' are rejected with ErrInvalidTypeSpec.
//
// # Decoded Types
//
//	x  pad byte (no value)      h  int16        q  int64
//	c  byte                     H  uint16       Q  uint64
//	b  int8                     i  int32        e  float32 (half)
//	B  uint8                    I  uint32       f  float32
//	?  bool                     l  int32        d  float64
//	s  []byte (count = length)  L  uint32       p  []byte (Pascal string)
//
// Layouts are immutable once compiled and safe for concurrent use.
package layout
