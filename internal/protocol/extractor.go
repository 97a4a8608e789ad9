package protocol

import (
	"bytes"
	"fmt"
)

// Extractor carves complete frame payloads out of an accumulating byte stream.
type Extractor struct {
	header []byte
	footer []byte
	buf    []byte

	// scan is where the next footer search may resume. It is only
	// meaningful while the buffer starts with a header.
	scan int

	// max caps the bytes left over once complete frames are consumed;
	// 0 disables the cap.
	max int
}

// SetMaxBuffer limits how many bytes may stay buffered while waiting for a
// footer. Zero (the default) means unlimited.
func (e *Extractor) SetMaxBuffer(n int) {
	e.max = n
}

// Write appends stream bytes to the buffer. It never fails; the buffer
// limit is enforced by CheckLimit once complete frames have been taken.
func (e *Extractor) Write(p []byte) (int, error) {
	e.buf = append(e.buf, p...)
	return len(p), nil
}

// CheckLimit returns ErrBufferOverflow when the unconsumed bytes exceed the
// limit set with SetMaxBuffer. Call it after Next has returned false.
func (e *Extractor) CheckLimit() error {
	if e.max > 0 && len(e.buf) > e.max {
		return fmt.Errorf("%w: %d bytes pending > %d", ErrBufferOverflow, len(e.buf), e.max)
	}
	return nil
}

// Buffered returns the number of bytes not yet consumed by an extracted frame.
func (e *Extractor) Buffered() int {
	return len(e.buf)
}

// Reset drops all buffered bytes.
func (e *Extractor) Reset() {
	e.buf = e.buf[:0]
	e.scan = 0
}

// Next returns the payload of the first complete frame in the buffer and
// consumes it through the end of its footer. ok is false when no complete
// frame is buffered yet; the partial frame is kept for the next Write.
//
// The payload is everything between the end of the header and the footer,
// with the footer searched from the header's first byte. A footer found at
// the header's own offset never completes a frame.
func (e *Extractor) Next() (payload []byte, ok bool) {
	h := bytes.Index(e.buf, e.header)
	if h < 0 {
		// Only a header straddling the next chunk boundary can still matter.
		if keep := len(e.header) - 1; len(e.buf) > keep {
			e.discard(len(e.buf) - keep)
		}
		e.scan = 0
		return nil, false
	}
	if h > 0 {
		e.discard(h)
	}

	from := e.scan
	f := bytes.Index(e.buf[from:], e.footer)
	if f < 0 {
		if next := len(e.buf) - len(e.footer) + 1; next > 0 {
			e.scan = next
		}
		return nil, false
	}
	f += from
	if f == 0 {
		// footer begins where the header does
		e.scan = 0
		return nil, false
	}

	start := len(e.header)
	if start > f {
		start = f
	}
	payload = make([]byte, f-start)
	copy(payload, e.buf[start:f])

	e.discard(f + len(e.footer))
	e.scan = 0
	return payload, true
}

// discard drops the first n buffered bytes.
func (e *Extractor) discard(n int) {
	rest := copy(e.buf, e.buf[n:])
	e.buf = e.buf[:rest]
	if e.scan -= n; e.scan < 0 {
		e.scan = 0
	}
}
