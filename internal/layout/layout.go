package layout

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidTypeSpec is returned when a layout string cannot be compiled.
	ErrInvalidTypeSpec = errors.New("layout: invalid type spec")

	// ErrSizeMismatch is returned when a payload does not match the layout's size.
	ErrSizeMismatch = errors.New("layout: payload size mismatch")

	// ErrValueCount is returned by Encode when the value count does not match the layout.
	ErrValueCount = errors.New("layout: wrong number of values")
)

// byteOrderTokens may not appear anywhere in a layout; the wire is always big-endian.
const byteOrderTokens = "<>@=!"

// maxCount bounds a single repeat count so Size cannot overflow.
const maxCount = 1 << 20

// Field is one compiled field specifier.
type Field struct {
	Code  byte // format code, e.g. 'H'
	Count int  // repeat count, or byte length for 's' and 'p'
}

// Size returns the number of payload bytes the field occupies.
func (f Field) Size() int {
	if f.Code == 's' || f.Code == 'p' {
		return f.Count
	}
	return codeSizes[f.Code] * f.Count
}

// Values returns how many decoded values the field produces.
func (f Field) Values() int {
	switch f.Code {
	case 'x':
		return 0
	case 's', 'p':
		return 1
	default:
		return f.Count
	}
}

var codeSizes = map[byte]int{
	'x': 1,
	'c': 1,
	'b': 1,
	'B': 1,
	'?': 1,
	'h': 2,
	'H': 2,
	'e': 2,
	'i': 4,
	'I': 4,
	'l': 4,
	'L': 4,
	'f': 4,
	'q': 8,
	'Q': 8,
	'd': 8,
	's': 1,
	'p': 1,
}

// Layout is an ordered, fixed-width field layout decoded big-endian.
type Layout struct {
	spec   string
	fields []Field
	size   int
	values int
}

// Compile parses a layout string such as "3sB" or "HHf".
// Whitespace between fields is ignored; a decimal count may precede any code.
func Compile(spec string) (*Layout, error) {
	if i := strings.IndexAny(spec, byteOrderTokens); i >= 0 {
		return nil, fmt.Errorf("%w: byte order token %q at offset %d", ErrInvalidTypeSpec, spec[i], i)
	}

	l := &Layout{spec: spec}
	count, haveCount := 0, false

	for i := 0; i < len(spec); i++ {
		c := spec[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			if haveCount {
				return nil, fmt.Errorf("%w: whitespace after count at offset %d", ErrInvalidTypeSpec, i)
			}
			continue
		case c >= '0' && c <= '9':
			count = count*10 + int(c-'0')
			if count > maxCount {
				return nil, fmt.Errorf("%w: count too large at offset %d", ErrInvalidTypeSpec, i)
			}
			haveCount = true
			continue
		}

		if _, ok := codeSizes[c]; !ok {
			return nil, fmt.Errorf("%w: unknown format code %q at offset %d", ErrInvalidTypeSpec, c, i)
		}
		if !haveCount {
			count = 1
		}

		f := Field{Code: c, Count: count}
		if f.Count > 0 || c == 's' || c == 'p' {
			l.fields = append(l.fields, f)
			l.size += f.Size()
			l.values += f.Values()
		}
		count, haveCount = 0, false
	}

	if haveCount {
		return nil, fmt.Errorf("%w: repeat count without format code", ErrInvalidTypeSpec)
	}
	return l, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(spec string) *Layout {
	l, err := Compile(spec)
	if err != nil {
		panic(err)
	}
	return l
}

// Validate reports whether spec compiles.
func Validate(spec string) error {
	_, err := Compile(spec)
	return err
}

// String returns the original layout string.
func (l *Layout) String() string { return l.spec }

// Size returns the payload size in bytes.
func (l *Layout) Size() int { return l.size }

// NumValues returns the number of values Decode produces.
func (l *Layout) NumValues() int { return l.values }

// Fields returns a copy of the compiled fields.
func (l *Layout) Fields() []Field {
	out := make([]Field, len(l.fields))
	copy(out, l.fields)
	return out
}

// Decode unpacks data into an ordered slice of typed values.
func (l *Layout) Decode(data []byte) ([]any, error) {
	if len(data) != l.size {
		return nil, fmt.Errorf("%w: layout %q needs %d bytes, got %d", ErrSizeMismatch, l.spec, l.size, len(data))
	}

	out := make([]any, 0, l.values)
	off := 0
	for _, f := range l.fields {
		switch f.Code {
		case 's':
			b := make([]byte, f.Count)
			copy(b, data[off:off+f.Count])
			out = append(out, b)
			off += f.Count
			continue
		case 'p':
			out = append(out, decodePascal(data[off:off+f.Count]))
			off += f.Count
			continue
		case 'x':
			off += f.Count
			continue
		}

		w := codeSizes[f.Code]
		for n := 0; n < f.Count; n++ {
			out = append(out, decodeScalar(f.Code, data[off:off+w]))
			off += w
		}
	}
	return out, nil
}

func decodeScalar(code byte, b []byte) any {
	switch code {
	case 'c':
		return b[0]
	case 'b':
		return int8(b[0])
	case 'B':
		return b[0]
	case '?':
		return b[0] != 0
	case 'h':
		return int16(binary.BigEndian.Uint16(b))
	case 'H':
		return binary.BigEndian.Uint16(b)
	case 'e':
		return halfToFloat32(binary.BigEndian.Uint16(b))
	case 'i', 'l':
		return int32(binary.BigEndian.Uint32(b))
	case 'I', 'L':
		return binary.BigEndian.Uint32(b)
	case 'f':
		return math.Float32frombits(binary.BigEndian.Uint32(b))
	case 'q':
		return int64(binary.BigEndian.Uint64(b))
	case 'Q':
		return binary.BigEndian.Uint64(b)
	case 'd':
		return math.Float64frombits(binary.BigEndian.Uint64(b))
	}
	return nil
}

func decodePascal(b []byte) []byte {
	if len(b) == 0 {
		return []byte{}
	}
	n := int(b[0])
	if n > len(b)-1 {
		n = len(b) - 1
	}
	out := make([]byte, n)
	copy(out, b[1:1+n])
	return out
}
