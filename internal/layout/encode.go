package layout

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// Encode packs values big-endian according to the layout.
// Integer codes accept any Go integer type, float codes accept floats or integers,
// 's' and 'p' accept []byte or string.
func (l *Layout) Encode(values ...any) ([]byte, error) {
	if len(values) != l.values {
		return nil, fmt.Errorf("%w: layout %q takes %d values, got %d", ErrValueCount, l.spec, l.values, len(values))
	}

	out := make([]byte, l.size)
	off, vi := 0, 0
	for _, f := range l.fields {
		switch f.Code {
		case 'x':
			off += f.Count
			continue
		case 's', 'p':
			b, err := toBytes(values[vi])
			if err != nil {
				return nil, fmt.Errorf("value %d: %w", vi, err)
			}
			if f.Code == 's' {
				copy(out[off:off+f.Count], b)
			} else if f.Count > 0 {
				n := len(b)
				if n > f.Count-1 {
					n = f.Count - 1
				}
				if n > 255 {
					n = 255
				}
				out[off] = byte(n)
				copy(out[off+1:off+1+n], b[:n])
			}
			off += f.Count
			vi++
			continue
		}

		w := codeSizes[f.Code]
		for n := 0; n < f.Count; n++ {
			if err := encodeScalar(f.Code, out[off:off+w], values[vi]); err != nil {
				return nil, fmt.Errorf("value %d: %w", vi, err)
			}
			off += w
			vi++
		}
	}
	return out, nil
}

func encodeScalar(code byte, dst []byte, v any) error {
	switch code {
	case '?':
		b, ok := v.(bool)
		if !ok {
			i, err := toInt64(v)
			if err != nil {
				return err
			}
			b = i != 0
		}
		if b {
			dst[0] = 1
		} else {
			dst[0] = 0
		}
		return nil
	case 'e', 'f', 'd':
		x, err := toFloat64(v)
		if err != nil {
			return err
		}
		switch code {
		case 'e':
			binary.BigEndian.PutUint16(dst, float32ToHalf(float32(x)))
		case 'f':
			binary.BigEndian.PutUint32(dst, math.Float32bits(float32(x)))
		default:
			binary.BigEndian.PutUint64(dst, math.Float64bits(x))
		}
		return nil
	case 'Q':
		u, err := toUint64(v)
		if err != nil {
			return err
		}
		binary.BigEndian.PutUint64(dst, u)
		return nil
	}

	i, err := toInt64(v)
	if err != nil {
		return err
	}
	lo, hi := intRange(code)
	if i < lo || i > hi {
		return fmt.Errorf("%d out of range for format %q", i, code)
	}
	switch len(dst) {
	case 1:
		dst[0] = byte(i)
	case 2:
		binary.BigEndian.PutUint16(dst, uint16(i))
	case 4:
		binary.BigEndian.PutUint32(dst, uint32(i))
	case 8:
		binary.BigEndian.PutUint64(dst, uint64(i))
	}
	return nil
}

func intRange(code byte) (int64, int64) {
	switch code {
	case 'b':
		return math.MinInt8, math.MaxInt8
	case 'c', 'B':
		return 0, math.MaxUint8
	case 'h':
		return math.MinInt16, math.MaxInt16
	case 'H':
		return 0, math.MaxUint16
	case 'i', 'l':
		return math.MinInt32, math.MaxInt32
	case 'I', 'L':
		return 0, math.MaxUint32
	default:
		return math.MinInt64, math.MaxInt64
	}
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", x)
		}
		return int64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("cannot encode %T as integer", v)
}

func toUint64(v any) (uint64, error) {
	if u, ok := v.(uint64); ok {
		return u, nil
	}
	i, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, fmt.Errorf("%d out of range for format 'Q'", i)
	}
	return uint64(i), nil
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	}
	i, err := toInt64(v)
	if err != nil {
		return 0, fmt.Errorf("cannot encode %T as float", v)
	}
	return float64(i), nil
}

func toBytes(v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	}
	return nil, fmt.Errorf("cannot encode %T as bytes", v)
}

// ParseValues converts textual arguments into values Encode accepts,
// one argument per value the layout produces.
func (l *Layout) ParseValues(args []string) ([]any, error) {
	if len(args) != l.values {
		return nil, fmt.Errorf("%w: layout %q takes %d values, got %d", ErrValueCount, l.spec, l.values, len(args))
	}

	out := make([]any, 0, len(args))
	ai := 0
	for _, f := range l.fields {
		n := f.Values()
		for k := 0; k < n; k++ {
			v, err := parseValue(f.Code, args[ai])
			if err != nil {
				return nil, fmt.Errorf("argument %d (%q): %w", ai, args[ai], err)
			}
			out = append(out, v)
			ai++
		}
	}
	return out, nil
}

func parseValue(code byte, s string) (any, error) {
	switch code {
	case 's', 'p':
		return []byte(s), nil
	case '?':
		return strconv.ParseBool(s)
	case 'e', 'f', 'd':
		return strconv.ParseFloat(s, 64)
	case 'Q':
		return strconv.ParseUint(s, 0, 64)
	case 'c':
		if len(s) == 1 {
			return s[0], nil
		}
	}
	return strconv.ParseInt(s, 0, 64)
}

// halfToFloat32 converts IEEE 754 binary16 bits to float32.
func halfToFloat32(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1f
	frac := uint32(h) & 0x3ff

	switch exp {
	case 0:
		if frac == 0 {
			return math.Float32frombits(sign)
		}
		// subnormal: normalize into a float32 exponent
		e := uint32(127 - 15 + 1)
		for frac&0x400 == 0 {
			frac <<= 1
			e--
		}
		frac &= 0x3ff
		return math.Float32frombits(sign | e<<23 | frac<<13)
	case 0x1f:
		return math.Float32frombits(sign | 0xff<<23 | frac<<13)
	}
	return math.Float32frombits(sign | (exp+127-15)<<23 | frac<<13)
}

// float32ToHalf converts a float32 to binary16 bits, rounding to nearest even.
func float32ToHalf(f float32) uint16 {
	b := math.Float32bits(f)
	sign := uint16(b>>16) & 0x8000
	exp := int32(b>>23&0xff) - 127 + 15
	frac := b & 0x7fffff

	if b&0x7fffffff >= 0x7f800000 {
		if frac != 0 {
			return sign | 0x7e00
		}
		return sign | 0x7c00
	}
	if exp >= 0x1f {
		return sign | 0x7c00
	}
	if exp <= 0 {
		if exp < -10 {
			return sign
		}
		frac |= 0x800000
		shift := uint32(14 - exp)
		half := frac >> shift
		rem := frac & (1<<shift - 1)
		mid := uint32(1) << (shift - 1)
		if rem > mid || (rem == mid && half&1 == 1) {
			half++
		}
		return sign | uint16(half)
	}

	half := uint32(exp)<<10 | frac>>13
	rem := frac & 0x1fff
	if rem > 0x1000 || (rem == 0x1000 && half&1 == 1) {
		half++
	}
	return sign | uint16(half)
}
