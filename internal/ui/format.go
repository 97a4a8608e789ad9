package ui

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// FormatValue renders one decoded field for display. Byte strings are shown
// quoted when printable and as hex otherwise.
func FormatValue(v any) string {
	switch x := v.(type) {
	case []byte:
		if isPrintable(x) {
			return strconv.Quote(string(x))
		}
		return "0x" + hex.EncodeToString(x)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// FormatFields renders decoded fields, labelled with names when there is
// one name per field.
func FormatFields(names []string, fields []any) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		if len(names) == len(fields) {
			parts[i] = names[i] + "=" + FormatValue(f)
		} else {
			parts[i] = FormatValue(f)
		}
	}
	return strings.Join(parts, " ")
}

func isPrintable(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 || !unicode.IsPrint(rune(c)) {
			return false
		}
	}
	return true
}
