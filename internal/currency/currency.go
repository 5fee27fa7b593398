// Package currency turns heterogeneous revenue cells into signed amounts.
package currency

import (
	"math"
	"strconv"
	"strings"
)

// stripper removes currency symbols, thousands separators and spaces.
var stripper = strings.NewReplacer(
	"$", "",
	"€", "",
	"£", "",
	"¥", "",
	",", "",
	" ", "",
	"\u00a0", "",
)

// Normalize converts a raw revenue value to a float64.
//
// Handles:
//   - nil, "" and whitespace-only strings: 0
//   - Go numeric values: passed through
//   - "$1,234.56": 1234.56
//   - "(500.00)" and "($500.00)": -500 (accounting negative)
//
// Anything else that does not parse as a finite number yields 0. Normalize
// never fails.
func Normalize(val any) float64 {
	switch v := val.(type) {
	case nil:
		return 0
	case string:
		return parse(v)
	case *string:
		if v == nil {
			return 0
		}
		return parse(*v)
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v)
	case int8:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint8:
		return float64(v)
	case uint16:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case []byte:
		return parse(string(v))
	default:
		return 0
	}
}

func parse(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	negative := false
	if len(s) >= 2 && strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = stripper.Replace(s)

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	f = finite(f)
	if negative && f != 0 {
		return -math.Abs(f)
	}
	return f
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
