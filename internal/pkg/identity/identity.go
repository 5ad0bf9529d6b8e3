// Package identity correlates chart identifiers of heterogeneous types.
//
// Backend chart records are identified by opaque strings (often UUIDs), while pinned items
// are identified by numbers. [ToNumericKey] derives a stable numeric key from either form.
//
// The key is good enough for toggling UI state. It is not unique: distinct non-numeric
// strings may collide. It round-trips exactly only for numbers and clean numeric strings.
package identity

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/google/uuid"
)

// ToNumericKey derives a deterministic numeric key from a chart identifier.
//
//   - numbers are returned unchanged (NaN yields 0)
//   - strings are trimmed: empty yields 0, a finite numeric string yields its value,
//     anything else yields the sum of its UTF-16 code units
//   - a [uuid.UUID] is keyed by its canonical string form
//   - nil and any other type yield 0
func ToNumericKey(id any) float64 {
	switch v := id.(type) {
	case nil:
		return 0
	case string:
		return stringKey(v)
	case *string:
		if v == nil {
			return 0
		}

		return stringKey(*v)
	case uuid.UUID:
		return stringKey(v.String())
	case json.Number:
		return stringKey(v.String())
	case float64:
		return notNaN(v)
	case float32:
		return notNaN(float64(v))
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
	default:
		return 0
	}
}

func notNaN(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}

	return f
}

func stringKey(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}

	var sum float64
	for _, unit := range utf16.Encode([]rune(s)) {
		sum += float64(unit)
	}

	return sum
}
