package shape

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fredbi/chartviz/internal/pkg/model"
)

// asNumber returns v as a float64 when v holds a Go number.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()

		return f, err == nil
	default:
		return 0, false
	}
}

// parseNumber parses a string holding nothing but a number, surrounding blanks aside.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return f, true
}

// isNumeric reports whether a sample value classifies its column as numeric.
func isNumeric(v any) bool {
	if _, ok := asNumber(v); ok {
		return true
	}

	s, ok := v.(string)
	if !ok {
		return false
	}

	_, ok = parseNumber(s)

	return ok
}

// isCategorical reports whether a sample value classifies its column as categorical.
func isCategorical(v any) bool {
	switch v.(type) {
	case string, model.Row, *model.Row, map[string]any, []any:
		return true
	default:
		return false
	}
}

// toNumber coerces a value to a number. Anything that is not a number or a numeric string yields 0.
func toNumber(v any) float64 {
	if f, ok := asNumber(v); ok {
		if math.IsNaN(f) {
			return 0
		}

		return f
	}

	if s, ok := v.(string); ok {
		if f, ok := parseNumber(s); ok {
			return f
		}
	}

	return 0
}

// text renders a value as a label.
func text(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		if f, ok := asNumber(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}

		return fmt.Sprint(v)
	}
}

// dateLayouts lists the date formats recognized when ordering a time axis.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.DateTime,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateOnly,
	"2006/01/02",
	"01/02/2006",
	"2006-01",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2006",
	time.RFC1123,
	time.RFC1123Z,
}

// parseDate parses a date-like string. Dates without zone are read in the local time zone.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}
