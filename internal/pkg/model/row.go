package model

import (
	"bytes"
	"fmt"
	"maps"
	"slices"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Row is one record of a query result set: an open mapping from column name to a scalar value.
//
// A [Row] remembers the order in which its columns were first set, which is the column order
// of the result set it comes from. Shape inference relies on that order.
//
// The zero value is an empty row ready to use.
type Row struct {
	keys   []string
	values map[string]any
}

// NewRow builds a [Row] from alternating column names and values.
//
// A dangling trailing name is set to nil.
func NewRow(pairs ...any) Row {
	var r Row
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			key = fmt.Sprint(pairs[i])
		}

		var value any
		if i+1 < len(pairs) {
			value = pairs[i+1]
		}

		r.Set(key, value)
	}

	return r
}

// RowFromMap builds a [Row] from a plain map. Since maps carry no order, columns are sorted by name.
func RowFromMap(m map[string]any) Row {
	r := Row{
		keys:   slices.Sorted(maps.Keys(m)),
		values: make(map[string]any, len(m)),
	}
	maps.Copy(r.values, m)

	return r
}

// Len returns the number of columns in the row.
func (r Row) Len() int {
	return len(r.keys)
}

// Keys returns the column names in order.
func (r Row) Keys() []string {
	return slices.Clone(r.keys)
}

// Get returns the value of a column and whether the column is present.
func (r Row) Get(key string) (any, bool) {
	v, ok := r.values[key]

	return v, ok
}

// Value returns the value of a column, or nil when absent.
func (r Row) Value(key string) any {
	return r.values[key]
}

// Has reports whether the column is present, even with a nil value.
func (r Row) Has(key string) bool {
	_, ok := r.values[key]

	return ok
}

// Set a column value. A new column is appended after existing ones.
func (r *Row) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}

	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}

	r.values[key] = value
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	return Row{
		keys:   slices.Clone(r.keys),
		values: maps.Clone(r.values),
	}
}

// Map returns the row as a plain map, losing column order.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.keys))
	maps.Copy(m, r.values)

	return m
}

// MarshalJSON writes the row as a JSON object with columns in order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := jsontext.NewEncoder(&buf)

	if err := enc.WriteToken(jsontext.BeginObject); err != nil {
		return nil, err
	}

	for _, key := range r.keys {
		if err := enc.WriteToken(jsontext.String(key)); err != nil {
			return nil, err
		}

		raw, err := json.Marshal(r.values[key])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", key, err)
		}

		if err := enc.WriteValue(raw); err != nil {
			return nil, err
		}
	}

	if err := enc.WriteToken(jsontext.EndObject); err != nil {
		return nil, err
	}

	return bytes.TrimSpace(buf.Bytes()), nil
}

// UnmarshalJSON reads a JSON object into the row, keeping the order of its members.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := jsontext.NewDecoder(bytes.NewReader(data))

	tok, err := dec.ReadToken()
	if err != nil {
		return err
	}

	if tok.Kind() != '{' {
		return fmt.Errorf("row: expected a JSON object, got %v", tok.Kind())
	}

	var row Row
	for dec.PeekKind() != '}' {
		tok, err := dec.ReadToken()
		if err != nil {
			return err
		}
		// the token is only valid until the next read
		key := tok.String()

		raw, err := dec.ReadValue()
		if err != nil {
			return err
		}

		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return fmt.Errorf("column %q: %w", key, err)
		}

		row.Set(key, value)
	}

	if _, err := dec.ReadToken(); err != nil {
		return err
	}

	*r = row

	return nil
}

// Records is a result set as returned by a query service.
//
// Elements are either a [Row] (JSON objects) or a bare scalar: there is no schema contract.
type Records []any

// UnmarshalJSON decodes a JSON array, turning objects into ordered [Row] values.
func (rs *Records) UnmarshalJSON(data []byte) error {
	var raws []jsontext.Value
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}

	if raws == nil {
		*rs = nil

		return nil
	}

	records := make(Records, 0, len(raws))
	for i, raw := range raws {
		if raw.Kind() == '{' {
			var row Row
			if err := row.UnmarshalJSON(raw); err != nil {
				return fmt.Errorf("records[%d]: %w", i, err)
			}

			records = append(records, row)

			continue
		}

		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return fmt.Errorf("records[%d]: %w", i, err)
		}

		records = append(records, value)
	}

	*rs = records

	return nil
}
