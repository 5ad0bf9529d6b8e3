// Package shape infers the shape of untyped query results and reshapes them for charting.
//
// Query results come with no schema contract. [Analyze] inspects a sample row once per result set
// and produces an explicit [Descriptor]. [Reshape] then turns the result set into a
// [model.ChartDataConfig] according to the chart type.
package shape

import (
	"strconv"

	"github.com/fredbi/chartviz/internal/pkg/model"
)

// Well-known column names.
const (
	// ValueKey is the default primary key, and the value column of scalar and pie rows.
	ValueKey = "value"
	// LabelKey is the default x-axis key, and the label column of scalar rows.
	LabelKey = "label"
	// NameKey is the category column of pie rows and aggregated bar rows.
	NameKey = "name"
	// IndexKey is the synthetic x-axis used when the data has no natural axis column.
	IndexKey = "index"
)

// Descriptor describes the inferred shape of a result set.
type Descriptor struct {
	PrimaryKey      string   `json:"primaryKey"`
	SecondaryKey    string   `json:"secondaryKey,omitempty"`
	XAxisKey        string   `json:"xAxisKey"`
	NumericKeys     []string `json:"numericKeys"`
	CategoricalKeys []string `json:"categoricalKeys"`
}

// DefaultDescriptor is the shape of an empty result set.
func DefaultDescriptor() Descriptor {
	return Descriptor{
		PrimaryKey: ValueKey,
		XAxisKey:   LabelKey,
	}
}

// HasNumeric reports whether at least one numeric column was detected.
func (d Descriptor) HasNumeric() bool {
	return len(d.NumericKeys) > 0
}

// Normalize turns records into rows.
//
// Rows and maps are copied. Anything else is a bare scalar, wrapped as {value, label}
// where the label is "Row {n}" with n the 1-based position of the record.
func Normalize(records []any) []model.Row {
	rows := make([]model.Row, 0, len(records))

	for i, record := range records {
		switch r := record.(type) {
		case model.Row:
			rows = append(rows, r.Clone())
		case *model.Row:
			if r == nil {
				rows = append(rows, scalarRow(nil, i))

				continue
			}

			rows = append(rows, r.Clone())
		case map[string]any:
			rows = append(rows, model.RowFromMap(r))
		default:
			rows = append(rows, scalarRow(record, i))
		}
	}

	return rows
}

func scalarRow(v any, i int) model.Row {
	return model.NewRow(
		ValueKey, toNumber(v),
		LabelKey, "Row "+strconv.Itoa(i+1),
	)
}

// Analyze infers the [Descriptor] of a result set.
//
// Columns are classified from the first row only. Rows deviating from the sample are dealt
// with by coercion when reshaping.
func Analyze(records []any) Descriptor {
	return analyzeRows(Normalize(records))
}

func analyzeRows(rows []model.Row) Descriptor {
	if len(rows) == 0 {
		return DefaultDescriptor()
	}

	sample := rows[0]
	keys := sample.Keys()
	d := Descriptor{
		NumericKeys:     make([]string, 0, len(keys)),
		CategoricalKeys: make([]string, 0, len(keys)),
	}

	for _, key := range keys {
		value := sample.Value(key)
		if isNumeric(value) {
			d.NumericKeys = append(d.NumericKeys, key)
		}

		if isCategorical(value) {
			d.CategoricalKeys = append(d.CategoricalKeys, key)
		}
	}

	switch {
	case len(d.NumericKeys) > 0:
		d.PrimaryKey = d.NumericKeys[0]
	case len(keys) > 1:
		d.PrimaryKey = keys[1]
	case len(keys) == 1:
		d.PrimaryKey = keys[0]
	default:
		// a sample row without any column
		d.PrimaryKey = ValueKey
	}

	for _, key := range d.NumericKeys {
		if key != d.PrimaryKey {
			d.SecondaryKey = key

			break
		}
	}

	d.XAxisKey = IndexKey
	for _, key := range keys {
		if key == d.PrimaryKey || isNumeric(sample.Value(key)) {
			continue
		}

		d.XAxisKey = key

		break
	}

	return d
}
