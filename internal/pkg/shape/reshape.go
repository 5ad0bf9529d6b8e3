package shape

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/fredbi/chartviz/internal/pkg/model"
)

// UnknownCategory labels rows without a value in the aggregated category column.
const UnknownCategory = "Unknown"

// categoryHints are the substrings looked for in column names when picking the column to count
// values of. This is a heuristic tuned for the dashboards this tool was first built for.
var categoryHints = []string{"value", "name", "category", "institute"}

// Infer analyzes a result set then reshapes it for the given chart type.
func Infer(records []any, chartType model.ChartType) model.ChartDataConfig {
	return Reshape(records, Analyze(records), chartType)
}

// Reshape produces the renderer-ready form of a result set, given its [Descriptor] and a chart type.
//
//   - bar charts without any numeric column count the occurrences of each category
//   - pie charts yield {name, value} rows
//   - line and area charts are sorted along their x-axis
//   - other bar charts keep their row order
//
// In all cases but the categorical count, the primary and secondary columns are coerced to
// numbers, with 0 for values that do not parse.
//
// An empty result set yields the default shape with no data.
func Reshape(records []any, d Descriptor, chartType model.ChartType) model.ChartDataConfig {
	rows := Normalize(records)
	if len(rows) == 0 {
		empty := DefaultDescriptor()

		return model.ChartDataConfig{
			Data:     []model.Row{},
			DataKeys: model.DataKeys{Primary: empty.PrimaryKey},
			XAxisKey: empty.XAxisKey,
		}
	}

	if chartType == model.ChartTypeBar && !d.HasNumeric() {
		return countCategories(rows, d)
	}

	coerced := coerce(rows, d)

	switch chartType {
	case model.ChartTypePie:
		return pieSlices(coerced, d)
	case model.ChartTypeLine, model.ChartTypeArea:
		SortByAxis(coerced, d.XAxisKey)
	}

	return model.ChartDataConfig{
		Data: coerced,
		DataKeys: model.DataKeys{
			Primary:   d.PrimaryKey,
			Secondary: d.SecondaryKey,
		},
		XAxisKey: d.XAxisKey,
	}
}

// coerce makes sure every row has an x-axis value and numbers in its series columns.
func coerce(rows []model.Row, d Descriptor) []model.Row {
	coerced := make([]model.Row, 0, len(rows))

	for i, row := range rows {
		r := row.Clone()

		if !r.Has(d.XAxisKey) {
			if d.XAxisKey == IndexKey {
				r.Set(IndexKey, i+1)
			} else {
				r.Set(d.XAxisKey, nil)
			}
		}

		r.Set(d.PrimaryKey, toNumber(r.Value(d.PrimaryKey)))
		if d.SecondaryKey != "" {
			r.Set(d.SecondaryKey, toNumber(r.Value(d.SecondaryKey)))
		}

		coerced = append(coerced, r)
	}

	return coerced
}

// CategoryKey picks the column whose values are counted when a bar chart has no numeric column.
//
// The first categorical column whose name hints at a category is preferred, then the last
// categorical column. Without any categorical column, the x-axis column is used.
func CategoryKey(d Descriptor) string {
	for _, key := range d.CategoricalKeys {
		lower := strings.ToLower(key)
		for _, hint := range categoryHints {
			if strings.Contains(lower, hint) {
				return key
			}
		}
	}

	if n := len(d.CategoricalKeys); n > 0 {
		return d.CategoricalKeys[n-1]
	}

	return d.XAxisKey
}

// countCategories emits one {name, value} row per distinct category, in order of first occurrence.
func countCategories(rows []model.Row, d Descriptor) model.ChartDataConfig {
	key := CategoryKey(d)
	counts := make(map[string]int)
	order := make([]string, 0)

	for _, row := range rows {
		name := UnknownCategory
		if v := row.Value(key); v != nil {
			name = text(v)
		}

		if _, seen := counts[name]; !seen {
			order = append(order, name)
		}

		counts[name]++
	}

	data := make([]model.Row, 0, len(order))
	for _, name := range order {
		data = append(data, model.NewRow(NameKey, name, ValueKey, float64(counts[name])))
	}

	return model.ChartDataConfig{
		Data:     data,
		DataKeys: model.DataKeys{Primary: ValueKey},
		XAxisKey: NameKey,
	}
}

// pieSlices emits {name, value} rows. Pie charts have no secondary series.
func pieSlices(rows []model.Row, d Descriptor) model.ChartDataConfig {
	data := make([]model.Row, 0, len(rows))

	for i, row := range rows {
		name := row.Value(d.XAxisKey)
		if name == nil {
			name = "Slice " + strconv.Itoa(i+1)
		}

		data = append(data, model.NewRow(NameKey, name, ValueKey, row.Value(d.PrimaryKey)))
	}

	return model.ChartDataConfig{
		Data:     data,
		DataKeys: model.DataKeys{Primary: ValueKey},
		XAxisKey: NameKey,
	}
}

// SortByAxis sorts rows in ascending order of their x-axis values, as defined by [CompareAxis].
//
// The sort is stable.
func SortByAxis(rows []model.Row, key string) {
	slices.SortStableFunc(rows, func(a, b model.Row) int {
		return CompareAxis(a.Value(key), b.Value(key))
	})
}

// CompareAxis compares two x-axis values:
//
//  1. two date strings compare as timestamps
//  2. two strings compare lexically
//  3. two numbers compare numerically
//  4. anything else compares as strings
func CompareAxis(a, b any) int {
	sa, aIsString := a.(string)
	sb, bIsString := b.(string)

	if aIsString && bIsString {
		if ta, ok := parseDate(sa); ok {
			if tb, ok := parseDate(sb); ok {
				return ta.Compare(tb)
			}
		}

		return strings.Compare(sa, sb)
	}

	na, aIsNumber := asNumber(a)
	nb, bIsNumber := asNumber(b)
	if aIsNumber && bIsNumber {
		return cmp.Compare(na, nb)
	}

	return strings.Compare(text(a), text(b))
}
