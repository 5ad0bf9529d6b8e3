package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// ChartType tells how a chart is drawn, which in turn drives how its data is reshaped.
type ChartType string

// Supported chart types.
const (
	ChartTypeLine ChartType = "line"
	ChartTypeBar  ChartType = "bar"
	ChartTypePie  ChartType = "pie"
	ChartTypeArea ChartType = "area"
)

// String returns the chart type as a plain string.
func (t ChartType) String() string {
	return string(t)
}

// IsValid reports whether the chart type is one of the known chart types.
func (t ChartType) IsValid() bool {
	switch t {
	case ChartTypeLine, ChartTypeBar, ChartTypePie, ChartTypeArea:
		return true
	default:
		return false
	}
}

// IsSequential reports whether the chart plots its x-axis as an ordered progression.
func (t ChartType) IsSequential() bool {
	return t == ChartTypeLine || t == ChartTypeArea
}

// AllChartTypes returns all known chart types.
func AllChartTypes() []ChartType {
	return []ChartType{
		ChartTypeLine,
		ChartTypeBar,
		ChartTypePie,
		ChartTypeArea,
	}
}

// DateRange is an optional date filter applied to a chart query.
//
// Either bound may be unset while a user is still picking a range.
type DateRange struct {
	Start *time.Time `json:"startDate"`
	End   *time.Time `json:"endDate"`
}

// NewDateRange builds a complete [DateRange].
func NewDateRange(start, end time.Time) *DateRange {
	return &DateRange{Start: &start, End: &end}
}

// IsComplete reports whether both bounds are set.
func (d *DateRange) IsComplete() bool {
	return d != nil && d.Start != nil && d.End != nil
}

// Bounds returns the range formatted as "YYYY-MM-DD" strings.
//
// A range with a single bound is not usable: ok is false and both bounds are empty.
func (d *DateRange) Bounds() (from, to string, ok bool) {
	if !d.IsComplete() {
		return "", "", false
	}

	return FormatDate(*d.Start), FormatDate(*d.End), true
}

type dateRangeJSON struct {
	Start *string `json:"startDate"`
	End   *string `json:"endDate"`
}

// MarshalJSON writes the bounds as "YYYY-MM-DD" dates, or null when unset.
func (d DateRange) MarshalJSON() ([]byte, error) {
	var raw dateRangeJSON
	if d.Start != nil {
		start := FormatDate(*d.Start)
		raw.Start = &start
	}
	if d.End != nil {
		end := FormatDate(*d.End)
		raw.End = &end
	}

	return json.Marshal(raw)
}

// UnmarshalJSON reads "YYYY-MM-DD" bounds. Null or empty bounds are unset.
func (d *DateRange) UnmarshalJSON(data []byte) error {
	var raw dateRangeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var r DateRange
	for _, bound := range []struct {
		value *string
		dest  **time.Time
		name  string
	}{
		{raw.Start, &r.Start, "startDate"},
		{raw.End, &r.End, "endDate"},
	} {
		if bound.value == nil || *bound.value == "" {
			continue
		}

		t, err := ParseDate(*bound.value)
		if err != nil {
			return fmt.Errorf("%s: %w", bound.name, err)
		}
		*bound.dest = &t
	}

	*d = r

	return nil
}

// FormatDate formats the calendar date of t, as seen in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// ParseDate parses a "YYYY-MM-DD" date as a local calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, s, time.Local)
}

// Chart is a user-authored chart definition: a SQL query run against a database connection,
// drawn as a chart of some type, optionally restricted to a date range.
//
// The ID is the chart identity: it correlates a definition with its fetch status.
type Chart struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Type       ChartType  `json:"type"`
	Query      string     `json:"query"`
	Connection string     `json:"databaseConnectionId"`
	DateRange  *DateRange `json:"dateRange,omitempty"`
}

// HasSource reports whether the chart has both a query and a database connection to run it against.
func (c Chart) HasSource() bool {
	return c.Query != "" && c.Connection != ""
}

// Metadata describes how a result set was produced.
type Metadata struct {
	ExecutionTime float64 `json:"executionTime,omitempty"` // in milliseconds
	CachedAt      string  `json:"cachedAt,omitempty"`
}

// DataKeys designates the columns plotted as the main series and the optional secondary series.
type DataKeys struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary,omitempty"`
}

// ChartDataConfig is the renderer-ready form of a result set.
//
// Every row holds a number at DataKeys.Primary and a value at XAxisKey.
type ChartDataConfig struct {
	Data     []Row    `json:"data"`
	DataKeys DataKeys `json:"dataKeys"`
	XAxisKey string   `json:"xAxisKey"`
}

// HasSecondary reports whether a secondary series is plotted.
func (c ChartDataConfig) HasSecondary() bool {
	return c.DataKeys.Secondary != ""
}
