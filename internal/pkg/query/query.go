// Package query runs chart queries against database connections.
//
// A [Request] names a chart, a connection and a SQL query, optionally restricted to a date range.
// The answer is a [Response], which reports failures in-band rather than as Go errors.
package query

import (
	"context"
	"errors"

	"github.com/fredbi/chartviz/internal/pkg/model"
)

// Request to fetch the rows of a chart.
//
// FromDate and ToDate are "YYYY-MM-DD" dates, either both set or both empty.
type Request struct {
	ChartID    string `json:"chartId"`
	Connection string `json:"databaseConnectionId"`
	Query      string `json:"query"`
	FromDate   string `json:"fromDate,omitempty"`
	ToDate     string `json:"toDate,omitempty"`
}

// Response to a [Request].
type Response struct {
	Success bool    `json:"success"`
	Data    *Result `json:"data,omitempty"`
	Error   *Error  `json:"error,omitempty"`
}

// Result is the payload of a successful [Response].
type Result struct {
	Data     model.Records   `json:"data"`
	Metadata *model.Metadata `json:"metadata,omitempty"`
}

// Error reported by a failed [Response].
type Error struct {
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// ErrPartialDateRange is returned when only one bound of the date range of a [Request] is set.
var ErrPartialDateRange = errors.New("fromDate and toDate must be set together")

// Validate the date range of a [Request].
func (r Request) Validate() error {
	if (r.FromDate == "") != (r.ToDate == "") {
		return ErrPartialDateRange
	}

	return nil
}

// Succeeded builds a successful [Response].
func Succeeded(records model.Records, metadata *model.Metadata) *Response {
	if records == nil {
		records = model.Records{}
	}

	return &Response{
		Success: true,
		Data: &Result{
			Data:     records,
			Metadata: metadata,
		},
	}
}

// Failed builds a failed [Response].
func Failed(message string) *Response {
	return &Response{
		Error: &Error{Message: message},
	}
}

// Fetcher fetches the rows of a chart.
//
// A non-nil error means that no response could be obtained at all.
type Fetcher interface {
	FetchChartRows(ctx context.Context, req Request) (*Response, error)
}
