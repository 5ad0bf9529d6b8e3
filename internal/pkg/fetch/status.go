package fetch

import (
	"github.com/fredbi/chartviz/internal/pkg/model"
)

// State of the data of a chart.
type State string

// Fetch states. A chart goes from absent to loading, then to success or error.
// A new fetch turns success or error back into loading.
const (
	StateAbsent  State = "absent"
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateError   State = "error"
)

// Status is what is known about the data of a chart.
//
// While loading again, the data and metadata of the previous successful fetch are retained.
// Data is the raw result set: it is reshaped when consumed, according to the chart type at that time.
type Status struct {
	State    State           `json:"state"`
	Data     model.Records   `json:"data,omitempty"`
	Metadata *model.Metadata `json:"metadata,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Loading reports whether a fetch is in flight.
func (s Status) Loading() bool {
	return s.State == StateLoading
}

// Failed reports whether the last fetch failed.
func (s Status) Failed() bool {
	return s.State == StateError
}

// Empty reports whether the last fetch succeeded with no rows.
func (s Status) Empty() bool {
	return s.State == StateSuccess && len(s.Data) == 0
}
