// Package organizer lays out charts and their fetch status as a dashboard of panels.
package organizer

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/fredbi/chartviz/internal/pkg/fetch"
	"github.com/fredbi/chartviz/internal/pkg/identity"
	"github.com/fredbi/chartviz/internal/pkg/model"
	"github.com/fredbi/chartviz/internal/pkg/shape"
)

// ErrChartFailed is returned in strict mode when some chart is in error.
var ErrChartFailed = errors.New("chart data could not be fetched")

// StatusSource knows the fetch status of charts.
//
// [fetch.Controller] is a StatusSource.
type StatusSource interface {
	Status(id string) (fetch.Status, bool)
}

// Organizer turns chart definitions and their fetch statuses into a [model.Dashboard].
type Organizer struct {
	options

	l *slog.Logger
}

// New builds an [Organizer].
func New(opts ...Option) *Organizer {
	return &Organizer{
		options: optionsWithDefaults(opts),
		l:       slog.Default().With(slog.String("module", "organizer")),
	}
}

// Organize the charts into a [model.Dashboard], one panel per chart in the order of the charts.
func (o *Organizer) Organize(name string, charts []model.Chart, statuses StatusSource) (*model.Dashboard, error) {
	dashboard := &model.Dashboard{
		Name:   name,
		Panels: make([]model.Panel, 0, len(charts)),
	}

	for _, chart := range charts {
		status, _ := statuses.Status(chart.ID)
		panel := Panel(chart, status)

		if panel.State == model.PanelError {
			o.l.Warn("chart in error", slog.String("chart", chart.ID), slog.String("error", panel.Message))
			if o.isStrict {
				err := fmt.Errorf("%w: chart %q: %s", ErrChartFailed, chart.ID, panel.Message)
				o.l.Error("strict requirement not met", slog.String("error", err.Error()))

				return nil, err
			}
		}

		dashboard.Panels = append(dashboard.Panels, panel)
	}

	o.l.Info("dashboard organized",
		slog.Int("panels", len(dashboard.Panels)),
		slog.Int("ready", dashboard.Count(model.PanelReady)),
		slog.Int("empty", dashboard.Count(model.PanelEmpty)),
		slog.Int("errors", dashboard.Count(model.PanelError)),
	)

	return dashboard, nil
}

// Panel builds the panel of a chart from its fetch status.
//
// Fetched rows are reshaped for the current type of the chart. A chart loading again keeps
// showing its previous data.
func Panel(chart model.Chart, status fetch.Status) model.Panel {
	panel := model.Panel{
		Chart:    chart,
		Key:      identity.ToNumericKey(chart.ID),
		Metadata: status.Metadata,
	}

	switch status.State {
	case fetch.StateLoading:
		panel.State = model.PanelLoading
	case fetch.StateError:
		panel.State = model.PanelError
		panel.Message = status.Error
	case fetch.StateSuccess:
		if status.Empty() {
			panel.State = model.PanelEmpty
			panel.Message = "no data returned"

			return panel
		}

		panel.State = model.PanelReady
	default:
		panel.State = model.PanelIdle
	}

	if len(status.Data) > 0 && panel.State != model.PanelError {
		config := shape.Infer(status.Data, chart.Type)
		panel.Config = &config
	}

	return panel
}

// Pinned returns the charts with a given numeric key.
//
// Keys derived from non-numeric IDs may collide: several charts may be returned.
func Pinned(charts []model.Chart, key float64) []model.Chart {
	var pinned []model.Chart
	for _, chart := range charts {
		if identity.ToNumericKey(chart.ID) == key {
			pinned = append(pinned, chart)
		}
	}

	return pinned
}
