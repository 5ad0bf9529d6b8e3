package server

import (
	"errors"
	"slices"
	"sync"

	"github.com/fredbi/chartviz/internal/pkg/model"
)

var (
	// ErrChartNotFound is returned when a chart ID is not registered.
	ErrChartNotFound = errors.New("chart not found")

	// ErrChartExists is returned when registering a chart ID twice.
	ErrChartExists = errors.New("chart already exists")
)

// registry holds the chart definitions served, in registration order.
type registry struct {
	mx     sync.RWMutex
	charts []model.Chart
}

func newRegistry(charts []model.Chart) *registry {
	return &registry{
		charts: slices.Clone(charts),
	}
}

func (r *registry) list() []model.Chart {
	r.mx.RLock()
	defer r.mx.RUnlock()

	return slices.Clone(r.charts)
}

func (r *registry) get(id string) (model.Chart, error) {
	r.mx.RLock()
	defer r.mx.RUnlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return model.Chart{}, ErrChartNotFound
	}

	return r.charts[idx], nil
}

func (r *registry) add(chart model.Chart) error {
	r.mx.Lock()
	defer r.mx.Unlock()

	if r.indexOf(chart.ID) >= 0 {
		return ErrChartExists
	}

	r.charts = append(r.charts, chart)

	return nil
}

func (r *registry) update(chart model.Chart) error {
	r.mx.Lock()
	defer r.mx.Unlock()

	idx := r.indexOf(chart.ID)
	if idx < 0 {
		return ErrChartNotFound
	}

	r.charts[idx] = chart

	return nil
}

func (r *registry) remove(id string) error {
	r.mx.Lock()
	defer r.mx.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return ErrChartNotFound
	}

	r.charts = slices.Delete(r.charts, idx, idx+1)

	return nil
}

func (r *registry) indexOf(id string) int {
	return slices.IndexFunc(r.charts, func(c model.Chart) bool {
		return c.ID == id
	})
}
