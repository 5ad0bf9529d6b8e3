// Package fetch orchestrates the asynchronous fetching of chart data.
//
// A [Controller] keeps one [Status] per chart ID. Fetches run in the background:
// callers read statuses at any time and find a chart loading, loaded or failed.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/fredbi/chartviz/internal/pkg/model"
	"github.com/fredbi/chartviz/internal/pkg/query"
)

// GenericErrorMessage is reported when a failed fetch comes without any explanation.
const GenericErrorMessage = "failed to fetch chart data"

// Controller fetches chart data and tracks the fetch status of each chart.
//
// Every issued request is tagged with a generation number. A result is applied only if no other
// request has been issued for the same chart since: the last request wins, whatever the order
// in which responses arrive.
type Controller struct {
	options

	fetcher    query.Fetcher
	mx         sync.Mutex
	buckets    map[string]*bucket
	ranges     map[string]model.DateRange
	generation uint64
	inflight   map[uint64]chan struct{}
	l          *slog.Logger
}

type bucket struct {
	status     Status
	generation uint64
	request    query.Request
}

// New [Controller] fetching chart rows from a [query.Fetcher].
func New(fetcher query.Fetcher, opts ...Option) *Controller {
	return &Controller{
		options:  optionsWithDefaults(opts),
		fetcher:  fetcher,
		buckets:  make(map[string]*bucket),
		ranges:   make(map[string]model.DateRange),
		inflight: make(map[uint64]chan struct{}),
		l:        slog.Default().With(slog.String("module", "fetch")),
	}
}

// EnsureFetched issues a fetch for a chart that has never been fetched. Otherwise, it does nothing.
//
// A chart without a query or a database connection is not fetched: its status is set to error.
func (c *Controller) EnsureFetched(ctx context.Context, chart model.Chart) {
	c.mx.Lock()
	defer c.mx.Unlock()

	if _, ok := c.buckets[chart.ID]; ok {
		return
	}

	c.issue(ctx, chart, nil)
}

// Refetch issues a new fetch for a chart, whatever its current status.
//
// The date range of the request is taken from the override if any, else from the range
// tracked with [Controller.SetDateRange], else from the chart definition.
// Dates are sent only when both bounds of the range are set.
func (c *Controller) Refetch(ctx context.Context, chart model.Chart, override *model.DateRange) {
	c.mx.Lock()
	defer c.mx.Unlock()

	c.issue(ctx, chart, override)
}

// SetDateRange tracks a date range for a chart and refetches it. A nil range stops tracking.
func (c *Controller) SetDateRange(ctx context.Context, chart model.Chart, r *model.DateRange) {
	c.mx.Lock()
	defer c.mx.Unlock()

	if r == nil {
		delete(c.ranges, chart.ID)
	} else {
		c.ranges[chart.ID] = *r
	}

	c.issue(ctx, chart, nil)
}

// DateRange returns the date range tracked for a chart.
func (c *Controller) DateRange(id string) (model.DateRange, bool) {
	c.mx.Lock()
	defer c.mx.Unlock()

	r, ok := c.ranges[id]

	return r, ok
}

// Sync fetches a chart if it has never been fetched, or refetches it when its query,
// database connection or effective date range differ from those of the last request.
func (c *Controller) Sync(ctx context.Context, chart model.Chart) {
	c.mx.Lock()
	defer c.mx.Unlock()

	b, ok := c.buckets[chart.ID]
	if ok && b.request == c.request(chart, nil) {
		return
	}

	c.issue(ctx, chart, nil)
}

// Forget the status and date range of a chart, e.g. when the chart is deleted.
//
// A fetch still in flight for this chart is ignored when it completes.
func (c *Controller) Forget(id string) {
	c.mx.Lock()
	defer c.mx.Unlock()

	delete(c.buckets, id)
	delete(c.ranges, id)
}

// Status of a chart. A chart never fetched is reported as absent.
func (c *Controller) Status(id string) (Status, bool) {
	c.mx.Lock()
	defer c.mx.Unlock()

	b, ok := c.buckets[id]
	if !ok {
		return Status{State: StateAbsent}, false
	}

	return b.status, true
}

// Statuses returns a snapshot of the statuses of all known charts.
func (c *Controller) Statuses() map[string]Status {
	c.mx.Lock()
	defer c.mx.Unlock()

	statuses := make(map[string]Status, len(c.buckets))
	for id, b := range c.buckets {
		statuses[id] = b.status
	}

	return statuses
}

// Wait for the fetches issued before the call to complete.
//
// Fetches issued while waiting are not waited for.
func (c *Controller) Wait() {
	c.mx.Lock()
	pending := make([]chan struct{}, 0, len(c.inflight))
	for _, done := range c.inflight {
		pending = append(pending, done)
	}
	c.mx.Unlock()

	for _, done := range pending {
		<-done
	}
}

// issue a new request for a chart. The caller holds the lock.
func (c *Controller) issue(ctx context.Context, chart model.Chart, override *model.DateRange) {
	c.generation++
	b := &bucket{
		generation: c.generation,
		request:    c.request(chart, override),
	}

	if !chart.HasSource() {
		b.status = Status{State: StateError, Error: configurationError(chart)}
		c.buckets[chart.ID] = b
		c.changed(chart.ID, b.status)
		c.l.Warn("chart not fetched", slog.String("chart", chart.ID), slog.String("reason", b.status.Error))

		return
	}

	b.status = Status{State: StateLoading}
	if previous, ok := c.buckets[chart.ID]; ok {
		b.status.Data = previous.status.Data
		b.status.Metadata = previous.status.Metadata
	}

	c.buckets[chart.ID] = b
	c.changed(chart.ID, b.status)

	c.inflight[b.generation] = make(chan struct{})
	go c.fetch(context.WithoutCancel(ctx), chart.ID, b.generation, b.request)
}

// request builds the request for a chart. The caller holds the lock.
func (c *Controller) request(chart model.Chart, override *model.DateRange) query.Request {
	req := query.Request{
		ChartID:    chart.ID,
		Connection: chart.Connection,
		Query:      chart.Query,
	}

	r := override
	if r == nil {
		if tracked, ok := c.ranges[chart.ID]; ok {
			r = &tracked
		} else {
			r = chart.DateRange
		}
	}

	if from, to, ok := r.Bounds(); ok {
		req.FromDate, req.ToDate = from, to
	}

	return req
}

func (c *Controller) fetch(ctx context.Context, id string, generation uint64, req query.Request) {
	status := c.do(ctx, req)

	c.mx.Lock()
	defer c.mx.Unlock()

	close(c.inflight[generation])
	delete(c.inflight, generation)

	b, ok := c.buckets[id]
	if !ok || b.generation != generation {
		c.l.Debug("stale chart data discarded", slog.String("chart", id), slog.Uint64("generation", generation))

		return
	}

	b.status = status
	c.changed(id, status)

	if status.Failed() {
		c.l.Warn("chart data fetch failed", slog.String("chart", id), slog.String("error", status.Error))
	}
}

func (c *Controller) do(ctx context.Context, req query.Request) (status Status) {
	defer func() {
		if r := recover(); r != nil {
			c.l.Error("chart data fetch panicked", slog.String("chart", req.ChartID), slog.Any("panic", r))
			status = failure(panicMessage(r))
		}
	}()

	resp, err := c.fetcher.FetchChartRows(ctx, req)
	if err != nil {
		return failure(err.Error())
	}

	if resp == nil {
		return failure("")
	}

	if !resp.Success {
		if resp.Error == nil {
			return failure("")
		}

		return failure(resp.Error.Message)
	}

	status = Status{
		State: StateSuccess,
		Data:  model.Records{},
	}

	if resp.Data != nil {
		if resp.Data.Data != nil {
			status.Data = resp.Data.Data
		}
		status.Metadata = resp.Data.Metadata
	}

	return status
}

func (c *Controller) changed(id string, status Status) {
	if c.onChange == nil {
		return
	}

	c.onChange(id, status)
}

func failure(message string) Status {
	message = strings.TrimSpace(message)
	if message == "" {
		message = GenericErrorMessage
	}

	return Status{State: StateError, Error: message}
}

func panicMessage(r any) string {
	var err error
	switch v := r.(type) {
	case error:
		err = v
	case string:
		err = errors.New(v)
	default:
		return ""
	}

	return fmt.Sprintf("%s: %v", GenericErrorMessage, err)
}

func configurationError(chart model.Chart) string {
	var missing []string
	if chart.Query == "" {
		missing = append(missing, "query")
	}
	if chart.Connection == "" {
		missing = append(missing, "database connection")
	}

	return "chart is not configured: missing " + strings.Join(missing, " and ")
}
