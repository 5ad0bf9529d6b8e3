package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/fredbi/chartviz/internal/pkg/chart"
	"github.com/fredbi/chartviz/internal/pkg/config"
	"github.com/fredbi/chartviz/internal/pkg/fetch"
	"github.com/fredbi/chartviz/internal/pkg/image"
	"github.com/fredbi/chartviz/internal/pkg/model"
	"github.com/fredbi/chartviz/internal/pkg/organizer"
	"github.com/fredbi/chartviz/internal/pkg/query"
	"github.com/fredbi/chartviz/internal/pkg/server"
	"github.com/fredbi/chartviz/internal/pkg/shape"
)

// render fetches the data of charts and renders them as an HTML page, then possibly as a PNG image.
func (c *Command) render(ctx context.Context, ids []string) error {
	cfg, cleanup, err := c.prepareConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	fetcher, closer, err := newFetcher(cfg)
	if err != nil {
		return err
	}
	defer closer()

	// 1. fetch chart data and build a chart page
	htmlRenderer, err := c.buildPage(ctx, cfg, fetcher, ids)
	if err != nil {
		return err
	}

	// 2. render the page as HTML, possibly to stdout, possibly to temp file
	htmlWriter, htmlCloser, err := c.getWriter(cfg.Outputs.HTMLFile, "HTML")
	if err != nil {
		return err
	}

	if err := htmlRenderer.Render(htmlWriter); err != nil {
		htmlCloser()
		return fmt.Errorf("rendering page: %w", err)
	}

	htmlCloser()

	if cfg.Outputs.PngFile == "" {
		// html only: we're done
		return nil
	}

	// 3. convert the HTML page to a PNG image
	htmlReader, htmlCloser, err := getReader(cfg.Outputs.HTMLFile, "HTML")
	if err != nil {
		return err
	}
	defer htmlCloser()

	pngWriter, pngCloser, err := c.getWriter(cfg.Outputs.PngFile, "PNG")
	if err != nil {
		return err
	}
	defer pngCloser()

	r := image.New(image.WithScreenshot(cfg.Render.Screenshot))
	if err = r.Render(ctx, pngWriter, htmlReader); err != nil {
		return fmt.Errorf("rendering image: %w", err)
	}

	return nil
}

func (c *Command) buildPage(ctx context.Context, cfg *config.Config, fetcher query.Fetcher, ids []string) (*chart.Page, error) {
	// 1. fetch the data of the selected charts
	dashboard, err := c.fetchDashboard(ctx, cfg, fetcher, ids)
	if err != nil {
		return nil, err
	}

	// 2. build a page with one chart per panel with data
	builder := chart.New(cfg, dashboard)

	return builder.BuildPage(), nil
}

// fetchDashboard fetches the data of the selected charts, waits for all fetches and organizes the result.
func (c *Command) fetchDashboard(ctx context.Context, cfg *config.Config, fetcher query.Fetcher, ids []string) (*model.Dashboard, error) {
	charts, err := selectCharts(cfg, ids)
	if err != nil {
		return nil, err
	}

	controller := fetch.New(fetcher)

	t0 := time.Now()
	for _, ch := range charts {
		controller.EnsureFetched(ctx, ch)
	}
	controller.Wait()
	c.L.Info("fetched chart data", slog.Int("charts", len(charts)), slog.Duration("duration", time.Since(t0)))

	o := organizer.New(organizer.WithStrict(c.Strict))

	return o.Organize(cfg.Name, charts, controller)
}

// reportEntry describes what was fetched for a chart.
type reportEntry struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Type     model.ChartType   `json:"type"`
	Key      float64           `json:"key"`
	State    model.PanelState  `json:"state"`
	Message  string            `json:"message,omitempty"`
	Rows     int               `json:"rows"`
	Shape    *shape.Descriptor `json:"shape,omitempty"`
	Metadata *model.Metadata   `json:"metadata,omitempty"`
}

// report produces a report that explores the data of charts.
func (c *Command) report(ctx context.Context, ids []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	fetcher, closer, err := newFetcher(cfg)
	if err != nil {
		return err
	}
	defer closer()

	charts, err := selectCharts(cfg, ids)
	if err != nil {
		return err
	}

	controller := fetch.New(fetcher)
	for _, ch := range charts {
		controller.EnsureFetched(ctx, ch)
	}
	controller.Wait()

	entries := make([]reportEntry, 0, len(charts))
	for _, ch := range charts {
		status, _ := controller.Status(ch.ID)
		panel := organizer.Panel(ch, status)

		entry := reportEntry{
			ID:       ch.ID,
			Title:    panel.Title(),
			Type:     ch.Type,
			Key:      panel.Key,
			State:    panel.State,
			Message:  panel.Message,
			Rows:     len(status.Data),
			Metadata: status.Metadata,
		}

		if len(status.Data) > 0 {
			descriptor := shape.Analyze(status.Data)
			entry.Shape = &descriptor
		}

		entries = append(entries, entry)
	}

	enc := json.NewEncoder(c.out)
	enc.SetIndent("", " ")

	return enc.Encode(entries)
}

// query runs a single query and prints the response as JSON.
func (c *Command) query(ctx context.Context, sql string) error {
	if (c.FromDate == "") != (c.ToDate == "") {
		return errors.New("--from and --to must be set together")
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	fetcher, closer, err := newFetcher(cfg)
	if err != nil {
		return err
	}
	defer closer()

	resp, err := fetcher.FetchChartRows(ctx, query.Request{
		Connection: c.Connection,
		Query:      sql,
		FromDate:   c.FromDate,
		ToDate:     c.ToDate,
	})
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	enc := json.NewEncoder(c.out)
	enc.SetIndent("", " ")

	if err := enc.Encode(resp); err != nil {
		return err
	}

	if !resp.Success && resp.Error != nil {
		return resp.Error
	}

	return nil
}

// serve the dashboard until the context is canceled.
func (c *Command) serve(ctx context.Context) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	fetcher, closer, err := newFetcher(cfg)
	if err != nil {
		return err
	}
	defer closer()

	return server.New(cfg, fetcher).Start(ctx)
}

// selectCharts returns the configured charts with the given IDs, or all charts when no ID is given.
func selectCharts(cfg *config.Config, ids []string) ([]model.Chart, error) {
	all := cfg.ChartDefinitions()
	if len(ids) == 0 {
		return all, nil
	}

	charts := make([]model.Chart, 0, len(ids))
	for _, id := range ids {
		idx := slices.IndexFunc(all, func(ch model.Chart) bool { return ch.ID == id })
		if idx < 0 {
			return nil, fmt.Errorf("chart %q: %w", id, server.ErrChartNotFound)
		}

		charts = append(charts, all[idx])
	}

	return charts, nil
}
