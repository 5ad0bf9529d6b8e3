package chart

import (
	"log/slog"
	"strconv"

	"github.com/fredbi/chartviz/internal/pkg/config"
	"github.com/fredbi/chartviz/internal/pkg/model"
)

// Builder constructs charts from the panels of a dashboard.
type Builder struct {
	cfg       *config.Config
	dashboard *model.Dashboard
	l         *slog.Logger
}

// New creates a new chart [Builder], given a [config.Config] and an organized [model.Dashboard].
//
// The builder embeds a [slog.Logger] to croak about warnings and issues.
func New(cfg *config.Config, dashboard *model.Dashboard) *Builder {
	return &Builder{
		cfg:       cfg,
		dashboard: dashboard,
		l:         slog.Default().With(slog.String("module", "chart")),
	}
}

// BuildPage creates a page with one chart per ready panel.
//
// Panels without data to draw are skipped.
func (b *Builder) BuildPage() *Page {
	title := b.cfg.Render.Title
	if title == "" {
		title = b.dashboard.Name
	}
	page := NewPage(title)

	for _, panel := range b.dashboard.Panels {
		chart := b.BuildChart(panel)
		if chart == nil {
			b.l.Warn("chart skipped",
				slog.String("chart", panel.Chart.ID),
				slog.String("state", string(panel.State)),
				slog.String("message", panel.Message),
			)
			page.Skip(panel.Chart.ID)

			continue
		}

		page.AddChart(chart)
		b.l.Info("added chart", slog.String("chart", panel.Chart.ID), slog.String("type", chart.Type.String()))
	}

	b.l.Info("added charts", slog.Int("charts", len(page.Charts)))

	return page
}

// BuildChart creates the chart of a single panel. It returns nil when the panel is not ready.
func (b *Builder) BuildChart(panel model.Panel) *Chart {
	if panel.State != model.PanelReady || panel.Config == nil || len(panel.Config.Data) == 0 {
		return nil
	}

	return NewChart(*panel.Config,
		WithTitle(panel.Title()),
		WithSubtitle(subtitle(panel.Metadata)),
		WithType(panel.Chart.Type),
		WithTheme(b.cfg.Render.Theme),
		WithLegend(b.cfg.Render.Legend),
		WithHorizontal(b.cfg.Render.Orientation == config.OrientationHorizontal),
	)
}

func subtitle(metadata *model.Metadata) string {
	if metadata == nil {
		return ""
	}

	if metadata.CachedAt != "" {
		return "cached at " + metadata.CachedAt
	}

	if metadata.ExecutionTime > 0 {
		return "executed in " + strconv.FormatFloat(metadata.ExecutionTime, 'f', 1, 64) + " ms"
	}

	return ""
}
