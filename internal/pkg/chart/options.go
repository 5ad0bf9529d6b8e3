package chart

import (
	"github.com/fredbi/chartviz/internal/pkg/config"
	"github.com/fredbi/chartviz/internal/pkg/model"
)

// Theme constants from go-echarts.
const (
	ThemeRoma = "roma"
)

// Option configures a [Chart].
type Option func(*options)

type options struct {
	Title      string
	Subtitle   string
	Type       model.ChartType
	Theme      string
	Legend     config.LegendPosition
	Horizontal bool
}

// WithTitle sets the chart title.
func WithTitle(title string) Option {
	return func(c *options) {
		c.Title = title
	}
}

// WithSubtitle sets the chart subtitle (typically query execution info).
func WithSubtitle(subtitle string) Option {
	return func(c *options) {
		c.Subtitle = subtitle
	}
}

// WithType sets the kind of chart to draw. The default is a bar chart.
func WithType(chartType model.ChartType) Option {
	return func(c *options) {
		if chartType.IsValid() {
			c.Type = chartType
		}
	}
}

// WithTheme sets the color theme.
func WithTheme(theme string) Option {
	return func(c *options) {
		if theme != "" {
			c.Theme = theme
		}
	}
}

// WithLegend sets the position of the legend. [config.LegendPositionNone] hides it.
func WithLegend(position config.LegendPosition) Option {
	return func(c *options) {
		if position != "" {
			c.Legend = position
		}
	}
}

// WithHorizontal enables or disables horizontal bar orientation.
func WithHorizontal(enabled bool) Option {
	return func(c *options) {
		c.Horizontal = enabled
	}
}

func optionsWithDefaults(opts []Option) options {
	o := options{
		Type:   model.ChartTypeBar,
		Theme:  ThemeRoma,
		Legend: config.LegendPositionBottom,
	}

	for _, apply := range opts {
		apply(&o)
	}

	return o
}
