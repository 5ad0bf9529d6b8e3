package chart

import (
	"fmt"
	"strconv"

	"github.com/fredbi/chartviz/internal/pkg/config"
	"github.com/fredbi/chartviz/internal/pkg/model"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	echartsopts "github.com/go-echarts/go-echarts/v2/opts"
)

const (
	defaultFontSize = 12
	xAxisLabelAngle = 30
	axisNameGap     = 32
)

// Chart draws a [model.ChartDataConfig].
type Chart struct {
	options

	Data model.ChartDataConfig
}

// NewChart creates a new chart for reshaped data.
func NewChart(data model.ChartDataConfig, opts ...Option) *Chart {
	return &Chart{
		options: optionsWithDefaults(opts),
		Data:    data,
	}
}

// Labels returns the x-axis values of the data, as text.
func (c *Chart) Labels() []string {
	labels := make([]string, 0, len(c.Data.Data))
	for _, row := range c.Data.Data {
		labels = append(labels, label(row.Value(c.Data.XAxisKey)))
	}

	return labels
}

// Values returns the values of a series column.
func (c *Chart) Values(key string) []float64 {
	values := make([]float64, 0, len(c.Data.Data))
	for _, row := range c.Data.Data {
		v, _ := row.Value(key).(float64)
		values = append(values, v)
	}

	return values
}

// Build creates the ECharts chart from the accumulated configuration.
func (c *Chart) Build() components.Charter {
	switch c.Type {
	case model.ChartTypePie:
		return c.buildPie()
	case model.ChartTypeLine, model.ChartTypeArea:
		return c.buildLine()
	default:
		return c.buildBar()
	}
}

func (c *Chart) buildBar() *charts.Bar {
	bar := charts.NewBar()
	xAxisOpts, yAxisOpts := c.setAxes()

	bar.SetGlobalOptions(append(c.globalOptions(),
		charts.WithXAxisOpts(xAxisOpts),
		charts.WithYAxisOpts(yAxisOpts),
		charts.WithTooltipOpts(echartsopts.Tooltip{
			Show:    echartsopts.Bool(true),
			Trigger: "axis",
			AxisPointer: &echartsopts.AxisPointer{
				Type: "shadow",
			},
		}),
	)...)

	bar.SetXAxis(c.Labels())

	for _, key := range c.seriesKeys() {
		values := c.Values(key)
		data := make([]echartsopts.BarData, 0, len(values))
		for _, v := range values {
			data = append(data, echartsopts.BarData{Value: v})
		}

		bar.AddSeries(key, data)
	}

	if c.Horizontal {
		return bar.XYReversal()
	}

	return bar
}

func (c *Chart) buildLine() *charts.Line {
	line := charts.NewLine()
	xAxisOpts, yAxisOpts := c.setAxes()

	line.SetGlobalOptions(append(c.globalOptions(),
		charts.WithXAxisOpts(xAxisOpts),
		charts.WithYAxisOpts(yAxisOpts),
		charts.WithTooltipOpts(echartsopts.Tooltip{
			Show:    echartsopts.Bool(true),
			Trigger: "axis",
		}),
	)...)

	line.SetXAxis(c.Labels())

	seriesOpts := []charts.SeriesOpts{
		charts.WithLineChartOpts(echartsopts.LineChart{
			ShowSymbol: echartsopts.Bool(true),
		}),
	}
	if c.Type == model.ChartTypeArea {
		seriesOpts = append(seriesOpts, charts.WithAreaStyleOpts(echartsopts.AreaStyle{}))
	}

	for _, key := range c.seriesKeys() {
		values := c.Values(key)
		data := make([]echartsopts.LineData, 0, len(values))
		for _, v := range values {
			data = append(data, echartsopts.LineData{Value: v})
		}

		line.AddSeries(key, data, seriesOpts...)
	}

	return line
}

func (c *Chart) buildPie() *charts.Pie {
	pie := charts.NewPie()

	pie.SetGlobalOptions(append(c.globalOptions(),
		charts.WithTooltipOpts(echartsopts.Tooltip{
			Show:    echartsopts.Bool(true),
			Trigger: "item",
		}),
	)...)

	labels := c.Labels()
	values := c.Values(c.Data.DataKeys.Primary)
	data := make([]echartsopts.PieData, 0, len(values))
	for i, v := range values {
		data = append(data, echartsopts.PieData{Name: labels[i], Value: v})
	}

	pie.AddSeries(c.Title, data,
		charts.WithLabelOpts(echartsopts.Label{
			Show:      echartsopts.Bool(true),
			Formatter: "{b}: {c}",
		}),
		charts.WithPieChartOpts(echartsopts.PieChart{
			Radius: []string{"30%", "65%"},
		}),
	)

	return pie
}

// globalOptions are shared by all kinds of charts.
func (c *Chart) globalOptions() []charts.GlobalOpts {
	titleOpts := echartsopts.Title{
		Title: c.Title,
	}
	if c.Subtitle != "" {
		titleOpts.Subtitle = c.Subtitle
		titleOpts.SubtitleStyle = &echartsopts.TextStyle{
			FontStyle: "italic",
			FontSize:  defaultFontSize,
		}
	}

	// Toolbox options
	toolboxOpts := echartsopts.Toolbox{
		Left: "right",
		Feature: &echartsopts.ToolBoxFeature{
			SaveAsImage: &echartsopts.ToolBoxFeatureSaveAsImage{
				Title: "Save as image",
			},
		},
	}

	return []charts.GlobalOpts{
		charts.WithInitializationOpts(echartsopts.Initialization{Theme: c.Theme}),
		charts.WithToolboxOpts(toolboxOpts),
		charts.WithTitleOpts(titleOpts),
		charts.WithLegendOpts(c.legend()),
		charts.WithGridOpts(echartsopts.Grid{
			Bottom: "100",
			Top:    "100",
		}),
	}
}

func (c *Chart) legend() echartsopts.Legend {
	legendOpts := echartsopts.Legend{
		Show: echartsopts.Bool(c.Legend != config.LegendPositionNone),
	}

	switch c.Legend {
	case config.LegendPositionTop:
		legendOpts.X = "center"
		legendOpts.Y = "top"
	case config.LegendPositionLeft:
		legendOpts.X = "left"
		legendOpts.Y = "center"
		legendOpts.Orient = "vertical"
	case config.LegendPositionRight:
		legendOpts.X = "right"
		legendOpts.Y = "center"
		legendOpts.Orient = "vertical"
	case config.LegendPositionBottom:
		legendOpts.X = "center"
		legendOpts.Y = "bottom"
	}

	return legendOpts
}

// seriesKeys returns the columns drawn as series: the primary, then the secondary if any.
func (c *Chart) seriesKeys() []string {
	keys := []string{c.Data.DataKeys.Primary}
	if c.Data.HasSecondary() {
		keys = append(keys, c.Data.DataKeys.Secondary)
	}

	return keys
}

func (c *Chart) setAxes() (echartsopts.XAxis, echartsopts.YAxis) {
	const (
		xType        = "category"
		yType        = "value"
		axisPosition = "bottom"
	)

	categoryName := c.Data.XAxisKey
	valueName := c.Data.DataKeys.Primary

	if !c.Horizontal || c.Type != model.ChartTypeBar {
		xAxisOpts := echartsopts.XAxis{
			Name:         categoryName,
			Type:         xType,
			Position:     axisPosition,
			NameLocation: "end",
			AxisTick: &echartsopts.AxisTick{
				AlignWithLabel: echartsopts.Bool(true),
			},
			AxisLabel: &echartsopts.AxisLabel{
				Rotate:       xAxisLabelAngle,
				ShowMinLabel: echartsopts.Bool(true),
				ShowMaxLabel: echartsopts.Bool(true),
				HideOverlap:  echartsopts.Bool(true),
			},
		}

		yAxisOpts := echartsopts.YAxis{
			Name:  valueName,
			Type:  yType,
			Scale: echartsopts.Bool(true),
		}

		return xAxisOpts, yAxisOpts
	}

	// horizontal bar layout
	yAxisOpts := echartsopts.YAxis{
		Name:         categoryName,
		Type:         xType,
		Position:     axisPosition,
		NameLocation: "end",
		AxisLabel: &echartsopts.AxisLabel{
			Interval:     "0",
			ShowMinLabel: echartsopts.Bool(true),
			ShowMaxLabel: echartsopts.Bool(true),
			HideOverlap:  echartsopts.Bool(false),
		},
	}

	xAxisOpts := echartsopts.XAxis{
		Name:         valueName,
		NameLocation: "center",
		NameGap:      axisNameGap,
		Type:         yType,
		Scale:        echartsopts.Bool(true),
	}

	return xAxisOpts, yAxisOpts
}

// label renders an x-axis value as text. Whole numbers are written without decimals.
func label(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(value), 'f', -1, 32)
	default:
		return fmt.Sprint(value)
	}
}
