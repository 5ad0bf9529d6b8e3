package chart

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fredbi/chartviz/internal/pkg/config"
	"github.com/fredbi/chartviz/internal/pkg/model"
	"github.com/fredbi/chartviz/internal/pkg/shape"
	"github.com/go-echarts/go-echarts/v2/charts"

	"github.com/go-openapi/testify/v2/assert"
	"github.com/go-openapi/testify/v2/require"
)

// TestSmokeRender is an end-to-end smoke test that reshapes raw rows,
// builds charts of every type, and renders HTML output.
func TestSmokeRender(t *testing.T) {
	cfg := mustLoadConfig(t, smokeConfig())

	records := []any{
		model.NewRow("month", "2024-03-01", "revenue", "300", "orders", 12),
		model.NewRow("month", "2024-01-01", "revenue", "100", "orders", 4),
		model.NewRow("month", "2024-02-01", "revenue", "200", "orders", 9),
	}

	dashboard := &model.Dashboard{Name: "Smoke Test"}
	for _, chartType := range model.AllChartTypes() {
		data := shape.Infer(records, chartType)
		dashboard.Panels = append(dashboard.Panels, model.Panel{
			Chart:    model.Chart{ID: chartType.String(), Type: chartType},
			State:    model.PanelReady,
			Config:   &data,
			Metadata: &model.Metadata{ExecutionTime: 1.5},
		})
	}

	dashboard.Panels = append(dashboard.Panels,
		model.Panel{Chart: model.Chart{ID: "failing"}, State: model.PanelError, Message: "no such table"},
		model.Panel{Chart: model.Chart{ID: "empty"}, State: model.PanelEmpty},
	)

	builder := New(cfg, dashboard)
	page := builder.BuildPage()
	require.Len(t, page.Charts, 4, "panels without data are skipped")
	assert.Equal(t, []string{"failing", "empty"}, page.Skipped)
	assert.Equal(t, "Sales", page.Title)

	var buf bytes.Buffer
	require.NoError(t, page.Render(&buf))

	html := buf.String()
	require.NotEmpty(t, html)

	assert.True(t,
		strings.Contains(html, "<html>") || strings.Contains(html, "<!DOCTYPE html>") || strings.Contains(html, "<script"),
		"output doesn't look like HTML",
	)
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "executed in 1.5 ms")

	outFile := filepath.Join(t.TempDir(), "smoke_test_output.html")
	require.NoError(t, os.WriteFile(outFile, buf.Bytes(), 0o600))
	t.Logf("HTML output written to: %s (%d bytes)", outFile, buf.Len())
}

func TestBuild(t *testing.T) {
	data := model.ChartDataConfig{
		Data: []model.Row{
			model.NewRow("name", "A", "value", 2.0, "other", 1.0),
			model.NewRow("name", "B", "value", 1.0, "other", 3.0),
		},
		DataKeys: model.DataKeys{Primary: "value", Secondary: "other"},
		XAxisKey: "name",
	}

	t.Run("bar by default", func(t *testing.T) {
		c := NewChart(data)
		_, ok := c.Build().(*charts.Bar)
		assert.True(t, ok)
		assert.Equal(t, []string{"value", "other"}, c.seriesKeys())
	})

	t.Run("horizontal bar", func(t *testing.T) {
		c := NewChart(data, WithHorizontal(true))
		_, ok := c.Build().(*charts.Bar)
		assert.True(t, ok)

		x, y := c.setAxes()
		assert.Equal(t, "value", x.Type)
		assert.Equal(t, "category", y.Type)
	})

	t.Run("line", func(t *testing.T) {
		line, ok := NewChart(data, WithType(model.ChartTypeLine)).Build().(*charts.Line)
		require.True(t, ok)

		require.Len(t, line.MultiSeries, 2)
		for _, series := range line.MultiSeries {
			assert.Equal(t, "line", series.Type)
			assert.Nil(t, series.AreaStyle)
		}

		require.NotEmpty(t, line.XAxisList)
		assert.Equal(t, "category", line.XAxisList[0].Type)
		assert.Equal(t, "name", line.XAxisList[0].Name)
	})

	t.Run("area", func(t *testing.T) {
		line, ok := NewChart(data, WithType(model.ChartTypeArea)).Build().(*charts.Line)
		require.True(t, ok)

		require.Len(t, line.MultiSeries, 2)
		for _, series := range line.MultiSeries {
			assert.NotNil(t, series.AreaStyle)
		}
	})

	t.Run("line and area render", func(t *testing.T) {
		page := NewPage("Trends")
		page.AddChart(NewChart(data, WithType(model.ChartTypeLine), WithTitle("line")))
		page.AddChart(NewChart(data, WithType(model.ChartTypeArea), WithTitle("area")))

		var buf bytes.Buffer
		require.NoError(t, page.Render(&buf))
		assert.Contains(t, buf.String(), "areaStyle")
	})

	t.Run("pie", func(t *testing.T) {
		_, ok := NewChart(data, WithType(model.ChartTypePie)).Build().(*charts.Pie)
		assert.True(t, ok)
	})

	t.Run("unknown type", func(t *testing.T) {
		c := NewChart(data, WithType("scatter"))
		assert.Equal(t, model.ChartTypeBar, c.Type)
	})
}

func TestLabelsAndValues(t *testing.T) {
	c := NewChart(model.ChartDataConfig{
		Data: []model.Row{
			model.NewRow("index", 1, "v", 1.5),
			model.NewRow("index", 2.0, "v", "oops"),
			model.NewRow("index", nil, "v", 3.0),
			model.NewRow("index", 2.25, "v", 4.0),
		},
		DataKeys: model.DataKeys{Primary: "v"},
		XAxisKey: "index",
	})

	assert.Equal(t, []string{"1", "2", "", "2.25"}, c.Labels())
	assert.Equal(t, []float64{1.5, 0, 3, 4}, c.Values("v"))
	assert.Equal(t, []string{"v"}, c.seriesKeys())
}

func TestLegend(t *testing.T) {
	tests := []struct {
		position config.LegendPosition
		show     bool
		x, y     string
	}{
		{config.LegendPositionNone, false, "", ""},
		{config.LegendPositionBottom, true, "center", "bottom"},
		{config.LegendPositionTop, true, "center", "top"},
		{config.LegendPositionLeft, true, "left", "center"},
		{config.LegendPositionRight, true, "right", "center"},
	}

	for _, tt := range tests {
		t.Run(string(tt.position), func(t *testing.T) {
			legend := NewChart(model.ChartDataConfig{}, WithLegend(tt.position)).legend()
			require.NotNil(t, legend.Show)
			assert.Equal(t, tt.show, *legend.Show)
			assert.Equal(t, tt.x, legend.X)
			assert.Equal(t, tt.y, legend.Y)
		})
	}
}

func TestWithTitleAndSubtitle(t *testing.T) {
	c := NewChart(model.ChartDataConfig{}, WithTitle("My Title"), WithSubtitle("My Subtitle"))

	assert.Equal(t, "My Title", c.Title)
	assert.Equal(t, "My Subtitle", c.Subtitle)
	assert.Equal(t, ThemeRoma, c.Theme)
}

func TestBuildChartSkipsPanelsWithoutData(t *testing.T) {
	cfg := mustLoadConfig(t, smokeConfig())
	b := New(cfg, &model.Dashboard{})

	assert.Nil(t, b.BuildChart(model.Panel{State: model.PanelLoading}))
	assert.Nil(t, b.BuildChart(model.Panel{State: model.PanelReady}))
	assert.Nil(t, b.BuildChart(model.Panel{State: model.PanelReady, Config: &model.ChartDataConfig{}}))
}

func TestSubtitle(t *testing.T) {
	assert.Empty(t, subtitle(nil))
	assert.Empty(t, subtitle(&model.Metadata{}))
	assert.Equal(t, "executed in 12.3 ms", subtitle(&model.Metadata{ExecutionTime: 12.34}))
	assert.Equal(t, "cached at 2025-01-01T00:00:00Z", subtitle(&model.Metadata{ExecutionTime: 12.34, CachedAt: "2025-01-01T00:00:00Z"}))
}

func TestRenderEmptyPage(t *testing.T) {
	page := NewPage("Empty")

	var buf bytes.Buffer
	require.NoError(t, page.Render(&buf))

	assert.NotZero(t, buf.Len())
}

// helpers

func mustLoadConfig(t *testing.T, yamlContent string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(yamlContent), 0o600))
	cfg, err := config.Load(file)
	require.NoError(t, err)
	return cfg
}

func smokeConfig() string {
	return `
name: Smoke Test
render:
  title: Sales
  theme: roma
  legend: bottom
`
}
