package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fredbi/chartviz/internal/pkg/model"

	"github.com/go-openapi/testify/v2/assert"
	"github.com/go-openapi/testify/v2/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadDefaults()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "roma", cfg.Render.Theme)
	assert.Equal(t, LegendPositionBottom, cfg.Render.Legend)
	assert.Equal(t, OrientationVertical, cfg.Render.Orientation)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Query.Timeout)
	assert.Zero(t, cfg.Query.CacheTTL)
	assert.Equal(t, time.Second, cfg.Render.Screenshot.SleepDuration())
	assert.Empty(t, cfg.Charts)
}

func TestLoadFixture(t *testing.T) {
	cfg := mustLoadFixture(t)

	assert.Equal(t, "Sales Dashboard", cfg.Name)
	assert.Equal(t, LegendPositionTop, cfg.Render.Legend)
	assert.Equal(t, "roma", cfg.Render.Theme, "defaults should be retained")

	t.Run("connections", func(t *testing.T) {
		require.Len(t, cfg.Connections, 2)

		sales, ok := cfg.GetConnection("sales")
		require.True(t, ok)
		assert.Equal(t, DriverSQLite, sales.Driver)
		assert.Equal(t, ":memory:", sales.DSN, "sqlite connections default to an in-memory database")

		require.Len(t, sales.Seeds, 1)
		seed := sales.Seeds[0]
		assert.Equal(t, filepath.Join(fixturePath(), "sales.csv"), seed.File, "seed files are relative to the config file")
		assert.Equal(t, SeedCSV, seed.Format)
		assert.Equal(t, "sales", seed.Table)

		warehouse, ok := cfg.GetConnection("warehouse")
		require.True(t, ok)
		assert.Equal(t, DriverPostgres, warehouse.Driver)
	})

	t.Run("charts", func(t *testing.T) {
		require.Len(t, cfg.Charts, 3)

		revenue, ok := cfg.GetChart("monthly_revenue")
		require.True(t, ok)
		assert.Equal(t, "Monthly Revenue", revenue.Title, "titles default to the titleized ID")
		assert.Equal(t, model.ChartTypeLine, revenue.Type)

		def := revenue.Definition()
		require.True(t, def.DateRange.IsComplete())
		from, to, ok := def.DateRange.Bounds()
		require.True(t, ok)
		assert.Equal(t, "2024-01-01", from, "unquoted YAML dates are supported")
		assert.Equal(t, "2024-03-31", to)

		pie, ok := cfg.GetChart("by-region")
		require.True(t, ok)
		assert.Equal(t, "Orders per region", pie.Title)
		assert.Nil(t, pie.Definition().DateRange)

		numeric, ok := cfg.GetChart("42")
		require.True(t, ok, "numeric IDs are read as strings")
		partial := numeric.Definition().DateRange
		require.NotNil(t, partial)
		assert.False(t, partial.IsComplete())
	})

	t.Run("chart definitions keep configuration order", func(t *testing.T) {
		defs := cfg.ChartDefinitions()
		require.Len(t, defs, 3)
		assert.Equal(t, "monthly_revenue", defs[0].ID)
		assert.Equal(t, "by-region", defs[1].ID)
		assert.Equal(t, "42", defs[2].ID)
		assert.Equal(t, "sales", defs[0].Connection)
	})
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := load(os.DirFS(dir), "nonexistent.yaml", &Config{})
	require.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(file, []byte(":\n  :\n    - [invalid"), 0o600))

	_, err := load(os.DirFS(dir), "bad.yaml", &Config{})
	require.Error(t, err)
}

func TestLoadDurations(t *testing.T) {
	cfg := mustLoadTestConfig(t, `
query:
  url: http://localhost:9090
  cacheTTL: 90s
  timeout: 2m
`)

	assert.Equal(t, "http://localhost:9090", cfg.Query.URL)
	assert.Equal(t, 90*time.Second, cfg.Query.CacheTTL)
	assert.Equal(t, 2*time.Minute, cfg.Query.Timeout)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "connection with empty ID",
			yaml: `
connections:
  - driver: sqlite3
`,
		},
		{
			name: "duplicate connection",
			yaml: `
connections:
  - id: a
  - id: a
`,
		},
		{
			name: "unsupported driver",
			yaml: `
connections:
  - id: a
    driver: oracle
    dsn: x
`,
		},
		{
			name: "postgres without DSN",
			yaml: `
connections:
  - id: a
    driver: postgres
`,
		},
		{
			name: "seed with unknown format",
			yaml: `
connections:
  - id: a
    seeds:
      - file: data.parquet
`,
		},
		{
			name: "chart with empty ID",
			yaml: `
charts:
  - type: bar
`,
		},
		{
			name: "duplicate chart",
			yaml: `
charts:
  - id: c
  - id: c
`,
		},
		{
			name: "unsupported chart type",
			yaml: `
charts:
  - id: c
    type: scatter
`,
		},
		{
			name: "unknown connection",
			yaml: `
charts:
  - id: c
    connection: nowhere
`,
		},
		{
			name: "invalid date",
			yaml: `
charts:
  - id: c
    dateRange:
      start: 'yesterday'
`,
		},
		{
			name: "inverted date range",
			yaml: `
charts:
  - id: c
    dateRange:
      start: '2024-05-01'
      end: '2024-01-01'
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			file := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(file, []byte(tt.yaml), 0o600))

			_, err := Load(file)
			require.Error(t, err)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestChartDefaults(t *testing.T) {
	cfg := mustLoadTestConfig(t, `
charts:
  - id: no_type
`)

	chart, ok := cfg.GetChart("no_type")
	require.True(t, ok)
	assert.Equal(t, model.ChartTypeBar, chart.Type)
	assert.Equal(t, "No Type", chart.Title)
	assert.False(t, chart.Definition().HasSource(), "a chart without query nor connection is allowed")
}

func TestSeedDefaults(t *testing.T) {
	cfg := mustLoadTestConfig(t, `
connections:
  - id: bench
    seeds:
      - file: /data/Run 1.txt
      - file: /data/results.json
        table: results
      - file: /data/book.xlsx
        sheet: Q1
`)

	conn, ok := cfg.GetConnection("bench")
	require.True(t, ok)
	require.Len(t, conn.Seeds, 3)

	assert.Equal(t, SeedBenchmark, conn.Seeds[0].Format)
	assert.Equal(t, "run_1", conn.Seeds[0].Table)
	assert.Equal(t, SeedBenchJSON, conn.Seeds[1].Format)
	assert.Equal(t, "results", conn.Seeds[1].Table)
	assert.Equal(t, SeedXLSX, conn.Seeds[2].Format)
	assert.Equal(t, "Q1", conn.Seeds[2].Sheet)
}

func TestDriver(t *testing.T) {
	for _, d := range AllDrivers() {
		assert.True(t, d.IsValid(), "expected %q to be valid", d)
	}

	assert.False(t, Driver("mysql").IsValid())
	assert.Equal(t, "sqlite3", DriverSQLite.String())
}

func TestTitleize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"monthly_revenue", "Monthly Revenue"},
		{"by-region", "By Region"},
		{"KPI", "KPI"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, titleize(tt.input))
		})
	}
}

func TestEncodeYAML(t *testing.T) {
	cfg := mustLoadFixture(t)

	var buf bytes.Buffer
	require.NoError(t, cfg.EncodeYAML(&buf))

	assert.Contains(t, buf.String(), "monthly_revenue")
	assert.Contains(t, buf.String(), "Sales Dashboard")
	assert.NotContains(t, buf.String(), "htmlfile")
}

// helpers

func fixturePath() string {
	return "testdata"
}

func mustLoadFixture(t *testing.T) *Config {
	t.Helper()

	cfg, err := Load(filepath.Join(fixturePath(), "chartviz.yaml"))
	require.NoError(t, err)

	return cfg
}

func mustLoadTestConfig(t *testing.T, yamlContent string) *Config {
	t.Helper()

	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(yamlContent), 0o600))

	cfg, err := Load(file)
	require.NoError(t, err)

	return cfg
}
