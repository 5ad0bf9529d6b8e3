package config

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/fredbi/chartviz/internal/pkg/model"
	"github.com/go-viper/mapstructure/v2"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed default_config.yaml
var efs embed.FS

// ErrInvalidConfig is returned when a configuration file does not validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the configuration for chartviz.
type Config struct {
	Name        string
	Render      Rendering
	Outputs     Output `mapstructure:"-"`
	Server      Server
	Query       Query
	Connections []Connection
	Charts      []Chart

	baseDir         string
	connectionIndex map[string]Connection
	chartIndex      map[string]Chart
}

// GetConnection retrieves a database connection by its ID.
func (c Config) GetConnection(id string) (Connection, bool) {
	v, ok := c.connectionIndex[id]

	return v, ok
}

// GetChart retrieves a chart configuration by its ID.
func (c Config) GetChart(id string) (Chart, bool) {
	v, ok := c.chartIndex[id]

	return v, ok
}

// ChartDefinitions returns the configured charts as [model.Chart] definitions, in configuration order.
func (c Config) ChartDefinitions() []model.Chart {
	charts := make([]model.Chart, 0, len(c.Charts))
	for _, chart := range c.Charts {
		charts = append(charts, chart.Definition())
	}

	return charts
}

// EncodeYAML serializes a [Config] to YAML into the provided writer.
//
// Runtime-only fields (Outputs) are excluded from the output.
func (c *Config) EncodeYAML(w io.Writer) error {
	var raw map[string]any

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Squash: true,
		Deep:   true,
		Result: &raw,
	})
	if err != nil {
		return fmt.Errorf("creating mapstructure decoder: %w", err)
	}

	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("decoding config to map: %w", err)
	}

	return yaml.NewEncoder(w).Encode(raw)
}

// Rendering holds chart rendering settings (theme, legend, orientation, screenshot).
type Rendering struct {
	Title       string
	Theme       string
	Legend      LegendPosition
	Orientation Orientation
	Screenshot  Screenshot
}

// Orientation controls the direction of bar charts.
type Orientation string

// Supported chart orientations.
const (
	OrientationVertical   Orientation = "vertical"
	OrientationHorizontal Orientation = "horizontal"
)

// Screenshot configures the headless Chrome screenshot used for PNG rendering.
type Screenshot struct {
	Height int64
	Width  int64
	Sleep  string
}

// SleepDuration parses the Sleep field as a [time.Duration].
func (s Screenshot) SleepDuration() time.Duration {
	d, err := time.ParseDuration(s.Sleep)
	if d == 0 || err != nil {
		return 0
	}

	return d
}

// LegendPosition controls where the chart legend is displayed.
type LegendPosition string

// Supported legend positions.
const (
	LegendPositionNone   LegendPosition = "none"
	LegendPositionBottom LegendPosition = "bottom"
	LegendPositionTop    LegendPosition = "top"
	LegendPositionLeft   LegendPosition = "left"
	LegendPositionRight  LegendPosition = "right"
)

// Output holds the resolved output file paths for HTML and PNG rendering.
type Output struct {
	HTMLFile string
	PngFile  string
	IsTemp   bool
}

// Server configures the HTTP server.
type Server struct {
	Addr string
}

// Query configures how chart queries are run.
//
// When URL is set, queries are sent to a remote query service. Otherwise they run against
// the configured connections.
type Query struct {
	URL      string
	CacheTTL time.Duration
	Timeout  time.Duration
}

// Connection is a user-registered database that chart queries run against.
type Connection struct {
	ID     string
	Driver Driver
	DSN    string
	Seeds  []Seed
}

// Seed is a file loaded into a table of a database connection when the connection is first opened.
type Seed struct {
	File   string
	Table  string
	Format SeedFormat
	Sheet  string // for xlsx files: defaults to the first sheet
}

// Chart is a configured chart definition.
type Chart struct {
	ID         string
	Title      string
	Type       model.ChartType
	Query      string
	Connection string
	DateRange  DateRange

	dateRange *model.DateRange
}

// Definition returns the chart as a [model.Chart].
func (c Chart) Definition() model.Chart {
	return model.Chart{
		ID:         c.ID,
		Title:      c.Title,
		Type:       c.Type,
		Query:      c.Query,
		Connection: c.Connection,
		DateRange:  c.dateRange,
	}
}

// DateRange is a date filter with "YYYY-MM-DD" bounds. Either bound may be left empty.
type DateRange struct {
	Start string
	End   string
}

// Load a configuration file from the local file system.
//
// Relative seed files are resolved against the directory of the configuration file.
func Load(file string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, fmt.Errorf("loading default config: %w", err)
	}

	dir := filepath.Dir(file)
	fsys := os.DirFS(dir)
	pth := filepath.Join(".", filepath.Base(file))
	cfg.baseDir = dir

	return load(fsys, pth, cfg)
}

// LoadDefaults loads the default configuration from the embedded default_config.yaml.
func LoadDefaults() (*Config, error) {
	return loadDefaults()
}

// loadDefaults loads the default configuration from embedded FS.
func loadDefaults() (*Config, error) {
	return load(efs, "default_config.yaml", &Config{})
}

func load(fsys fs.FS, file string, cfg *Config) (*Config, error) {
	content, err := fs.ReadFile(fsys, file)
	if err != nil {
		return nil, err
	}

	var raw any
	err = yaml.Unmarshal(content, &raw)
	if err != nil {
		return nil, err
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			timeToDateHook(),
		),
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("creating mapstructure decoder: %w", err)
	}

	if err = dec.Decode(raw); err != nil {
		return nil, err
	}

	// build indices and validate unique IDs
	cfg.connectionIndex = make(map[string]Connection, len(cfg.Connections))
	cfg.chartIndex = make(map[string]Chart, len(cfg.Charts))

	if err = cfg.validateConnections(); err != nil {
		return nil, err
	}

	if err = cfg.validateCharts(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// timeToDateHook turns YAML timestamps back into "YYYY-MM-DD" strings.
func timeToDateHook() mapstructure.DecodeHookFuncType {
	return func(_ reflect.Type, to reflect.Type, data any) (any, error) {
		if to.Kind() != reflect.String {
			return data, nil
		}

		if t, ok := data.(time.Time); ok {
			return model.FormatDate(t), nil
		}

		return data, nil
	}
}

func (c *Config) validateConnections() error {
	for i, v := range c.Connections {
		if v.ID == "" {
			return fmt.Errorf("%w: connections: empty ID found: connections[%d]", ErrInvalidConfig, i)
		}
		if _, ok := c.connectionIndex[v.ID]; ok {
			return fmt.Errorf("%w: connections: duplicate ID key found: %s", ErrInvalidConfig, v.ID)
		}
		if v.Driver == "" {
			v.Driver = DriverSQLite
		}
		if !v.Driver.IsValid() {
			return fmt.Errorf("%w: connections: unsupported driver: connections[%d]=%v (should be one of %v)", ErrInvalidConfig, i, v.Driver, AllDrivers())
		}
		if v.DSN == "" {
			if v.Driver != DriverSQLite {
				return fmt.Errorf("%w: connections: empty DSN for connection %s", ErrInvalidConfig, v.ID)
			}

			v.DSN = ":memory:"
		}

		for j, seed := range v.Seeds {
			seed, err := c.validateSeed(seed)
			if err != nil {
				return fmt.Errorf("%w: connections.%s.seeds[%d]: %w", ErrInvalidConfig, v.ID, j, err)
			}

			v.Seeds[j] = seed
		}

		c.Connections[i] = v
		c.connectionIndex[v.ID] = v
	}

	return nil
}

func (c *Config) validateSeed(seed Seed) (Seed, error) {
	if seed.File == "" {
		return seed, errors.New("empty file")
	}

	if !filepath.IsAbs(seed.File) && c.baseDir != "" {
		seed.File = filepath.Join(c.baseDir, seed.File)
	}

	ext := strings.ToLower(filepath.Ext(seed.File))
	if seed.Format == "" {
		seed.Format = inferSeedFormat(ext)
	}
	if !seed.Format.IsValid() {
		return seed, fmt.Errorf("unsupported format %q for file %s", seed.Format, seed.File)
	}

	if seed.Table == "" {
		seed.Table = tableName(strings.TrimSuffix(filepath.Base(seed.File), filepath.Ext(seed.File)))
	}

	return seed, nil
}

func (c *Config) validateCharts() error {
	for i, v := range c.Charts {
		v, err := c.validateChart(v, i)
		if err != nil {
			return err
		}

		c.Charts[i] = v
		c.chartIndex[v.ID] = v
	}

	return nil
}

func (c *Config) validateChart(v Chart, i int) (vv Chart, err error) {
	if v.ID == "" {
		return vv, fmt.Errorf("%w: charts: empty ID found: charts[%d]", ErrInvalidConfig, i)
	}

	if _, ok := c.chartIndex[v.ID]; ok {
		return vv, fmt.Errorf("%w: charts: duplicate ID key found: %s", ErrInvalidConfig, v.ID)
	}

	if v.Title == "" {
		v.Title = titleize(v.ID)
	}

	if v.Type == "" {
		v.Type = model.ChartTypeBar
	}

	if !v.Type.IsValid() {
		return vv, fmt.Errorf("%w: chart: unsupported type: charts.%s.type=%v (should be one of %v)", ErrInvalidConfig, v.ID, v.Type, model.AllChartTypes())
	}

	if v.Connection != "" {
		if _, ok := c.connectionIndex[v.Connection]; !ok {
			return vv, fmt.Errorf("%w: chart: connection ID not found charts.%s.connection=%s", ErrInvalidConfig, v.ID, v.Connection)
		}
	}

	v.dateRange, err = parseDateRange(v.DateRange)
	if err != nil {
		return vv, fmt.Errorf("%w: chart: charts.%s.dateRange: %w", ErrInvalidConfig, v.ID, err)
	}

	return v, nil
}

func parseDateRange(r DateRange) (*model.DateRange, error) {
	if r.Start == "" && r.End == "" {
		return nil, nil
	}

	var dr model.DateRange

	if r.Start != "" {
		start, err := model.ParseDate(r.Start)
		if err != nil {
			return nil, fmt.Errorf("start: %w", err)
		}
		dr.Start = &start
	}

	if r.End != "" {
		end, err := model.ParseDate(r.End)
		if err != nil {
			return nil, fmt.Errorf("end: %w", err)
		}
		dr.End = &end
	}

	if dr.IsComplete() && dr.End.Before(*dr.Start) {
		return nil, fmt.Errorf("end %s is before start %s", r.End, r.Start)
	}

	return &dr, nil
}

type str interface {
	~string
}

func titleize[T str](in T) string {
	caser := cases.Title(language.English, cases.NoLower) // the case is stateful: cannot declare it globally

	return caser.String(strings.Map(func(r rune) rune {
		switch r {
		case '_', '-':
			return ' '
		default:
			return r
		}
	}, string(in),
	))
}

// tableName converts a file name to a SQL-friendly table name.
func tableName(name string) string {
	return strings.ToLower(strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name))
}
