// Package cmd owns the implementation details of the CLI command.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"

	"github.com/fredbi/chartviz/internal/pkg/config"
	"github.com/fredbi/chartviz/internal/pkg/query"
	"github.com/spf13/cobra"
)

// Command holds command line flags and executes the chartviz commands.
//
// It knows how to load a configuration file in a [config.Config] and manage CLI flag configuration overrides.
//
// The main purpose of this package is to deal with io's: opening and closing files, wiring the
// query service and the HTTP server.
type Command struct {
	Config     string
	OutputFile string
	Png        bool
	Strict     bool
	QueryURL   string
	Addr       string
	Connection string
	FromDate   string
	ToDate     string
	L          *slog.Logger

	root *cobra.Command
	out  io.Writer
}

// NewCommand builds a CLI command with registered flags and an injected logger.
func NewCommand() *Command {
	// inject a structured logger
	cli := &Command{
		L:   slog.Default().With(slog.String("module", "main")),
		out: os.Stdout,
	}

	cli.root = cli.rootCommand()

	return cli
}

// Fatalf logs an error message then exits. The output is spewed on both stderr and the structured logger output.
func (c *Command) Fatalf(err error) {
	c.L.Error(err.Error())
	log.Fatalf("%v", err)
}

// Execute the CLI with extra arguments.
//
// If no argument is passed, command line arguments (i.e. [os.Args]) are used.
// The execution is interrupted by SIGINT or SIGTERM.
func (c *Command) Execute(args ...string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return c.ExecuteContext(ctx, args...)
}

// ExecuteContext executes the CLI with a context.
func (c *Command) ExecuteContext(ctx context.Context, args ...string) error {
	if args != nil { // passing explicit args allows for testing without altering [os.Args]
		c.root.SetArgs(args)
	}

	return c.root.ExecuteContext(ctx)
}

func (c *Command) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "chartviz",
		Short:         "Charts from SQL queries",
		Long:          "chartviz runs the SQL queries of configured charts, infers the shape of their results and renders them as charts.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&c.Config, "config", "c", "chartviz.yaml", "config file")
	root.PersistentFlags().StringVar(&c.QueryURL, "query-url", "", "URL of a remote query service (overrides the config)")

	render := &cobra.Command{
		Use:   "render [chart-id...]",
		Short: "Render charts as an HTML page, and optionally as a PNG image",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.render(cmd.Context(), args)
		},
	}
	render.Flags().StringVarP(&c.OutputFile, "output", "o", "-", "file output or - for standard output")
	render.Flags().BoolVar(&c.Png, "png", false, "enable PNG screenshot output")
	render.Flags().BoolVar(&c.Strict, "strict", false, "fail when the data of some chart cannot be fetched")

	report := &cobra.Command{
		Use:   "report [chart-id...]",
		Short: "Report the inferred shape of chart data, no rendering",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.report(cmd.Context(), args)
		},
	}

	queryCmd := &cobra.Command{
		Use:   "query SQL",
		Short: "Run a query against a database connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.query(cmd.Context(), args[0])
		},
	}
	queryCmd.Flags().StringVar(&c.Connection, "connection", "", "database connection ID")
	queryCmd.Flags().StringVar(&c.FromDate, "from", "", "start date (YYYY-MM-DD) bound to :from")
	queryCmd.Flags().StringVar(&c.ToDate, "to", "", "end date (YYYY-MM-DD) bound to :to")
	_ = queryCmd.MarkFlagRequired("connection")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard and its HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context())
		},
	}
	serve.Flags().StringVar(&c.Addr, "addr", "", "listen address (overrides the config)")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			return cfg.EncodeYAML(c.out)
		},
	}

	root.AddCommand(render, report, queryCmd, serve, configCmd)

	return root
}

func (c *Command) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if c.QueryURL != "" {
		cfg.Query.URL = c.QueryURL
	}

	if c.Addr != "" {
		cfg.Server.Addr = c.Addr
	}

	return cfg, nil
}

func (c *Command) prepareConfig() (cfg *config.Config, cleanup func(), err error) {
	cfg, err = c.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	if err = c.setConfig(cfg); err != nil {
		return nil, nil, fmt.Errorf("preparing config: %w", err)
	}

	if cfg.Outputs.IsTemp {
		cleanup = func() {
			_ = os.Remove(cfg.Outputs.HTMLFile)
		}

		return cfg, cleanup, err
	}

	return cfg, func() {}, err
}

// apply CLI flags overrides for outputs to the YAML config.
func (c *Command) setConfig(cfg *config.Config) error {
	if c.OutputFile != "" && c.OutputFile != "-" {
		// an outfile is defined: infer the PNG file from the HTML file provided
		cfg.Outputs.HTMLFile = inferHTMLFile(c.OutputFile)
		if cfg.Outputs.PngFile == "" && c.Png {
			cfg.Outputs.PngFile = inferImageFile(cfg.Outputs.HTMLFile)
		}
	}

	switch {
	case cfg.Outputs.HTMLFile == "" && cfg.Outputs.PngFile == "":
		c.L.Info("output sent to standard output as HTML, no PNG image rendered")
		if c.Png {
			c.L.Info("set an output file to render a PNG image")
		}
		cfg.Outputs.HTMLFile = "-"
	case cfg.Outputs.HTMLFile == "" && cfg.Outputs.PngFile != "":
		c.L.Info("HTML generated as a temporary file to produce PNG")
		tmp, err := os.CreateTemp("", "chartviz.*.html")
		if err != nil {
			return err
		}
		cfg.Outputs.HTMLFile = tmp.Name()
		cfg.Outputs.IsTemp = true
		_ = tmp.Close()
	}

	return nil
}

// newFetcher builds a fetcher for chart data: a client of a remote query service when
// a URL is configured, a local query service otherwise.
func newFetcher(cfg *config.Config) (query.Fetcher, func(), error) {
	opts := []query.Option{
		query.WithCacheTTL(cfg.Query.CacheTTL),
		query.WithTimeout(cfg.Query.Timeout),
	}

	if cfg.Query.URL != "" {
		return query.NewClient(cfg.Query.URL, opts...), func() {}, nil
	}

	svc := query.NewService(cfg.Connections, opts...)

	return svc, func() { _ = svc.Close() }, nil
}

func (c *Command) getWriter(file, kind string) (wrt io.Writer, cleanup func(), err error) {
	if file == "-" {
		return c.out, func() {}, nil
	}

	f, err := os.Create(file)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s file for writing: %q: %w", kind, file, err)
	}

	cleanup = func() {
		_ = f.Close()
	}

	return f, cleanup, nil
}

func getReader(file, kind string) (rdr *os.File, cleanup func(), err error) {
	rdr, err = os.Open(file)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s file: %q: %w", kind, file, err)
	}

	cleanup = func() {
		_ = rdr.Close()
	}

	return rdr, cleanup, nil
}

func inferHTMLFile(base string) string {
	ext := path.Ext(base)
	image, _ := strings.CutSuffix(base, ext)

	return image + ".html"
}

func inferImageFile(base string) string {
	ext := path.Ext(base)
	image, _ := strings.CutSuffix(base, ext)

	return image + ".png"
}
