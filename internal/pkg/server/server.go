// Package server exposes charts, their data and the query service over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fredbi/chartviz/internal/pkg/config"
	"github.com/fredbi/chartviz/internal/pkg/fetch"
	"github.com/fredbi/chartviz/internal/pkg/organizer"
	"github.com/fredbi/chartviz/internal/pkg/query"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Server is the dashboard HTTP API.
type Server struct {
	options

	cfg        *config.Config
	fetcher    query.Fetcher
	controller *fetch.Controller
	organizer  *organizer.Organizer
	charts     *registry
	e          *echo.Echo
	l          *slog.Logger
}

// New builds a [Server] serving the charts of the configuration, with data fetched from a [query.Fetcher].
func New(cfg *config.Config, fetcher query.Fetcher, opts ...Option) *Server {
	s := &Server{
		options:   optionsWithDefaults(opts),
		cfg:       cfg,
		fetcher:   fetcher,
		organizer: organizer.New(),
		charts:    newRegistry(cfg.ChartDefinitions()),
		l:         slog.Default().With(slog.String("module", "server")),
	}

	fetchOptions := append([]fetch.Option{
		fetch.WithOnChange(func(id string, status fetch.Status) {
			s.l.Debug("chart status changed", slog.String("chart", id), slog.String("state", string(status.State)))
		}),
	}, s.fetchOptions...)
	s.controller = fetch.New(fetcher, fetchOptions...)

	s.e = s.routes()

	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Controller returns the [fetch.Controller] tracking the data of served charts.
func (s *Server) Controller() *fetch.Controller {
	return s.controller
}

// Start serving on the configured address, until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.l.Info("server listening", slog.String("addr", s.cfg.Server.Addr))
		errc <- s.e.Start(s.cfg.Server.Addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
		s.l.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()

		return s.e.Shutdown(shutdownCtx)
	}
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				level = slog.LevelWarn
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}

			s.l.LogAttrs(c.Request().Context(), level, "request", attrs...)

			return nil
		},
	}))

	e.GET("/", s.getDashboard)

	api := e.Group("/api")
	api.POST("/query", s.postQuery)
	api.GET("/charts", s.listCharts)
	api.POST("/charts", s.createChart)
	api.GET("/charts/:id", s.getChart)
	api.PUT("/charts/:id", s.updateChart)
	api.DELETE("/charts/:id", s.deleteChart)
	api.GET("/charts/:id/status", s.getStatus)
	api.GET("/charts/:id/data", s.getData)
	api.POST("/charts/:id/refetch", s.refetch)
	api.PUT("/charts/:id/daterange", s.setDateRange)
	api.DELETE("/charts/:id/daterange", s.clearDateRange)
	api.GET("/pins/:key", s.getPinned)

	return e
}
