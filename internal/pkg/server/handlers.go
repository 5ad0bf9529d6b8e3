package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fredbi/chartviz/internal/pkg/chart"
	"github.com/fredbi/chartviz/internal/pkg/model"
	"github.com/fredbi/chartviz/internal/pkg/organizer"
	"github.com/fredbi/chartviz/internal/pkg/query"
	"github.com/fredbi/chartviz/internal/pkg/shape"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// chartData is the renderer-ready data of a chart.
type chartData struct {
	ID       string                 `json:"id"`
	Type     model.ChartType        `json:"type"`
	State    model.PanelState       `json:"state"`
	Message  string                 `json:"message,omitempty"`
	Metadata *model.Metadata        `json:"metadata,omitempty"`
	Shape    *shape.Descriptor      `json:"shape,omitempty"`
	Config   *model.ChartDataConfig `json:"config,omitempty"`
}

// postQuery runs a query for a remote client.
func (s *Server) postQuery(c echo.Context) error {
	var req query.Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query request").SetInternal(err)
	}

	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	resp, err := s.fetcher.FetchChartRows(c.Request().Context(), req)
	if err != nil {
		return c.JSON(http.StatusBadGateway, query.Failed(err.Error()))
	}

	return c.JSON(http.StatusOK, resp)
}

// listCharts returns the panels of all charts, triggering the fetch of charts never fetched.
func (s *Server) listCharts(c echo.Context) error {
	charts := s.charts.list()
	for _, ch := range charts {
		s.controller.EnsureFetched(c.Request().Context(), ch)
	}

	dashboard, err := s.organizer.Organize(s.cfg.Name, charts, s.controller)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dashboard.Panels)
}

func (s *Server) createChart(c echo.Context) error {
	var ch model.Chart
	if err := c.Bind(&ch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid chart definition").SetInternal(err)
	}

	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}

	if err := validateChart(&ch); err != nil {
		return err
	}

	if err := s.charts.add(ch); err != nil {
		return echo.NewHTTPError(http.StatusConflict, fmt.Sprintf("chart %q already exists", ch.ID)).SetInternal(err)
	}

	s.controller.EnsureFetched(c.Request().Context(), ch)

	return c.JSON(http.StatusCreated, s.panel(ch))
}

func (s *Server) getChart(c echo.Context) error {
	ch, err := s.lookup(c)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ch)
}

// updateChart replaces a chart definition. The chart is fetched again if its fetch parameters changed.
func (s *Server) updateChart(c echo.Context) error {
	current, err := s.lookup(c)
	if err != nil {
		return err
	}

	var ch model.Chart
	if err := c.Bind(&ch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid chart definition").SetInternal(err)
	}
	ch.ID = current.ID

	if err := validateChart(&ch); err != nil {
		return err
	}

	if err := s.charts.update(ch); err != nil {
		return notFound(ch.ID, err)
	}

	s.controller.Sync(c.Request().Context(), ch)

	return c.JSON(http.StatusOK, s.panel(ch))
}

// deleteChart removes a chart definition and forgets its data.
func (s *Server) deleteChart(c echo.Context) error {
	id := c.Param("id")
	if err := s.charts.remove(id); err != nil {
		return notFound(id, err)
	}

	s.controller.Forget(id)

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) getStatus(c echo.Context) error {
	ch, err := s.lookup(c)
	if err != nil {
		return err
	}

	status, _ := s.controller.Status(ch.ID)

	return c.JSON(http.StatusOK, status)
}

// getData returns the data of a chart, reshaped for its current type.
func (s *Server) getData(c echo.Context) error {
	ch, err := s.lookup(c)
	if err != nil {
		return err
	}

	s.controller.EnsureFetched(c.Request().Context(), ch)
	status, _ := s.controller.Status(ch.ID)
	panel := organizer.Panel(ch, status)

	data := chartData{
		ID:       ch.ID,
		Type:     ch.Type,
		State:    panel.State,
		Message:  panel.Message,
		Metadata: panel.Metadata,
		Config:   panel.Config,
	}

	if len(status.Data) > 0 {
		descriptor := shape.Analyze(status.Data)
		data.Shape = &descriptor
	}

	return c.JSON(http.StatusOK, data)
}

// refetch fetches a chart again, optionally for a given date range.
func (s *Server) refetch(c echo.Context) error {
	ch, err := s.lookup(c)
	if err != nil {
		return err
	}

	var override *model.DateRange
	if c.Request().ContentLength != 0 {
		var r model.DateRange
		if err := c.Bind(&r); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date range").SetInternal(err)
		}
		override = &r
	}

	s.controller.Refetch(c.Request().Context(), ch, override)

	return c.JSON(http.StatusAccepted, s.panel(ch))
}

// setDateRange tracks a date range for a chart and fetches it again.
func (s *Server) setDateRange(c echo.Context) error {
	ch, err := s.lookup(c)
	if err != nil {
		return err
	}

	var r model.DateRange
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date range").SetInternal(err)
	}

	if r.IsComplete() && r.End.Before(*r.Start) {
		return echo.NewHTTPError(http.StatusBadRequest, "end date is before start date")
	}

	s.controller.SetDateRange(c.Request().Context(), ch, &r)

	return c.JSON(http.StatusAccepted, s.panel(ch))
}

func (s *Server) clearDateRange(c echo.Context) error {
	ch, err := s.lookup(c)
	if err != nil {
		return err
	}

	s.controller.SetDateRange(c.Request().Context(), ch, nil)

	return c.JSON(http.StatusAccepted, s.panel(ch))
}

// getPinned resolves a numeric pin key to the charts it designates.
func (s *Server) getPinned(c echo.Context) error {
	key, err := strconv.ParseFloat(c.Param("key"), 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid pin key").SetInternal(err)
	}

	pinned := organizer.Pinned(s.charts.list(), key)
	if len(pinned) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "no chart pinned with this key")
	}

	return c.JSON(http.StatusOK, pinned)
}

// getDashboard renders the dashboard as an HTML page.
//
// Charts never fetched are fetched first. With "?wait=true", the page waits for all fetches to complete.
func (s *Server) getDashboard(c echo.Context) error {
	charts := s.charts.list()
	for _, ch := range charts {
		s.controller.EnsureFetched(c.Request().Context(), ch)
	}

	if wait, _ := strconv.ParseBool(c.QueryParam("wait")); wait {
		s.controller.Wait()
	}

	dashboard, err := s.organizer.Organize(s.cfg.Name, charts, s.controller)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := chart.New(s.cfg, dashboard).BuildPage().Render(&buf); err != nil {
		return fmt.Errorf("rendering dashboard: %w", err)
	}

	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func (s *Server) lookup(c echo.Context) (model.Chart, error) {
	id := c.Param("id")
	ch, err := s.charts.get(id)
	if err != nil {
		return ch, notFound(id, err)
	}

	return ch, nil
}

func (s *Server) panel(ch model.Chart) model.Panel {
	status, _ := s.controller.Status(ch.ID)

	return organizer.Panel(ch, status)
}

func validateChart(ch *model.Chart) error {
	if ch.Type == "" {
		ch.Type = model.ChartTypeBar
	}

	if !ch.Type.IsValid() {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unsupported chart type %q (should be one of %v)", ch.Type, model.AllChartTypes()))
	}

	if ch.DateRange.IsComplete() && ch.DateRange.End.Before(*ch.DateRange.Start) {
		return echo.NewHTTPError(http.StatusBadRequest, "end date is before start date")
	}

	return nil
}

func notFound(id string, err error) error {
	if errors.Is(err, ErrChartNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("chart %q not found", id)).SetInternal(err)
	}

	return err
}
