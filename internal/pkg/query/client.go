package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

var _ Fetcher = &Client{}

// Client sends chart queries to a remote query service.
type Client struct {
	options

	url string
	l   *slog.Logger
}

// NewClient builds a [Client] for the query service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	return &Client{
		options: optionsWithDefaults(opts),
		url:     strings.TrimSuffix(baseURL, "/") + "/api/query",
		l:       slog.Default().With(slog.String("module", "query-client")),
	}
}

// FetchChartRows posts a [Request] to the query service.
//
// Errors are returned only when no response could be decoded.
func (c *Client) FetchChartRows(ctx context.Context, req Request) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("query service: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var response Response
	if err := json.Unmarshal(content, &response); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("query service: %s", resp.Status)
		}

		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if !response.Success && response.Error == nil {
		return nil, fmt.Errorf("query service: %s", resp.Status)
	}

	c.l.Debug("query service responded", slog.String("chart", req.ChartID), slog.Bool("success", response.Success))

	return &response, nil
}
