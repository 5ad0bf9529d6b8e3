// Package image takes PNG screenshots of rendered dashboards.
package image //nolint:revive // it's okay for an internal package to use this name

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/device"
)

// Renderer takes a screenshot of an HTML dashboard page with headless Chrome and writes it as PNG.
type Renderer struct {
	options

	l *slog.Logger
}

// New builds an image [Renderer].
func New(opts ...Option) *Renderer {
	return &Renderer{
		options: optionsWithDefaults(opts),
		l:       slog.Default().With(slog.String("module", "image")),
	}
}

// Render a PNG screenshot of the HTML page read from source.
func (r *Renderer) Render(ctx context.Context, dest io.Writer, source io.Reader) error {
	content, err := io.ReadAll(source)
	if err != nil {
		return fmt.Errorf("read content: %w", err)
	}

	screenshot, err := r.screenshot(ctx, content)
	if err != nil {
		return fmt.Errorf("taking screenshot: %w", err)
	}

	if _, err = dest.Write(screenshot); err != nil {
		return fmt.Errorf("writing screenshot: %w", err)
	}

	r.l.Info("screenshot rendered",
		slog.Int64("width", r.Width),
		slog.Int64("height", r.Height),
		slog.Int("bytes", len(screenshot)),
	)

	return nil
}

func (r *Renderer) screenshot(parent context.Context, content []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(parent, r.Timeout)
	defer cancel()

	ctx, cancelBrowser := chromedp.NewContext(ctx)
	defer cancelBrowser()

	const qualityPNG = 100 // 100 to force PNG
	var screenshot []byte

	// the page is inlined as base64: a raw data URL breaks on '#' and '%'
	err := chromedp.Run(ctx,
		chromedp.Emulate(device.Info{
			Height:    r.Height,
			Width:     r.Width,
			Landscape: true,
		}),
		chromedp.Navigate("data:text/html;base64,"+base64.StdEncoding.EncodeToString(content)),
		chromedp.Sleep(r.SleepDuration), // echarts animates the charts on load
		chromedp.FullScreenshot(&screenshot, qualityPNG),
	)
	if err != nil {
		return nil, err
	}

	return screenshot, nil
}
