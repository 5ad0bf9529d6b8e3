package chart

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/components"
)

// Page is the HTML rendition of a dashboard.
//
// Skipped lists the IDs of the charts that had nothing to draw.
type Page struct {
	Title   string
	Charts  []*Chart
	Skipped []string
}

// NewPage creates an empty page with the given title.
func NewPage(title string) *Page {
	return &Page{
		Title: title,
	}
}

// AddChart adds a chart to the page.
func (p *Page) AddChart(c *Chart) {
	p.Charts = append(p.Charts, c)
}

// Skip records a chart left out of the page.
func (p *Page) Skip(id string) {
	p.Skipped = append(p.Skipped, id)
}

// Render writes the page HTML to the given writer.
//
// A single chart is centered, several charts flow side by side.
func (p *Page) Render(w io.Writer) error {
	page := components.NewPage()
	page.SetPageTitle(p.Title)
	if len(p.Charts) > 1 {
		page.SetLayout(components.PageFlexLayout)
	} else {
		page.SetLayout(components.PageCenterLayout)
	}

	for _, c := range p.Charts {
		page.AddCharts(c.Build())
	}

	return page.Render(w)
}
