package model

// Dashboard is a page of charts, each in its own [Panel].
type Dashboard struct {
	Name   string
	Panels []Panel
}

// Ready returns the panels with data to draw.
func (d Dashboard) Ready() []Panel {
	panels := make([]Panel, 0, len(d.Panels))
	for _, panel := range d.Panels {
		if panel.State != PanelReady {
			continue
		}

		panels = append(panels, panel)
	}

	return panels
}

// Count the panels in a given state.
func (d Dashboard) Count(state PanelState) (n int) {
	for _, panel := range d.Panels {
		if panel.State == state {
			n++
		}
	}

	return n
}

// PanelState tells what a panel has to show.
//
// Loading, error and empty are mutually exclusive: an empty result is not an error.
type PanelState string

// Panel states.
const (
	PanelIdle    PanelState = "idle"
	PanelLoading PanelState = "loading"
	PanelError   PanelState = "error"
	PanelEmpty   PanelState = "empty"
	PanelReady   PanelState = "ready"
)

// Panel holds one chart definition and whatever is currently known about its data.
//
// Key is the numeric key derived from the chart ID, used to correlate the chart with pinned items.
type Panel struct {
	Chart    Chart            `json:"chart"`
	Key      float64          `json:"key"`
	State    PanelState       `json:"state"`
	Message  string           `json:"message,omitempty"`
	Metadata *Metadata        `json:"metadata,omitempty"`
	Config   *ChartDataConfig `json:"config,omitempty"`
}

// Title returns the chart title, or its ID when untitled.
func (p Panel) Title() string {
	if p.Chart.Title != "" {
		return p.Chart.Title
	}

	return p.Chart.ID
}
