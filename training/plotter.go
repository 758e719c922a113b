package training

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Plotter receives named scalar series indexed by epoch, grouped under a
// run-specific namespace. Emission is fire-and-forget: the training loop
// never blocks on, or fails because of, the plotting backend.
type Plotter interface {
	Plot(metric, split string, epoch int, value float64)
}

// NopPlotter discards all points.
type NopPlotter struct{}

// Plot implements Plotter.
func (NopPlotter) Plot(metric, split string, epoch int, value float64) {}

// ScalarPoint is the JSON payload posted to the plotting sidecar.
type ScalarPoint struct {
	Env       string    `json:"env"`
	Metric    string    `json:"metric"`
	Split     string    `json:"split"`
	Epoch     int       `json:"epoch"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// SidecarPlotter posts scalar points to a sidecar plotting service over
// HTTP, namespaced by the run name.
type SidecarPlotter struct {
	baseURL string
	env     string
	client  *http.Client
}

// NewSidecarPlotter creates a plotter client for the sidecar at baseURL,
// tagging every point with the run namespace env.
func NewSidecarPlotter(baseURL, env string) *SidecarPlotter {
	return &SidecarPlotter{
		baseURL: baseURL,
		env:     env,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// Plot sends one scalar point. Delivery failures are reported as console
// warnings and otherwise ignored.
func (p *SidecarPlotter) Plot(metric, split string, epoch int, value float64) {
	point := ScalarPoint{
		Env:       p.env,
		Metric:    metric,
		Split:     split,
		Epoch:     epoch,
		Value:     value,
		Timestamp: time.Now(),
	}

	payload, err := json.Marshal(point)
	if err != nil {
		fmt.Printf("Warning: failed to marshal plot point: %v\n", err)
		return
	}

	url := fmt.Sprintf("%s/api/plot", p.baseURL)
	resp, err := p.client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		fmt.Printf("Warning: failed to send plot point: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Warning: plotting service returned status %d\n", resp.StatusCode)
	}
}
