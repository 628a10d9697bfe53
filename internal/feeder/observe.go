// Package feeder drives a remote sketch through its HTTP API: it waits
// for the bicycle to settle, then submits the next idea.
package feeder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/talgya/mindbike/internal/sketch"
)

// Status mirrors GET /api/v1/status.
type Status struct {
	Name          string  `json:"name"`
	Session       string  `json:"session"`
	Phase         string  `json:"phase"`
	Prompt        string  `json:"prompt"`
	Frame         uint64  `json:"frame"`
	InputLocked   bool    `json:"input_locked"`
	InFlight      string  `json:"in_flight"`
	Ideas         int     `json:"ideas"`
	TotalDistance float64 `json:"total_distance"`
	Particles     int     `json:"particles"`
	Speed         float64 `json:"speed"`
	Running       bool    `json:"running"`
	Elapsed       string  `json:"elapsed"`
}

// Observer fetches sketch state from the API.
type Observer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	return &Observer{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Status fetches the current status.
func (o *Observer) Status(ctx context.Context) (Status, error) {
	var st Status
	if err := o.fetchJSON(ctx, "/api/v1/status", &st); err != nil {
		return Status{}, fmt.Errorf("fetch status: %w", err)
	}
	return st, nil
}

// Trajectory fetches the committed ideas.
func (o *Observer) Trajectory(ctx context.Context) ([]sketch.IdeaRecord, error) {
	var out []sketch.IdeaRecord
	if err := o.fetchJSON(ctx, "/api/v1/trajectory", &out); err != nil {
		return nil, fmt.Errorf("fetch trajectory: %w", err)
	}
	return out, nil
}

// fetchJSON GETs a path and decodes the JSON response into target.
func (o *Observer) fetchJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
