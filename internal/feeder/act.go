package feeder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrBusy is returned when the sketch is still busy with the previous idea.
var ErrBusy = errors.New("sketch input locked")

// ErrRateLimited is returned when the server refuses more ideas for now.
var ErrRateLimited = errors.New("idea rate limit exceeded")

// Actor submits ideas via the API.
type Actor struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewActor creates an Actor targeting the given API base URL.
func NewActor(baseURL string) *Actor {
	return &Actor{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Submit sends one idea to POST /api/v1/idea.
func (a *Actor) Submit(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal idea: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/api/v1/idea", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST idea: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusAccepted, http.StatusOK:
		return nil
	case http.StatusConflict:
		return ErrBusy
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w (retry after %ss)", ErrRateLimited, resp.Header.Get("Retry-After"))
	}
	return fmt.Errorf("idea rejected (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
}
