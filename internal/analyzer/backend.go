package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const defaultBackendURL = "http://localhost:5001"

// BackendClient calls the analysis service's POST /analyze endpoint, which
// runs zero-shot intent classification and sentence embedding server-side.
type BackendClient struct {
	baseURL    string
	httpClient *http.Client

	// Rate limiting: max calls per minute.
	mu        sync.Mutex
	callCount int
	resetAt   time.Time
	maxPerMin int
}

// NewBackendClient creates a client for the analysis service at baseURL.
func NewBackendClient(baseURL string, timeout time.Duration, perMin int) *BackendClient {
	if baseURL == "" {
		baseURL = defaultBackendURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if perMin <= 0 {
		perMin = 60
	}
	return &BackendClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		maxPerMin:  perMin,
	}
}

// Name implements Analyzer.
func (c *BackendClient) Name() string { return "backend:" + c.baseURL }

type analyzeRequest struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	Intent string    `json:"intent"`
	Vector []float32 `json:"vector"`
	Error  string    `json:"error"`
}

// Analyze implements Analyzer.
func (c *BackendClient) Analyze(ctx context.Context, text string) (Analysis, error) {
	if err := c.take(); err != nil {
		return Analysis{}, err
	}

	body, err := json.Marshal(analyzeRequest{Text: text})
	if err != nil {
		return Analysis{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return Analysis{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Analysis{}, fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Analysis{}, fmt.Errorf("read response: %w", err)
	}

	var out analyzeResponse
	if resp.StatusCode != http.StatusOK {
		if json.Unmarshal(respBody, &out) == nil && out.Error != "" {
			return Analysis{}, fmt.Errorf("analyze error %d: %s", resp.StatusCode, out.Error)
		}
		return Analysis{}, fmt.Errorf("analyze error %d: %s", resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return Analysis{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(out.Vector) == 0 {
		return Analysis{}, fmt.Errorf("empty embedding")
	}

	slog.Debug("analysis", "intent", out.Intent, "dims", len(out.Vector))

	return Analysis{
		Intent: out.Intent,
		Labels: []Label{{Name: out.Intent, Score: 1}},
		Vector: out.Vector,
	}, nil
}

func (c *BackendClient) take() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.After(c.resetAt) {
		c.callCount = 0
		c.resetAt = now.Add(time.Minute)
	}
	if c.callCount >= c.maxPerMin {
		return fmt.Errorf("rate limit exceeded (%d calls/min)", c.maxPerMin)
	}
	c.callCount++
	return nil
}
