package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaClient embeds ideas with a local Ollama server. Ollama has no
// zero-shot classifier, so intent comes from ClassifyIntent.
type OllamaClient struct {
	endpoint string
	model    string
	client   *http.Client
}

// NewOllamaClient creates an Ollama-backed analyzer.
func NewOllamaClient(endpoint, model string, timeout time.Duration) *OllamaClient {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	if model == "" {
		model = "all-minilm"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OllamaClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

// Name implements Analyzer.
func (c *OllamaClient) Name() string { return "ollama:" + c.model }

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Analyze implements Analyzer.
func (c *OllamaClient) Analyze(ctx context.Context, text string) (Analysis, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: c.model, Prompt: text})
	if err != nil {
		return Analysis{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return Analysis{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Analysis{}, fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return Analysis{}, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(b))
	}

	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Analysis{}, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return Analysis{}, fmt.Errorf("empty embedding from %s", c.model)
	}

	labels := ClassifyIntent(text)
	return Analysis{
		Intent: labels[0].Name,
		Labels: labels,
		Vector: normalize(out.Embedding),
	}, nil
}
