// Package analyzer is the boundary to the models that turn an idea into an
// intent label and an embedding vector. The sketch treats every
// implementation as an opaque service: one call per idea, no retries.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CandidateLabels are the intents an idea is classified into.
var CandidateLabels = []string{"constructive argument", "critical challenge", "question"}

// ErrNotReady is returned when the collaborator cannot serve requests yet.
var ErrNotReady = errors.New("analyzer not ready")

// Label is one ranked classification result.
type Label struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Analysis is the result for one idea.
type Analysis struct {
	Intent string    `json:"intent"`
	Labels []Label   `json:"labels,omitempty"` // ranked, best first
	Vector []float32 `json:"vector"`
}

// Analyzer classifies and embeds an idea.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (Analysis, error)
	Name() string
}

// Config selects and configures an Analyzer.
type Config struct {
	Provider string        `yaml:"provider"` // "local", "backend", or "ollama"
	URL      string        `yaml:"url"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
	PerMin   int           `yaml:"per_minute"` // client-side call limit; 0 = default
}

// New builds the analyzer named by cfg.Provider.
func New(cfg Config) (Analyzer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "local":
		return NewLocal(LocalDims), nil
	case "backend":
		return NewBackendClient(cfg.URL, cfg.Timeout, cfg.PerMin), nil
	case "ollama":
		return NewOllamaClient(cfg.URL, cfg.Model, cfg.Timeout), nil
	}
	return nil, fmt.Errorf("unknown analyzer provider %q", cfg.Provider)
}
