// Package llm talks to the language-model completion endpoints used to
// translate questions into SQL.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmptyCompletion is returned when the endpoint answers with no text.
var ErrEmptyCompletion = errors.New("empty completion")

// Request is a single completion call.
type Request struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Completer turns a prompt into raw model text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Provider names accepted by New.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config selects and configures a completion provider.
type Config struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// DefaultTimeout bounds a single completion call when Config.Timeout is unset.
const DefaultTimeout = 60 * time.Second

// New builds the Completer for cfg.Provider.
func New(cfg Config) (Completer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOllama:
		return NewOllama(cfg), nil
	case ProviderOpenAI:
		return NewOpenAI(cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s (available: [%s %s])", cfg.Provider, ProviderOllama, ProviderOpenAI)
	}
}

// withTimeout derives the per-call deadline.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}
