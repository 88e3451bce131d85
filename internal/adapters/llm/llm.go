// Package llm adapts hosted language models to domain.Generator.
package llm

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cofind/internal/adapters/observability"
	"cofind/internal/domain"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"

	defaultAnthropicModel = "claude-sonnet-4-5-20250929"
	defaultOpenAIModel    = "gpt-4o-mini"
)

type Config struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// New builds the generator for cfg.Provider. Generators never retry: a
// failed completion is reported to the caller as is.
func New(cfg Config) (domain.Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("llm: API key is required for provider %q", cfg.Provider)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderAnthropic, "":
		return NewAnthropic(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case ProviderOpenAI:
		return NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

var errEmptyCompletion = errors.New("empty completion")

// wrap tags a provider error with its category so callers can errors.Is it.
func wrap(provider string, kind, err error) error {
	return fmt.Errorf("%w: %s: %v", kind, provider, err)
}

func observe(service string, status int, start time.Time) {
	observability.ObserveExternal(service, "completion", status, time.Since(start))
}
