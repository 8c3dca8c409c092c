// Package llm provides completion providers for rule synthesis.
package llm

import (
	"fmt"
	"net/http"
	"time"

	"github.com/quantmind-br/webextract-go/internal/config"
	"github.com/quantmind-br/webextract-go/internal/domain"
)

const (
	defaultGoogleBaseURL = "https://generativelanguage.googleapis.com"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
)

// ProviderConfig holds the provider-independent settings.
type ProviderConfig struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// NewProviderFromConfig builds a provider from application config.
// A missing API key is not an error here: the adaptive strategy treats
// an absent provider as "skip", so the caller gets (nil, nil).
func NewProviderFromConfig(cfg *config.Config) (domain.LLMProvider, error) {
	if cfg.LLM.APIKey == "" {
		return nil, nil
	}
	return NewProvider(ProviderConfig{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.Adaptive.Model,
		Temperature: 0.1,
		Timeout:     cfg.Adaptive.Timeout,
	})
}

// NewProvider builds a provider for the configured backend.
func NewProvider(cfg ProviderConfig) (domain.LLMProvider, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	switch cfg.Provider {
	case "google", "":
		return NewGoogleProvider(cfg, httpClient)
	case "openai":
		return NewOpenAIProvider(cfg, httpClient)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrLLMUnavailable, cfg.Provider)
	}
}
