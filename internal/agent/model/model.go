// Package model provides LLM adapters for the agent pipeline. Each adapter
// implements the ADK model.LLM interface and injects the configured
// generation temperature into every request.
package model

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/adk/model"

	"github.com/enercomp/enercomp/internal/config"
)

// New creates the LLM for an agent based on its configuration.
//
// Provider selection:
//   - "gemini" (or empty): Gemini via the ADK model registry
//   - "anthropic": Anthropic via the ADK model registry
//   - "mock": scripted mock, model names a scenario file ("mock:<path>")
func New(ctx context.Context, cfg config.AgentConfig) (model.LLM, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = config.ProviderGemini
	}
	// "mock:<path>" model names force the mock provider regardless of config.
	if strings.HasPrefix(cfg.Model, "mock:") {
		provider = config.ProviderMock
	}

	switch provider {
	case config.ProviderGemini:
		return NewGemini(ctx, cfg)
	case config.ProviderAnthropic:
		return NewAnthropic(ctx, cfg)
	case config.ProviderMock:
		path := strings.TrimPrefix(cfg.Model, "mock:")
		if path == "" || path == "mock" {
			return nil, fmt.Errorf("mock provider requires a scenario path, got model %q", cfg.Model)
		}
		return NewMock(path)
	default:
		return nil, fmt.Errorf("unknown model provider %q", provider)
	}
}
