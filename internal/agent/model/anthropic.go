package model

import (
	"context"
	"fmt"
	"iter"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"google.golang.org/adk/model"
	"google.golang.org/adk/model/anthropic"

	"github.com/enercomp/enercomp/internal/config"
)

// AnthropicLLM wraps the ADK Anthropic model, applying the per-agent
// temperature the same way the Gemini adapter does. Selected with
// "provider: anthropic" in the agent config file.
type AnthropicLLM struct {
	inner       model.LLM
	temperature float64
}

// NewAnthropic creates an Anthropic adapter for the given agent
// configuration. The API key comes from ANTHROPIC_API_KEY.
func NewAnthropic(ctx context.Context, cfg config.AgentConfig) (*AnthropicLLM, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("anthropic provider requires an explicit model name")
	}

	inner, err := anthropic.NewModel(ctx, anthropicsdk.Model(cfg.Model), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create anthropic model %q: %w", cfg.Model, err)
	}

	return &AnthropicLLM{inner: inner, temperature: cfg.Temperature}, nil
}

// Name returns the model identifier.
func (a *AnthropicLLM) Name() string {
	return a.inner.Name()
}

// GenerateContent implements model.LLM.
func (a *AnthropicLLM) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	applyTemperature(req, a.temperature)
	return a.inner.GenerateContent(ctx, req, stream)
}

var _ model.LLM = (*AnthropicLLM)(nil)
