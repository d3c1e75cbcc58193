package model

import (
	"context"
	"fmt"
	"iter"

	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"

	"github.com/enercomp/enercomp/internal/config"
)

// GeminiLLM wraps the ADK Gemini model and applies the per-agent
// configuration (temperature) to every request. The agent framework builds
// the request config itself, so the only place to inject generation
// parameters is this adapter.
type GeminiLLM struct {
	inner       model.LLM
	temperature float64
}

// NewGemini creates a Gemini adapter for the given agent configuration.
// Credentials come from the environment (GOOGLE_API_KEY or ADC), the same
// way the underlying client resolves them.
func NewGemini(ctx context.Context, cfg config.AgentConfig) (*GeminiLLM, error) {
	name := cfg.Model
	if name == "" {
		name = config.DefaultModel
	}

	inner, err := gemini.NewModel(ctx, name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini model %q: %w", name, err)
	}

	return &GeminiLLM{inner: inner, temperature: cfg.Temperature}, nil
}

// Name returns the model identifier.
func (g *GeminiLLM) Name() string {
	return g.inner.Name()
}

// GenerateContent implements model.LLM. It sets the configured temperature
// when the request does not already carry one, then delegates.
func (g *GeminiLLM) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	applyTemperature(req, g.temperature)
	return g.inner.GenerateContent(ctx, req, stream)
}

func applyTemperature(req *model.LLMRequest, temperature float64) {
	if req == nil {
		return
	}
	if req.Config == nil {
		req.Config = &genai.GenerateContentConfig{}
	}
	if req.Config.Temperature == nil {
		req.Config.Temperature = genai.Ptr(float32(temperature))
	}
}

var _ model.LLM = (*GeminiLLM)(nil)
