package model

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
	"gopkg.in/yaml.v3"
)

// Scenario defines a sequence of scripted mock LLM responses loaded from
// YAML. Used by tests and by `enercomp chat --model mock:<path>` for runs
// without API access.
type Scenario struct {
	// Name is the scenario identifier.
	Name string `yaml:"name"`

	// Description says what the scenario exercises.
	Description string `yaml:"description,omitempty"`

	// Steps are consumed in order, one per GenerateContent call.
	Steps []ScenarioStep `yaml:"steps"`
}

// ScenarioStep defines a single mock response.
type ScenarioStep struct {
	// Trigger is an optional substring that must be present in the request
	// text for the step to activate. Steps without a trigger always match.
	Trigger string `yaml:"trigger,omitempty"`

	// Text is the response text.
	Text string `yaml:"text,omitempty"`

	// Error, when set, makes the step fail with this message instead of
	// responding. Used to exercise degraded pipeline paths.
	Error string `yaml:"error,omitempty"`

	// DelayMs delays the response to simulate model latency.
	DelayMs int `yaml:"delay_ms,omitempty"`
}

// Validate checks scenario consistency.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario must have a name")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %q has no steps", s.Name)
	}
	for i, step := range s.Steps {
		if step.Text == "" && step.Error == "" {
			return fmt.Errorf("scenario %q step %d has neither text nor error", s.Name, i)
		}
	}
	return nil
}

// LoadScenario loads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}

	data, err := os.ReadFile(path) // #nosec G304 -- scenario path is operator-provided
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %s: %w", path, err)
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// MockLLM implements model.LLM with scripted responses, so the full pipeline
// can run without real API calls.
type MockLLM struct {
	scenario *Scenario

	mu       sync.Mutex
	next     int
	requests []string
}

// NewMock creates a MockLLM from a scenario file path.
func NewMock(scenarioPath string) (*MockLLM, error) {
	scenario, err := LoadScenario(scenarioPath)
	if err != nil {
		return nil, err
	}
	return NewMockFromScenario(scenario), nil
}

// NewMockFromScenario creates a MockLLM from an already-built scenario.
func NewMockFromScenario(scenario *Scenario) *MockLLM {
	return &MockLLM{scenario: scenario}
}

// Name returns the model identifier.
func (m *MockLLM) Name() string {
	return fmt.Sprintf("mock:%s", m.scenario.Name)
}

// GenerateContent implements model.LLM.
func (m *MockLLM) GenerateContent(ctx context.Context, req *model.LLMRequest, _ bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		requestText := extractRequestText(req)

		m.mu.Lock()
		m.requests = append(m.requests, requestText)
		step := m.nextStep(requestText)
		m.mu.Unlock()

		if step == nil {
			yield(textResponse("[mock scenario completed - no more steps]"), nil)
			return
		}

		if step.DelayMs > 0 {
			select {
			case <-ctx.Done():
				yield(nil, ctx.Err())
				return
			case <-time.After(time.Duration(step.DelayMs) * time.Millisecond):
			}
		}

		if step.Error != "" {
			yield(nil, fmt.Errorf("%s", step.Error))
			return
		}
		yield(textResponse(step.Text), nil)
	}
}

// nextStep returns the next matching step and advances past it. Steps with a
// trigger are skipped until the trigger text appears in the request.
// Caller holds m.mu.
func (m *MockLLM) nextStep(requestText string) *ScenarioStep {
	for i := m.next; i < len(m.scenario.Steps); i++ {
		step := &m.scenario.Steps[i]
		if step.Trigger == "" || strings.Contains(requestText, step.Trigger) {
			m.next = i + 1
			return step
		}
	}
	return nil
}

// Requests returns the request texts seen so far, for assertions.
func (m *MockLLM) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.requests...)
}

// Reset rewinds the scenario for a new conversation.
func (m *MockLLM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next = 0
	m.requests = nil
}

func textResponse(text string) *model.LLMResponse {
	return &model.LLMResponse{
		Content: &genai.Content{
			Parts: []*genai.Part{{Text: text}},
			Role:  "model",
		},
		FinishReason: genai.FinishReasonStop,
		TurnComplete: true,
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount: 100,
			// #nosec G115 -- mock estimate, bounded
			CandidatesTokenCount: int32(len(text) / 4),
			TotalTokenCount:      int32(100 + len(text)/4), // #nosec G115 -- bounded
		},
	}
}

// extractRequestText flattens the request contents into one string, used for
// trigger matching and request logging.
func extractRequestText(req *model.LLMRequest) string {
	if req == nil {
		return ""
	}
	var parts []string
	if req.Config != nil && req.Config.SystemInstruction != nil {
		for _, p := range req.Config.SystemInstruction.Parts {
			if p != nil && p.Text != "" {
				parts = append(parts, p.Text)
			}
		}
	}
	for _, content := range req.Contents {
		if content == nil {
			continue
		}
		for _, p := range content.Parts {
			if p != nil && p.Text != "" {
				parts = append(parts, p.Text)
			}
		}
	}
	return strings.Join(parts, "\n")
}

var _ model.LLM = (*MockLLM)(nil)
