// Package runner executes the report workflow through the ADK runner. Each
// invocation gets its own in-memory ADK session service, so per-turn state
// (including the uploaded CSV) is released when the run completes; durable
// chat history lives in the session store, not here.
package runner

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/runner"
	adksession "google.golang.org/adk/session"

	"github.com/enercomp/enercomp/internal/agent/state"
	"github.com/enercomp/enercomp/internal/logging"
)

// AppName is the ADK application name.
const AppName = "enercomp"

// DefaultUserID is used when no user ID is specified.
const DefaultUserID = "default"

// Progress reports workflow activity during a run.
type Progress struct {
	// Agent is the node that produced the update.
	Agent string

	// Text is the node's textual output, possibly partial.
	Text string
}

// Runner drives the workflow agent for one chat turn at a time.
type Runner struct {
	workflowAgent agent.Agent
	logger        *logging.Logger
}

// New creates a Runner for the given workflow agent. The agent configuration
// is validated up front by constructing a throwaway ADK runner.
func New(workflowAgent agent.Agent) (*Runner, error) {
	if _, err := newADKRunner(workflowAgent, adksession.InMemoryService()); err != nil {
		return nil, err
	}
	return &Runner{
		workflowAgent: workflowAgent,
		logger:        logging.GetLogger("agent.runner"),
	}, nil
}

func newADKRunner(workflowAgent agent.Agent, service adksession.Service) (*runner.Runner, error) {
	adkRunner, err := runner.New(runner.Config{
		AppName:        AppName,
		Agent:          workflowAgent,
		SessionService: service,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}
	return adkRunner, nil
}

// Run executes one workflow invocation. The initial typed state seeds the
// ADK session, message becomes the user turn, and node outputs are surfaced
// through onProgress as they arrive. The returned state merges every state
// delta the workflow emitted. The ADK session service is scoped to this call
// and discarded with it, so repeated turns do not accumulate state.
func (r *Runner) Run(ctx context.Context, userID, sessionID, message string, initial *state.State, onProgress func(Progress)) (*state.State, error) {
	if userID == "" {
		userID = DefaultUserID
	}
	if initial == nil {
		initial = &state.State{}
	}

	sessionService := adksession.InMemoryService()
	adkRunner, err := newADKRunner(r.workflowAgent, sessionService)
	if err != nil {
		return nil, err
	}

	merged := initial.Delta()

	_, err = sessionService.Create(ctx, &adksession.CreateRequest{
		AppName:   AppName,
		UserID:    userID,
		SessionID: sessionID,
		State:     initial.Delta(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	userContent := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: message}},
	}
	runConfig := agent.RunConfig{
		StreamingMode: agent.StreamingModeNone,
	}

	for event, err := range adkRunner.Run(ctx, userID, sessionID, userContent, runConfig) {
		if err != nil {
			return nil, fmt.Errorf("workflow run failed: %w", err)
		}
		if event == nil {
			continue
		}

		if event.Content != nil && onProgress != nil {
			for _, part := range event.Content.Parts {
				if part != nil && part.Text != "" && !part.Thought {
					onProgress(Progress{Agent: event.Author, Text: part.Text})
				}
			}
		}

		for k, v := range event.Actions.StateDelta {
			merged[k] = v
		}
	}

	final, err := state.FromSessionState(merged)
	if err != nil {
		return nil, fmt.Errorf("workflow produced invalid state: %w", err)
	}
	return final, nil
}
