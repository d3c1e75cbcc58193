package analyst

import (
	"fmt"
	"iter"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/enercomp/enercomp/internal/agent/state"
)

// NodeName is the agent name of the analyst stage in the workflow.
const NodeName = "data_analyst"

// Node wraps the Analyzer as a workflow agent. It reads the CSV and language
// from session state and writes the data-analysis report back as a state
// delta. A model failure is recorded in the error state key so the pipeline
// continues degraded instead of aborting the run.
func (a *Analyzer) Node() (agent.Agent, error) {
	return agent.New(agent.Config{
		Name:        NodeName,
		Description: "Summarizes power-quality CSV measurements into a technical data analysis.",
		Run:         a.run,
	})
}

func (a *Analyzer) run(ctx agent.InvocationContext) iter.Seq2[*session.Event, error] {
	return func(yield func(*session.Event, error) bool) {
		st := state.FromGetter(ctx.Session().State())

		event := session.NewEvent(ctx.InvocationID())
		event.Author = NodeName

		if err := st.ValidateForAnalysis(); err != nil {
			a.logger.Warn("analysis skipped: %v", err)
			event.Actions.StateDelta = map[string]any{
				state.KeyError: fmt.Sprintf("data analysis skipped: %v", err),
			}
			yield(event, nil)
			return
		}

		summary, err := a.AnalyzeCSV(ctx, st.PowerQualityDataCSV, st.LanguageCode)
		if err != nil {
			a.logger.ErrorWithErr("data analysis failed", err)
			event.Actions.StateDelta = map[string]any{
				state.KeyError: fmt.Sprintf("data analysis failed: %v", err),
			}
			yield(event, nil)
			return
		}

		event.Content = &genai.Content{
			Role:  "model",
			Parts: []*genai.Part{{Text: summary}},
		}
		event.Actions.StateDelta = map[string]any{
			state.KeyDataAnalysisReport: summary,
		}
		yield(event, nil)
	}
}
