package compliance

import (
	"fmt"
	"iter"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/enercomp/enercomp/internal/agent/state"
)

// NodeName is the agent name of the compliance stage in the workflow.
const NodeName = "compliance_report"

// Node wraps the Reporter as a workflow agent. It consumes the data-analysis
// report from session state and writes the structured compliance report back
// as a state delta. Missing inputs or a model failure are recorded in the
// error state key; the run completes degraded either way.
func (r *Reporter) Node() (agent.Agent, error) {
	return agent.New(agent.Config{
		Name:        NodeName,
		Description: "Generates the structured ANEEL compliance report from the data analysis.",
		Run:         r.run,
	})
}

func (r *Reporter) run(ctx agent.InvocationContext) iter.Seq2[*session.Event, error] {
	return func(yield func(*session.Event, error) bool) {
		st := state.FromGetter(ctx.Session().State())

		event := session.NewEvent(ctx.InvocationID())
		event.Author = NodeName

		if err := st.ValidateForCompliance(); err != nil {
			r.logger.Warn("compliance report skipped: %v", err)
			event.Actions.StateDelta = map[string]any{
				state.KeyError: fmt.Sprintf("compliance report skipped: %v", err),
			}
			yield(event, nil)
			return
		}

		rep, err := r.Generate(ctx, Input{
			FileName:                st.FileName,
			PowerQualityDataSummary: st.DataAnalysisReport,
			LanguageCode:            st.LanguageCode,
		})
		if err != nil {
			r.logger.ErrorWithErr("compliance report generation failed", err)
			event.Actions.StateDelta = map[string]any{
				state.KeyError: fmt.Sprintf("compliance report failed: %v", err),
			}
			yield(event, nil)
			return
		}

		event.Content = &genai.Content{
			Role:  "model",
			Parts: []*genai.Part{{Text: rep.ReportMetadata.Title}},
		}
		event.Actions.StateDelta = map[string]any{
			state.KeyComplianceReport: rep,
		}
		yield(event, nil)
	}
}
