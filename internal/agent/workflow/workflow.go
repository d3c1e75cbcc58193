// Package workflow wires the data-analyst and compliance stages into the
// report pipeline: a static two-node sequence with an unconditional edge.
package workflow

import (
	"context"
	"fmt"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/workflowagents/sequentialagent"

	"github.com/enercomp/enercomp/internal/agent/analyst"
	"github.com/enercomp/enercomp/internal/agent/compliance"
	"github.com/enercomp/enercomp/internal/agent/state"
	"github.com/enercomp/enercomp/internal/logging"
	"github.com/enercomp/enercomp/internal/tracing"
)

// Name is the workflow agent name.
const Name = "energy_compliance_workflow"

// Description is the workflow agent description surfaced by /agent-info.
const Description = "Analyzes power-quality CSV data and generates an ANEEL compliance report."

// Workflow runs the analyst and compliance stages in order.
type Workflow struct {
	analyzer *analyst.Analyzer
	reporter *compliance.Reporter
	logger   *logging.Logger
}

// New composes the pipeline from its two stages.
func New(analyzer *analyst.Analyzer, reporter *compliance.Reporter) *Workflow {
	return &Workflow{
		analyzer: analyzer,
		reporter: reporter,
		logger:   logging.GetLogger("agent.workflow"),
	}
}

// Agent builds the workflow as a sequential agent for the ADK runner:
// data_analyst then compliance_report, unconditional edge, no branching.
func (w *Workflow) Agent() (agent.Agent, error) {
	analystNode, err := w.analyzer.Node()
	if err != nil {
		return nil, fmt.Errorf("failed to create analyst node: %w", err)
	}
	complianceNode, err := w.reporter.Node()
	if err != nil {
		return nil, fmt.Errorf("failed to create compliance node: %w", err)
	}

	seq, err := sequentialagent.New(sequentialagent.Config{
		AgentConfig: agent.Config{
			Name:        Name,
			Description: Description,
			SubAgents:   []agent.Agent{analystNode, complianceNode},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow agent: %w", err)
	}
	return seq, nil
}

// Run executes the pipeline over a typed state. Stage failures are recorded
// in the Error field and later stages run degraded with whatever inputs they
// have; Run never returns an error and never panics. The input state is
// mutated and returned.
func (w *Workflow) Run(ctx context.Context, st *state.State) *state.State {
	if st == nil {
		st = &state.State{}
	}

	ctx, span := tracing.Start(ctx, "workflow.run")
	defer span.End()

	if err := st.ValidateForAnalysis(); err != nil {
		st.Error = fmt.Sprintf("data analysis skipped: %v", err)
	} else {
		analysisCtx, analysisSpan := tracing.Start(ctx, "workflow.data_analyst")
		summary, err := w.analyzer.AnalyzeCSV(analysisCtx, st.PowerQualityDataCSV, st.LanguageCode)
		analysisSpan.End()
		if err != nil {
			w.logger.ErrorWithErr("data analysis failed", err)
			st.Error = fmt.Sprintf("data analysis failed: %v", err)
		} else {
			st.DataAnalysisReport = summary
		}
	}

	if err := st.ValidateForCompliance(); err != nil {
		if st.Error == "" {
			st.Error = fmt.Sprintf("compliance report skipped: %v", err)
		}
		w.logger.Warn("compliance stage has no data analysis to work with")
		return st
	}

	complianceCtx, complianceSpan := tracing.Start(ctx, "workflow.compliance_report")
	rep, err := w.reporter.Generate(complianceCtx, compliance.Input{
		FileName:                st.FileName,
		PowerQualityDataSummary: st.DataAnalysisReport,
		LanguageCode:            st.LanguageCode,
	})
	complianceSpan.End()
	if err != nil {
		w.logger.ErrorWithErr("compliance report generation failed", err)
		if st.Error == "" {
			st.Error = fmt.Sprintf("compliance report failed: %v", err)
		}
		return st
	}

	st.ComplianceReport = rep
	return st
}
