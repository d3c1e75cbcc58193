package commands

import (
	"context"
	"fmt"

	"github.com/enercomp/enercomp/internal/agent/analyst"
	"github.com/enercomp/enercomp/internal/agent/compliance"
	"github.com/enercomp/enercomp/internal/agent/model"
	"github.com/enercomp/enercomp/internal/agent/workflow"
	"github.com/enercomp/enercomp/internal/config"
)

// buildWorkflow assembles the two-stage agent pipeline from per-agent
// configuration. A non-empty modelOverride replaces both agents' models,
// which is how `chat --model mock:<scenario>` runs offline.
func buildWorkflow(ctx context.Context, agentConfigs *config.AgentConfigs, chunkSize int, modelOverride string) (*workflow.Workflow, error) {
	analystCfg := agentConfigs.Get(config.DataAnalystAgentName)
	complianceCfg := agentConfigs.Get(config.ComplianceReportAgentName)
	if modelOverride != "" {
		analystCfg.Model = modelOverride
		complianceCfg.Model = modelOverride
	}

	analystLLM, err := model.New(ctx, analystCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create data analyst model: %w", err)
	}
	complianceLLM, err := model.New(ctx, complianceCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create compliance model: %w", err)
	}

	return workflow.New(
		analyst.New(analystLLM, analyst.Config{
			Prompt:    analystCfg.Prompt,
			ChunkSize: chunkSize,
		}),
		compliance.New(complianceLLM, compliance.Config{
			Prompt: complianceCfg.Prompt,
		}),
	), nil
}
