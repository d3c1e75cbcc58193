package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enercomp/enercomp/internal/agent/analyst"
	"github.com/enercomp/enercomp/internal/agent/compliance"
	"github.com/enercomp/enercomp/internal/agent/model"
	"github.com/enercomp/enercomp/internal/agent/state"
	"github.com/enercomp/enercomp/internal/agent/workflow"
)

const reportJSON = `{
  "reportMetadata": {
    "title": "Relatório de Conformidade",
    "author": "Enercomp",
    "generatedDate": "2026-08-27"
  },
  "tableOfContents": ["Introdução"],
  "introduction": {
    "objective": "Avaliar a conformidade.",
    "overallResultsSummary": "Conforme.",
    "usedNormsOverview": "PRODIST Módulo 8."
  },
  "analysisSections": [
    {
      "title": "Tensão",
      "content": "Faixa adequada.",
      "insights": ["Sem transgressões."],
      "relevantNormsCited": ["PRODIST Módulo 8"],
      "chartOrImageSuggestion": "",
      "chartUrl": ""
    }
  ],
  "finalConsiderations": "Conforme.",
  "bibliography": [
    {"text": "ANEEL. PRODIST Módulo 8."}
  ]
}`

func newTestRunner(t *testing.T) (*Runner, *model.MockLLM) {
	t.Helper()

	analystLLM := model.NewMockFromScenario(&model.Scenario{
		Name: "analysis",
		Steps: []model.ScenarioStep{
			{Text: "Resumo da primeira medição."},
			{Text: "Resumo da segunda medição."},
		},
	})
	complianceLLM := model.NewMockFromScenario(&model.Scenario{
		Name: "report",
		Steps: []model.ScenarioStep{
			{Text: reportJSON},
			{Text: reportJSON},
		},
	})

	w := workflow.New(
		analyst.New(analystLLM, analyst.Config{ChunkSize: 10}),
		compliance.New(complianceLLM, compliance.Config{}),
	)
	workflowAgent, err := w.Agent()
	require.NoError(t, err)

	r, err := New(workflowAgent)
	require.NoError(t, err)
	return r, analystLLM
}

func TestRunProducesReport(t *testing.T) {
	r, _ := newTestRunner(t)

	var progress []Progress
	final, err := r.Run(context.Background(), "alice", "turn-1", "analise o arquivo",
		&state.State{
			FileName:            "medicoes.csv",
			PowerQualityDataCSV: "timestamp,voltage_v\n2026-08-27T10:00:00Z,220.1",
			LanguageCode:        "pt-BR",
		},
		func(p Progress) { progress = append(progress, p) },
	)
	require.NoError(t, err)
	require.NotNil(t, final.ComplianceReport)
	assert.Empty(t, final.Error)
	assert.NotEmpty(t, progress)
}

func TestRunSessionScopedPerInvocation(t *testing.T) {
	r, analystLLM := newTestRunner(t)
	ctx := context.Background()

	first, err := r.Run(ctx, "alice", "turn-1", "primeira análise",
		&state.State{PowerQualityDataCSV: "timestamp,v\nprimeira-medicao,220.1"}, nil)
	require.NoError(t, err)
	require.NotNil(t, first.ComplianceReport)

	// Reusing the session id works because each invocation gets a fresh
	// session service, and nothing from the first turn bleeds into the
	// second turn's model input.
	second, err := r.Run(ctx, "alice", "turn-1", "segunda análise",
		&state.State{PowerQualityDataCSV: "timestamp,v\nsegunda-medicao,219.8"}, nil)
	require.NoError(t, err)
	require.NotNil(t, second.ComplianceReport)

	reqs := analystLLM.Requests()
	require.Len(t, reqs, 2)
	assert.Contains(t, reqs[1], "segunda-medicao")
	assert.NotContains(t, reqs[1], "primeira-medicao")
}
