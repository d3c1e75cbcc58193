package workflow

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enercomp/enercomp/internal/agent/analyst"
	"github.com/enercomp/enercomp/internal/agent/compliance"
	"github.com/enercomp/enercomp/internal/agent/model"
	"github.com/enercomp/enercomp/internal/agent/state"
)

const reportJSON = `{
  "reportMetadata": {
    "title": "Relatório de Análise de Conformidade da Qualidade de Energia Elétrica",
    "subtitle": "Análise referente ao arquivo 'medicoes.csv'",
    "author": "Energy Compliance Analyzer",
    "generatedDate": "2026-08-27"
  },
  "tableOfContents": ["Introdução", "Análise de Tensão", "Considerações Finais"],
  "introduction": {
    "objective": "Analisar a conformidade dos dados.",
    "overallResultsSummary": "Parâmetros majoritariamente conformes.",
    "usedNormsOverview": "PRODIST Módulo 8."
  },
  "analysisSections": [
    {
      "title": "Análise de Tensão",
      "content": "Tensões na faixa adequada.",
      "insights": ["Sem transgressões."],
      "relevantNormsCited": ["PRODIST Módulo 8, item 2.3"],
      "chartOrImageSuggestion": "",
      "chartUrl": ""
    },
    {
      "title": "Análise de Frequência",
      "content": "Frequência estável em 60Hz.",
      "insights": ["Dentro dos limites operativos."],
      "relevantNormsCited": ["PRODIST Módulo 8, item 5.1"],
      "chartOrImageSuggestion": "",
      "chartUrl": ""
    }
  ],
  "finalConsiderations": "Conjunto em conformidade.",
  "bibliography": [
    {"text": "ANEEL. PRODIST Módulo 8 - Qualidade da Energia Elétrica.", "link": ""}
  ]
}`

func buildCSV(rows int) string {
	var b strings.Builder
	b.WriteString("timestamp,voltage_v,frequency_hz")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "\n2026-08-27T10:%02d:00Z,%.1f,60.0", i%60, 219.0+float64(i%4))
	}
	return b.String()
}

func newWorkflow(analystScenario, complianceScenario *model.Scenario, chunkSize int) (*Workflow, *model.MockLLM, *model.MockLLM) {
	analystLLM := model.NewMockFromScenario(analystScenario)
	complianceLLM := model.NewMockFromScenario(complianceScenario)
	w := New(
		analyst.New(analystLLM, analyst.Config{ChunkSize: chunkSize}),
		compliance.New(complianceLLM, compliance.Config{}),
	)
	return w, analystLLM, complianceLLM
}

func TestRunThreeChunkPipeline(t *testing.T) {
	w, analystLLM, complianceLLM := newWorkflow(
		&model.Scenario{Name: "analysis", Steps: []model.ScenarioStep{
			{Text: "Resumo do bloco 1: tensões adequadas."},
			{Text: "Resumo do bloco 2: frequência estável."},
			{Text: "Resumo do bloco 3: uma leitura precária às 10:45."},
		}},
		&model.Scenario{Name: "report", Steps: []model.ScenarioStep{{Text: reportJSON}}},
		10,
	)

	st := w.Run(context.Background(), &state.State{
		FileName:            "medicoes.csv",
		PowerQualityDataCSV: buildCSV(25),
		LanguageCode:        "pt-BR",
	})

	require.Empty(t, st.Error)

	// Three chunks produced three analyst calls; their concatenation is the
	// data-analysis report handed to the compliance stage.
	assert.Len(t, analystLLM.Requests(), 3)
	for _, part := range []string{"bloco 1", "bloco 2", "bloco 3"} {
		assert.Contains(t, st.DataAnalysisReport, part)
	}
	complianceReqs := complianceLLM.Requests()
	require.Len(t, complianceReqs, 1)
	assert.Contains(t, complianceReqs[0], "bloco 3")

	// The resulting report is schema-valid with populated sections, and the
	// bibliography only references norms cited in some section.
	require.NotNil(t, st.ComplianceReport)
	require.NoError(t, st.ComplianceReport.Validate())
	assert.NotEmpty(t, st.ComplianceReport.AnalysisSections)
	norms := st.ComplianceReport.CitedNorms()
	assert.NotEmpty(t, norms)
	for _, entry := range st.ComplianceReport.Bibliography {
		matched := false
		for norm := range norms {
			if strings.Contains(norm, "PRODIST") && strings.Contains(entry.Text, "PRODIST") {
				matched = true
				break
			}
		}
		assert.True(t, matched, "bibliography entry %q cites no norm from any section", entry.Text)
	}
}

func TestRunDegradedOnAnalystFailure(t *testing.T) {
	w, _, complianceLLM := newWorkflow(
		&model.Scenario{Name: "failing", Steps: []model.ScenarioStep{{Error: "model unavailable"}}},
		&model.Scenario{Name: "report", Steps: []model.ScenarioStep{{Text: reportJSON}}},
		10,
	)

	st := w.Run(context.Background(), &state.State{
		PowerQualityDataCSV: buildCSV(5),
		LanguageCode:        "pt-BR",
	})

	// The failure lands in the error field; the run completes and the
	// compliance stage is skipped for lack of input.
	assert.Contains(t, st.Error, "data analysis failed")
	assert.Empty(t, st.DataAnalysisReport)
	assert.Nil(t, st.ComplianceReport)
	assert.Empty(t, complianceLLM.Requests())
}

func TestRunDegradedOnComplianceFailure(t *testing.T) {
	w, _, _ := newWorkflow(
		&model.Scenario{Name: "analysis", Steps: []model.ScenarioStep{{Text: "Resumo."}}},
		&model.Scenario{Name: "failing", Steps: []model.ScenarioStep{{Error: "quota exceeded"}}},
		10,
	)

	st := w.Run(context.Background(), &state.State{
		PowerQualityDataCSV: buildCSV(3),
	})

	assert.NotEmpty(t, st.DataAnalysisReport)
	assert.Contains(t, st.Error, "compliance report failed")
	assert.Nil(t, st.ComplianceReport)
}

func TestRunWithoutCSV(t *testing.T) {
	w, analystLLM, complianceLLM := newWorkflow(
		&model.Scenario{Name: "a", Steps: []model.ScenarioStep{{Text: "x"}}},
		&model.Scenario{Name: "c", Steps: []model.ScenarioStep{{Text: reportJSON}}},
		10,
	)

	st := w.Run(context.Background(), &state.State{LanguageCode: "pt-BR"})

	assert.Contains(t, st.Error, "data analysis skipped")
	assert.Empty(t, analystLLM.Requests())
	assert.Empty(t, complianceLLM.Requests())
}

func TestRunNilState(t *testing.T) {
	w, _, _ := newWorkflow(
		&model.Scenario{Name: "a", Steps: []model.ScenarioStep{{Text: "x"}}},
		&model.Scenario{Name: "c", Steps: []model.ScenarioStep{{Text: reportJSON}}},
		10,
	)

	st := w.Run(context.Background(), nil)
	require.NotNil(t, st)
	assert.NotEmpty(t, st.Error)
}

func TestAgentComposition(t *testing.T) {
	w, _, _ := newWorkflow(
		&model.Scenario{Name: "a", Steps: []model.ScenarioStep{{Text: "x"}}},
		&model.Scenario{Name: "c", Steps: []model.ScenarioStep{{Text: reportJSON}}},
		10,
	)

	a, err := w.Agent()
	require.NoError(t, err)
	assert.Equal(t, Name, a.Name())
}
