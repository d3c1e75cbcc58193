package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

const sampleJSON = `{
  "reportMetadata": {
    "title": "Relatório de Conformidade de Qualidade de Energia",
    "subtitle": "Análise do arquivo medicoes.csv",
    "author": "Enercomp",
    "generatedDate": "2026-08-27"
  },
  "tableOfContents": ["Introdução", "Tensão em Regime Permanente", "Considerações Finais"],
  "introduction": {
    "objective": "Avaliar a conformidade das medições com o PRODIST Módulo 8.",
    "overallResultsSummary": "As medições encontram-se majoritariamente na faixa adequada.",
    "usedNormsOverview": "PRODIST Módulo 8; Resolução Normativa nº 956/2021."
  },
  "analysisSections": [
    {
      "title": "Tensão em Regime Permanente",
      "content": "As leituras de tensão permaneceram dentro da faixa adequada.",
      "insights": ["Nenhuma transgressão dos limites DRP/DRC."],
      "relevantNormsCited": ["PRODIST Módulo 8"],
      "chartOrImageSuggestion": "Histograma das leituras de tensão",
      "chartUrl": ""
    }
  ],
  "finalConsiderations": "O conjunto de dados analisado está em conformidade.",
  "bibliography": [
    {"text": "ANEEL. PRODIST Módulo 8.", "link": "https://www.gov.br/aneel"}
  ]
}`

func TestParseValidReport(t *testing.T) {
	r, err := Parse([]byte(sampleJSON))
	require.NoError(t, err)

	assert.Equal(t, "Relatório de Conformidade de Qualidade de Energia", r.ReportMetadata.Title)
	assert.Len(t, r.TableOfContents, 3)
	require.Len(t, r.AnalysisSections, 1)
	assert.Equal(t, []string{"PRODIST Módulo 8"}, r.AnalysisSections[0].RelevantNormsCited)
	require.Len(t, r.Bibliography, 1)
	assert.NoError(t, r.Validate())
}

func TestParseInsightsList(t *testing.T) {
	// insights is a list of findings; subtitle and bibliography links are
	// optional in the renderer contract.
	payload := `{
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
      "insights": ["Sem transgressão de DRP.", "Sem transgressão de DRC."],
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

	r, err := Parse([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, r.Validate())
	assert.Equal(t, []string{"Sem transgressão de DRP.", "Sem transgressão de DRC."}, r.AnalysisSections[0].Insights)
	assert.Empty(t, r.ReportMetadata.Subtitle)
	assert.Empty(t, r.Bibliography[0].Link)
}

func TestParseStripsCodeFence(t *testing.T) {
	fenced := "```json\n" + sampleJSON + "\n```"
	r, err := Parse([]byte(fenced))
	require.NoError(t, err)
	assert.NoError(t, r.Validate())

	bare := "```\n" + sampleJSON + "\n```"
	r, err = Parse([]byte(bare))
	require.NoError(t, err)
	assert.NoError(t, r.Validate())
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("not a report"))
	assert.Error(t, err)

	_, err = Parse([]byte(""))
	assert.Error(t, err)

	_, err = Parse([]byte("```json\n```"))
	assert.Error(t, err)
}

func TestValidateMissingFields(t *testing.T) {
	r, err := Parse([]byte(sampleJSON))
	require.NoError(t, err)

	r.ReportMetadata.Title = ""
	assert.Error(t, r.Validate())

	r, _ = Parse([]byte(sampleJSON))
	r.AnalysisSections = nil
	assert.Error(t, r.Validate())

	r, _ = Parse([]byte(sampleJSON))
	r.AnalysisSections[0].Content = ""
	assert.Error(t, r.Validate())

	r, _ = Parse([]byte(sampleJSON))
	r.FinalConsiderations = ""
	assert.Error(t, r.Validate())
}

func TestCitedNorms(t *testing.T) {
	r, err := Parse([]byte(sampleJSON))
	require.NoError(t, err)

	r.AnalysisSections = append(r.AnalysisSections, AnalysisSection{
		Title:              "Fator de Potência",
		Content:            "x",
		Insights:           []string{"y"},
		RelevantNormsCited: []string{"REN nº 956/2021", "PRODIST Módulo 8"},
	})

	norms := r.CitedNorms()
	assert.Len(t, norms, 2)
	_, ok := norms["PRODIST Módulo 8"]
	assert.True(t, ok)
	_, ok = norms["REN nº 956/2021"]
	assert.True(t, ok)
}

func TestSchemaShape(t *testing.T) {
	s := Schema()
	require.Equal(t, genai.TypeObject, s.Type)

	for _, field := range []string{
		"reportMetadata", "tableOfContents", "introduction",
		"analysisSections", "finalConsiderations", "bibliography",
	} {
		assert.Contains(t, s.Properties, field)
		assert.Contains(t, s.Required, field)
	}

	sections := s.Properties["analysisSections"]
	require.Equal(t, genai.TypeArray, sections.Type)
	assert.Contains(t, sections.Items.Properties, "relevantNormsCited")
	assert.Contains(t, sections.Items.Properties, "chartUrl")
	assert.Equal(t, genai.TypeArray, sections.Items.Properties["insights"].Type)

	// Optional fields stay out of the Required lists.
	assert.NotContains(t, s.Properties["reportMetadata"].Required, "subtitle")
	assert.NotContains(t, s.Properties["bibliography"].Items.Required, "link")
}
