package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enercomp/enercomp/internal/report"
)

func sampleReport() *report.Report {
	return &report.Report{
		ReportMetadata: report.Metadata{
			Title:         "Relatório de Conformidade",
			Subtitle:      "medicoes.csv",
			Author:        "Enercomp",
			GeneratedDate: "2026-08-27",
		},
		Introduction: report.Introduction{Objective: "avaliar conformidade"},
		AnalysisSections: []report.AnalysisSection{
			{Title: "Tensão", Content: "ok", Insights: []string{"ok"}, RelevantNormsCited: []string{"PRODIST Módulo 8"}},
		},
		FinalConsiderations: "conforme",
	}
}

func TestRoundTripDelta(t *testing.T) {
	orig := &State{
		FileName:            "medicoes.csv",
		PowerQualityDataCSV: "ts,v\n1,219",
		LanguageCode:        "pt-BR",
		DataAnalysisReport:  "summary text",
		ComplianceReport:    sampleReport(),
	}

	got, err := FromSessionState(orig.Delta())
	require.NoError(t, err)
	assert.Equal(t, orig.FileName, got.FileName)
	assert.Equal(t, orig.PowerQualityDataCSV, got.PowerQualityDataCSV)
	assert.Equal(t, orig.LanguageCode, got.LanguageCode)
	assert.Equal(t, orig.DataAnalysisReport, got.DataAnalysisReport)
	require.NotNil(t, got.ComplianceReport)
	assert.Equal(t, "Relatório de Conformidade", got.ComplianceReport.ReportMetadata.Title)
}

func TestDeltaOmitsUnsetFields(t *testing.T) {
	s := &State{LanguageCode: "pt-BR"}
	delta := s.Delta()
	assert.Len(t, delta, 1)
	assert.Equal(t, "pt-BR", delta[KeyLanguageCode])
}

func TestFromSessionStateNilMap(t *testing.T) {
	s, err := FromSessionState(nil)
	require.NoError(t, err)
	assert.Empty(t, s.FileName)
	assert.Nil(t, s.ComplianceReport)
}

func TestFromSessionStateWrongType(t *testing.T) {
	_, err := FromSessionState(map[string]any{KeyLanguageCode: 42})
	assert.Error(t, err)
}

func TestFromSessionStateDecodedJSONReport(t *testing.T) {
	// Reports loaded back from a persisted session arrive as generic maps.
	raw, err := json.Marshal(sampleReport())
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	s, err := FromSessionState(map[string]any{KeyComplianceReport: decoded})
	require.NoError(t, err)
	require.NotNil(t, s.ComplianceReport)
	assert.Equal(t, "Relatório de Conformidade", s.ComplianceReport.ReportMetadata.Title)
	assert.Len(t, s.ComplianceReport.AnalysisSections, 1)
}

func TestValidateForStages(t *testing.T) {
	s := &State{}
	assert.Error(t, s.ValidateForAnalysis())
	assert.Error(t, s.ValidateForCompliance())

	s.PowerQualityDataCSV = "ts,v\n1,219"
	assert.NoError(t, s.ValidateForAnalysis())

	s.DataAnalysisReport = "summary"
	assert.NoError(t, s.ValidateForCompliance())
}

func TestErrorFieldRoundTrip(t *testing.T) {
	s := &State{Error: "analysis failed: model unavailable"}
	got, err := FromSessionState(s.Delta())
	require.NoError(t, err)
	assert.Equal(t, s.Error, got.Error)
}
