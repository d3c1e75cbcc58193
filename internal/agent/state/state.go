// Package state defines the typed pipeline state shared between the analyst
// and compliance agents, and its mapping onto the untyped session-state map
// the agent runtime carries between nodes.
package state

import (
	"encoding/json"
	"fmt"

	"github.com/enercomp/enercomp/internal/report"
)

// Session-state keys. These are the wire names the chat surface and stored
// sessions use, so they stay camelCase.
const (
	KeyFileName            = "fileName"
	KeyPowerQualityDataCSV = "powerQualityDataCsv"
	KeyLanguageCode        = "languageCode"
	KeyDataAnalysisReport  = "dataAnalysisReport"
	KeyComplianceReport    = "complianceReport"
	KeyError               = "error"
)

// State is the explicit pipeline state. Zero values mean "not set".
type State struct {
	// Inputs
	FileName            string
	PowerQualityDataCSV string
	LanguageCode        string

	// Produced by the data-analyst stage
	DataAnalysisReport string

	// Produced by the compliance stage
	ComplianceReport *report.Report

	// Error carries the first stage failure; later stages may still run
	// degraded with whatever inputs they have.
	Error string
}

// ValidateForAnalysis checks the inputs the analyst stage needs.
func (s *State) ValidateForAnalysis() error {
	if s.PowerQualityDataCSV == "" {
		return fmt.Errorf("state missing %s", KeyPowerQualityDataCSV)
	}
	return nil
}

// ValidateForCompliance checks the inputs the compliance stage needs.
func (s *State) ValidateForCompliance() error {
	if s.DataAnalysisReport == "" {
		return fmt.Errorf("state missing %s", KeyDataAnalysisReport)
	}
	return nil
}

// FromSessionState builds a typed State from the untyped session-state map.
// Unknown keys are ignored; a compliance report may arrive either as a typed
// value or as a decoded JSON map, depending on which side wrote it.
func FromSessionState(m map[string]any) (*State, error) {
	s := &State{}
	if m == nil {
		return s, nil
	}

	var err error
	if s.FileName, err = stringValue(m, KeyFileName); err != nil {
		return nil, err
	}
	if s.PowerQualityDataCSV, err = stringValue(m, KeyPowerQualityDataCSV); err != nil {
		return nil, err
	}
	if s.LanguageCode, err = stringValue(m, KeyLanguageCode); err != nil {
		return nil, err
	}
	if s.DataAnalysisReport, err = stringValue(m, KeyDataAnalysisReport); err != nil {
		return nil, err
	}
	if s.Error, err = stringValue(m, KeyError); err != nil {
		return nil, err
	}

	if v, ok := m[KeyComplianceReport]; ok && v != nil {
		switch rv := v.(type) {
		case *report.Report:
			s.ComplianceReport = rv
		case report.Report:
			s.ComplianceReport = &rv
		default:
			// Round-tripped through JSON somewhere along the way.
			raw, err := json.Marshal(rv)
			if err != nil {
				return nil, fmt.Errorf("state key %s is not a compliance report: %w", KeyComplianceReport, err)
			}
			r, err := report.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("state key %s is not a compliance report: %w", KeyComplianceReport, err)
			}
			s.ComplianceReport = r
		}
	}

	return s, nil
}

// Getter is the read surface of the runtime's session state.
type Getter interface {
	Get(key string) (any, error)
}

// FromGetter builds a typed State by probing the session state key by key.
// Missing keys are treated as unset; a Get error on a present key is
// indistinguishable from absence and treated the same way.
func FromGetter(g Getter) *State {
	m := make(map[string]any)
	for _, key := range []string{
		KeyFileName,
		KeyPowerQualityDataCSV,
		KeyLanguageCode,
		KeyDataAnalysisReport,
		KeyComplianceReport,
		KeyError,
	} {
		if v, err := g.Get(key); err == nil && v != nil {
			m[key] = v
		}
	}
	s, err := FromSessionState(m)
	if err != nil {
		// Fall back to the string fields that did parse.
		s = &State{}
		s.FileName, _ = stringValue(m, KeyFileName)
		s.PowerQualityDataCSV, _ = stringValue(m, KeyPowerQualityDataCSV)
		s.LanguageCode, _ = stringValue(m, KeyLanguageCode)
		s.DataAnalysisReport, _ = stringValue(m, KeyDataAnalysisReport)
		s.Error, _ = stringValue(m, KeyError)
	}
	return s
}

func stringValue(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	str, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("state key %s must be a string, got %T", key, v)
	}
	return str, nil
}

// Delta returns the session-state map representation of s, with only the set
// fields present. Suitable as an event StateDelta.
func (s *State) Delta() map[string]any {
	m := make(map[string]any)
	if s.FileName != "" {
		m[KeyFileName] = s.FileName
	}
	if s.PowerQualityDataCSV != "" {
		m[KeyPowerQualityDataCSV] = s.PowerQualityDataCSV
	}
	if s.LanguageCode != "" {
		m[KeyLanguageCode] = s.LanguageCode
	}
	if s.DataAnalysisReport != "" {
		m[KeyDataAnalysisReport] = s.DataAnalysisReport
	}
	if s.ComplianceReport != nil {
		m[KeyComplianceReport] = s.ComplianceReport
	}
	if s.Error != "" {
		m[KeyError] = s.Error
	}
	return m
}
