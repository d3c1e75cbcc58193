// Package report defines the fixed shape of the regulatory compliance report
// produced by the compliance agent, the structured-output schema handed to
// the model, and validation over the generated document.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

// Metadata identifies the generated report document.
type Metadata struct {
	Title         string `json:"title"`
	Subtitle      string `json:"subtitle"`
	Author        string `json:"author"`
	GeneratedDate string `json:"generatedDate"`
}

// Introduction opens the report body.
type Introduction struct {
	Objective             string `json:"objective"`
	OverallResultsSummary string `json:"overallResultsSummary"`
	UsedNormsOverview     string `json:"usedNormsOverview"`
}

// AnalysisSection is one ordered section of the report body.
type AnalysisSection struct {
	Title                  string   `json:"title"`
	Content                string   `json:"content"`
	Insights               []string `json:"insights"`
	RelevantNormsCited     []string `json:"relevantNormsCited"`
	ChartOrImageSuggestion string   `json:"chartOrImageSuggestion"`
	ChartURL               string   `json:"chartUrl"`
}

// BibliographyEntry is one cited reference.
type BibliographyEntry struct {
	Text string `json:"text"`
	Link string `json:"link"`
}

// Report is the complete compliance report. Field names follow the wire
// contract consumed by the report renderer.
type Report struct {
	ReportMetadata      Metadata            `json:"reportMetadata"`
	TableOfContents     []string            `json:"tableOfContents"`
	Introduction        Introduction        `json:"introduction"`
	AnalysisSections    []AnalysisSection   `json:"analysisSections"`
	FinalConsiderations string              `json:"finalConsiderations"`
	Bibliography        []BibliographyEntry `json:"bibliography"`
}

// Schema returns the structured-output schema the compliance model is asked
// to produce.
func Schema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"reportMetadata": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"title":         {Type: genai.TypeString},
					"subtitle":      {Type: genai.TypeString},
					"author":        {Type: genai.TypeString},
					"generatedDate": {Type: genai.TypeString},
				},
				Required: []string{"title", "author", "generatedDate"},
			},
			"tableOfContents": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"introduction": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"objective":             {Type: genai.TypeString},
					"overallResultsSummary": {Type: genai.TypeString},
					"usedNormsOverview":     {Type: genai.TypeString},
				},
				Required: []string{"objective", "overallResultsSummary", "usedNormsOverview"},
			},
			"analysisSections": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"title":    {Type: genai.TypeString},
						"content":  {Type: genai.TypeString},
						"insights": {
							Type:  genai.TypeArray,
							Items: &genai.Schema{Type: genai.TypeString},
						},
						"relevantNormsCited": {
							Type:  genai.TypeArray,
							Items: &genai.Schema{Type: genai.TypeString},
						},
						"chartOrImageSuggestion": {Type: genai.TypeString},
						"chartUrl":               {Type: genai.TypeString},
					},
					Required: []string{"title", "content", "insights", "relevantNormsCited"},
				},
			},
			"finalConsiderations": {Type: genai.TypeString},
			"bibliography": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"text": {Type: genai.TypeString},
						"link": {Type: genai.TypeString},
					},
					Required: []string{"text"},
				},
			},
		},
		Required: []string{
			"reportMetadata",
			"tableOfContents",
			"introduction",
			"analysisSections",
			"finalConsiderations",
			"bibliography",
		},
	}
}

// Parse decodes model output into a Report. Markdown code fences around the
// JSON body are tolerated, since models wrap structured output in them even
// when asked not to.
func Parse(data []byte) (*Report, error) {
	body := stripCodeFence(data)
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("empty report payload")
	}

	var r Report
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to decode report JSON: %w", err)
	}
	return &r, nil
}

// stripCodeFence removes a surrounding ```json ... ``` fence if present.
func stripCodeFence(data []byte) []byte {
	body := bytes.TrimSpace(data)
	if !bytes.HasPrefix(body, []byte("```")) {
		return body
	}
	// Drop the opening fence line (``` or ```json).
	if idx := bytes.IndexByte(body, '\n'); idx >= 0 {
		body = body[idx+1:]
	} else {
		return body
	}
	body = bytes.TrimSpace(body)
	body = bytes.TrimSuffix(body, []byte("```"))
	return bytes.TrimSpace(body)
}

// Validate checks that the required parts of the report are present.
func (r *Report) Validate() error {
	if r.ReportMetadata.Title == "" {
		return fmt.Errorf("report metadata missing title")
	}
	if r.ReportMetadata.GeneratedDate == "" {
		return fmt.Errorf("report metadata missing generatedDate")
	}
	if r.Introduction.Objective == "" {
		return fmt.Errorf("introduction missing objective")
	}
	if len(r.AnalysisSections) == 0 {
		return fmt.Errorf("report has no analysis sections")
	}
	for i, s := range r.AnalysisSections {
		if s.Title == "" {
			return fmt.Errorf("analysis section %d missing title", i)
		}
		if s.Content == "" {
			return fmt.Errorf("analysis section %d (%s) missing content", i, s.Title)
		}
	}
	if r.FinalConsiderations == "" {
		return fmt.Errorf("report missing final considerations")
	}
	return nil
}

// CitedNorms returns the set of norms cited across all analysis sections.
func (r *Report) CitedNorms() map[string]struct{} {
	norms := make(map[string]struct{})
	for _, s := range r.AnalysisSections {
		for _, n := range s.RelevantNormsCited {
			norms[n] = struct{}{}
		}
	}
	return norms
}
