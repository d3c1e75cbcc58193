package model

import (
	"context"
	"strings"

	adkmodel "google.golang.org/adk/model"
)

// GenerateText runs a non-streaming generation and returns the concatenated
// text parts of the responses. Thought parts are skipped.
func GenerateText(ctx context.Context, llm adkmodel.LLM, req *adkmodel.LLMRequest) (string, error) {
	var b strings.Builder
	for resp, err := range llm.GenerateContent(ctx, req, false) {
		if err != nil {
			return "", err
		}
		if resp == nil || resp.Content == nil {
			continue
		}
		for _, part := range resp.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			if part.Text != "" {
				b.WriteString(part.Text)
			}
		}
	}
	return b.String(), nil
}
