// Package analyst implements the data-analyst stage: each CSV chunk is
// summarized into a natural-language power-quality analysis, and the chunk
// summaries are joined into the overall data-analysis report.
package analyst

import (
	"context"
	"fmt"
	"strings"

	adkmodel "google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/enercomp/enercomp/internal/agent/model"
	"github.com/enercomp/enercomp/internal/csvdata"
	"github.com/enercomp/enercomp/internal/logging"
	"github.com/enercomp/enercomp/internal/metrics"
)

const systemPrompt = `Você é um engenheiro eletricista especializado em qualidade de energia elétrica.
Sua tarefa é analisar um bloco de medições de qualidade de energia em formato CSV e produzir um sumário técnico em texto corrido.

O sumário DEVE ser escrito no idioma indicado e DEVE cobrir:
- Os parâmetros presentes nos dados (tensão, frequência, desequilíbrio, harmônicos, fator de potência, conforme disponíveis).
- Faixas observadas, valores extremos e tendências relevantes.
- Possíveis transgressões dos limites regulatórios da ANEEL (PRODIST Módulo 8), citando o parâmetro e o horário quando identificável.
- Limitações dos dados, quando houver.

Seja objetivo e técnico. Não invente valores que não estejam nos dados. Responda apenas com o sumário, sem preâmbulos.`

// Config holds the analyst settings.
type Config struct {
	// Prompt overrides the built-in system prompt when set.
	Prompt string

	// ChunkSize is the maximum number of data rows per analyzed chunk.
	ChunkSize int
}

// Analyzer summarizes power-quality CSV data with an LLM.
type Analyzer struct {
	llm       adkmodel.LLM
	prompt    string
	chunkSize int
	logger    *logging.Logger
}

// New creates an Analyzer over the given model.
func New(llm adkmodel.LLM, cfg Config) *Analyzer {
	prompt := cfg.Prompt
	if prompt == "" {
		prompt = systemPrompt
	}
	chunkSize := cfg.ChunkSize
	if chunkSize < 1 {
		chunkSize = csvdata.DefaultChunkSize
	}
	return &Analyzer{
		llm:       llm,
		prompt:    prompt,
		chunkSize: chunkSize,
		logger:    logging.GetLogger("agent.analyst"),
	}
}

// Summarize produces the textual analysis of a single CSV chunk in the given
// language. The returned summary is never empty on success.
func (a *Analyzer) Summarize(ctx context.Context, chunk, languageCode string) (string, error) {
	if strings.TrimSpace(chunk) == "" {
		return "", fmt.Errorf("chunk is empty")
	}
	if languageCode == "" {
		languageCode = "pt-BR"
	}

	userText := fmt.Sprintf("Idioma do sumário: %s\n\nDados de qualidade de energia (CSV):\n%s", languageCode, chunk)
	req := &adkmodel.LLMRequest{
		Config: &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: a.prompt}},
			},
		},
		Contents: []*genai.Content{
			{Role: "user", Parts: []*genai.Part{{Text: userText}}},
		},
	}

	metrics.LLMCalls.WithLabelValues("data_analyst").Inc()
	text, err := model.GenerateText(ctx, a.llm, req)
	if err != nil {
		metrics.LLMFailures.WithLabelValues("data_analyst").Inc()
		return "", fmt.Errorf("analyst model call failed: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		metrics.LLMFailures.WithLabelValues("data_analyst").Inc()
		return "", fmt.Errorf("analyst model returned an empty summary")
	}
	return text, nil
}

// AnalyzeCSV chunks the CSV, summarizes every chunk, and joins the summaries
// into the data-analysis report. Chunk summaries keep their order.
func (a *Analyzer) AnalyzeCSV(ctx context.Context, csv, languageCode string) (string, error) {
	chunks, err := csvdata.Chunk(csv, a.chunkSize)
	if err != nil {
		return "", fmt.Errorf("failed to chunk csv: %w", err)
	}

	a.logger.InfoWithFields("analyzing csv",
		logging.Field("chunks", len(chunks)),
		logging.Field("language", languageCode),
	)

	summaries := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		summary, err := a.Summarize(ctx, chunk, languageCode)
		if err != nil {
			return "", fmt.Errorf("failed to summarize chunk %d/%d: %w", i+1, len(chunks), err)
		}
		metrics.ChunksAnalyzed.Inc()
		summaries = append(summaries, summary)
	}
	return strings.Join(summaries, "\n\n"), nil
}
