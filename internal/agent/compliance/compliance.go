// Package compliance implements the compliance-report stage: the
// data-analysis summary is turned into a structured ANEEL compliance report
// with a fixed JSON schema.
package compliance

import (
	"context"
	"fmt"
	"strings"
	"time"

	adkmodel "google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/enercomp/enercomp/internal/agent/model"
	"github.com/enercomp/enercomp/internal/logging"
	"github.com/enercomp/enercomp/internal/metrics"
	"github.com/enercomp/enercomp/internal/report"
)

const systemPromptTemplate = `Você é um especialista em engenharia elétrica e regulamentações da ANEEL, encarregado de gerar um relatório técnico de conformidade detalhado e bem estruturado.
O relatório DEVE ser gerado no idioma especificado por '%[4]s' (o padrão é Português do Brasil - pt-BR - se não especificado ou se o idioma não for bem suportado para esta tarefa técnica).
As citações diretas de nomes de resoluções, artigos da ANEEL ou textos de normas devem permanecer em Português, mesmo que o restante do relatório esteja em outro idioma.

Contexto da Análise:
- Arquivo de Dados Analisado: %[1]s
- Sumário dos Dados de Qualidade de Energia: %[2]s
- Resoluções ANEEL Identificadas como Pertinentes (em Português): %[3]s
- Idioma do Relatório: %[4]s

Sua Tarefa:
Gerar um relatório de conformidade completo no idioma '%[4]s', seguindo RIGOROSAMENTE a estrutura de saída JSON definida abaixo. O relatório deve ser técnico, claro, objetivo e pronto para ser a base de um documento PDF profissional.

Diretrizes Detalhadas para Cada Parte do Relatório (a serem geradas no idioma '%[4]s'):

1.  reportMetadata:
    *   title: Crie um título formal, como "Relatório de Análise de Conformidade da Qualidade de Energia Elétrica".
    *   subtitle: Opcional. Pode incluir o nome do arquivo: "Análise referente ao arquivo '%[1]s'".
    *   author: Use "Energy Compliance Analyzer".
    *   generatedDate: Use a data atual no formato YYYY-MM-DD (%[5]s).

2.  tableOfContents:
    *   Liste os títulos das seções principais que você criará (Ex: "Introdução", títulos de analysisSections, "Considerações Finais", "Referências Bibliográficas").

3.  introduction:
    *   objective: Descreva o propósito do relatório (ex: analisar a conformidade dos dados de '%[1]s' com as resoluções ANEEL).
    *   overallResultsSummary: Forneça um breve panorama dos achados (ex: se a maioria dos parâmetros está conforme, ou se há violações significativas).
    *   usedNormsOverview: Mencione de forma geral as principais resoluções ANEEL (da lista de resoluções pertinentes, mantendo os nomes das resoluções em Português) que fundamentaram a análise.

4.  analysisSections (Array): Esta é a parte principal. Crie múltiplas seções.
    *   Ordenação: Organize as seções por temas comuns (ex: "Análise de Tensão", "Análise de Frequência", "Desequilíbrio de Tensão", "Harmônicos") e, dentro dos temas, se possível, de forma cronológica caso os dados no sumário permitam identificar eventos com data/hora.
    *   Para cada seção no array:
        *   title: Um título claro e descritivo para a seção (ex: "Análise dos Níveis de Tensão em Regime Permanente").
        *   content: Detalhe a análise dos parâmetros relevantes para esta seção, baseado no sumário dos dados. Seja técnico, mas claro. Compare os valores observados com os limites regulatórios.
        *   insights: Liste os principais insights, observações ou problemas detectados nesta seção específica. Cada insight deve ser uma frase concisa.
        *   relevantNormsCited: Para cada insight ou problema, explicite a norma ANEEL e o artigo/item específico em Português que o respalda (ex: "Resolução XXX/YYYY, Art. Z, Inciso W", ou "PRODIST Módulo 8, item 3.2.1"). Seja preciso.
        *   chartOrImageSuggestion: (OPCIONAL, MAS RECOMENDADO) Gere uma sugestão de diagrama visual em sintaxe Mermaid que poderia ilustrar os achados da seção. A sintaxe Mermaid DEVE ser fornecida diretamente neste campo.
        *   chartUrl: (OPCIONAL) Este campo será preenchido posteriormente com a URL de um gráfico gerado. Não preencha este campo.

5.  finalConsiderations:
    *   Resuma as principais conclusões da análise.
    *   Destaque os pontos mais críticos de não conformidade, se houver.
    *   Pode incluir recomendações gerais (se o sumário de dados permitir inferi-las).

6.  bibliography (Array):
    *   Para cada norma ANEEL que foi CITADA em relevantNormsCited em qualquer analysisSections:
        *   text: Forneça a referência completa da norma em Português (ex: "Agência Nacional de Energia Elétrica (ANEEL). Resolução Normativa nº 956, de 7 de dezembro de 2021. Estabelece os Procedimentos de Distribuição de Energia Elétrica no Sistema Elétrico Nacional – PRODIST.").
        *   link: Se você souber de um link oficial para a norma, inclua-o. Caso contrário, pode omitir.
    *   NÃO inclua na bibliografia normas que não foram citadas em nenhuma seção.

Importante:
*   O conteúdo principal do relatório deve ser gerado no idioma '%[4]s'.
*   Nomes de resoluções, artigos e textos normativos da ANEEL DEVEM ser mantidos em Português.
*   Seja o mais detalhado e preciso possível, baseando-se estritamente nas informações do sumário dos dados e nas resoluções pertinentes.
*   Se o sumário for limitado, reconheça isso em suas análises (ex: "Com base nos dados sumarizados, não foi possível avaliar X em detalhe...").

Retorne APENAS o objeto JSON do relatório. Não inclua nenhum texto explicativo antes ou depois do JSON.`

// DefaultRegulations is the baseline set of ANEEL norms handed to the model
// when the caller does not provide its own list. Norm names stay in
// Portuguese regardless of report language.
var DefaultRegulations = []string{
	"PRODIST Módulo 8 - Qualidade da Energia Elétrica",
	"Resolução Normativa ANEEL nº 956/2021",
}

// Input carries everything the compliance stage needs for one report.
type Input struct {
	FileName                string
	PowerQualityDataSummary string
	IdentifiedRegulations   []string
	LanguageCode            string
}

// Config holds the reporter settings.
type Config struct {
	// Prompt overrides the built-in system prompt template when set.
	Prompt string
}

// Reporter generates structured ANEEL compliance reports with an LLM.
type Reporter struct {
	llm adkmodel.LLM

	// customPrompt replaces the built-in template verbatim when set.
	customPrompt string
	logger       *logging.Logger

	// now is injectable for deterministic generatedDate in tests.
	now func() time.Time
}

// New creates a Reporter over the given model.
func New(llm adkmodel.LLM, cfg Config) *Reporter {
	return &Reporter{
		llm:          llm,
		customPrompt: cfg.Prompt,
		logger:       logging.GetLogger("agent.compliance"),
		now:          time.Now,
	}
}

// Generate produces the compliance report for the given input. The model is
// asked for schema-constrained JSON; the result is parsed and validated
// before being returned.
func (r *Reporter) Generate(ctx context.Context, in Input) (*report.Report, error) {
	if strings.TrimSpace(in.PowerQualityDataSummary) == "" {
		return nil, fmt.Errorf("power quality data summary is empty")
	}
	if in.LanguageCode == "" {
		in.LanguageCode = "pt-BR"
	}
	if in.FileName == "" {
		in.FileName = "dados.csv"
	}
	regulations := in.IdentifiedRegulations
	if len(regulations) == 0 {
		regulations = DefaultRegulations
	}

	system := r.customPrompt
	if system == "" {
		system = fmt.Sprintf(systemPromptTemplate,
			in.FileName,
			in.PowerQualityDataSummary,
			strings.Join(regulations, "; "),
			in.LanguageCode,
			r.now().Format("2006-01-02"),
		)
	}

	userText := fmt.Sprintf(
		"Generate the ANEEL compliance report using the following data:\nFile Name: %s\nSummary: %s\nRegulations: %s\nLanguage: %s",
		in.FileName, in.PowerQualityDataSummary, strings.Join(regulations, "; "), in.LanguageCode,
	)

	req := &adkmodel.LLMRequest{
		Config: &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: system}},
			},
			ResponseMIMEType: "application/json",
			ResponseSchema:   report.Schema(),
		},
		Contents: []*genai.Content{
			{Role: "user", Parts: []*genai.Part{{Text: userText}}},
		},
	}

	metrics.LLMCalls.WithLabelValues("compliance_report").Inc()
	raw, err := model.GenerateText(ctx, r.llm, req)
	if err != nil {
		metrics.LLMFailures.WithLabelValues("compliance_report").Inc()
		return nil, fmt.Errorf("compliance model call failed: %w", err)
	}

	rep, err := report.Parse([]byte(raw))
	if err != nil {
		metrics.LLMFailures.WithLabelValues("compliance_report").Inc()
		return nil, fmt.Errorf("compliance model returned invalid report: %w", err)
	}
	if err := rep.Validate(); err != nil {
		return nil, fmt.Errorf("compliance report failed validation: %w", err)
	}

	r.logger.InfoWithFields("compliance report generated",
		logging.Field("file", in.FileName),
		logging.Field("sections", len(rep.AnalysisSections)),
	)
	return rep, nil
}
