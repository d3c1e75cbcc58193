package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/enercomp/enercomp/internal/agent/runner"
	"github.com/enercomp/enercomp/internal/artifact"
	"github.com/enercomp/enercomp/internal/chat"
	"github.com/enercomp/enercomp/internal/config"
	"github.com/enercomp/enercomp/internal/csvdata"
	"github.com/enercomp/enercomp/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run one report generation turn from the command line",
	Long: `Runs the agent workflow once against a local CSV file, without the HTTP
layer. With --model mock:<scenario.yaml> the turn runs fully offline against
a scripted model.`,
	Run: runChat,
}

var chatFlags struct {
	file           string
	message        string
	language       string
	model          string
	agentConfigDir string
	chunkSize      int
}

func init() {
	f := chatCmd.Flags()
	f.StringVar(&chatFlags.file, "file", "", "Power quality CSV file to analyze (required)")
	f.StringVar(&chatFlags.message, "message", "Analise o arquivo de qualidade de energia.", "User message for the turn")
	f.StringVar(&chatFlags.language, "language", "", "Report language code (default pt-BR)")
	f.StringVar(&chatFlags.model, "model", "", "Model override for both agents, e.g. gemini-1.5-pro or mock:scenario.yaml")
	f.StringVar(&chatFlags.agentConfigDir, "agent-config-dir", envStr("ENERCOMP_AGENT_CONFIG_DIR", "configs/agents"), "Directory holding per-agent YAML files")
	f.IntVar(&chatFlags.chunkSize, "chunk-size", csvdata.DefaultChunkSize, "Maximum data rows per CSV analysis chunk")
	_ = chatCmd.MarkFlagRequired("file")
}

func runChat(cmd *cobra.Command, _ []string) {
	HandleError(setupLog(logLevelFlags), "Failed to initialize logging")

	data, err := os.ReadFile(chatFlags.file)
	HandleError(err, "Failed to read CSV file")

	ctx := context.Background()

	agentConfigs := config.NewAgentConfigs(chatFlags.agentConfigDir)
	w, err := buildWorkflow(ctx, agentConfigs, chatFlags.chunkSize, chatFlags.model)
	HandleError(err, "Failed to build agent workflow")
	workflowAgent, err := w.Agent()
	HandleError(err, "Failed to assemble agent pipeline")
	r, err := runner.New(workflowAgent)
	HandleError(err, "Failed to create workflow runner")

	handler := chat.New(r, session.NewMemoryStore(), artifact.NewMemoryStore(), chat.Options{})

	res, err := handler.HandleMessage(ctx, "", "", chat.Message{
		Text:         chatFlags.message,
		FileName:     filepath.Base(chatFlags.file),
		FileData:     data,
		LanguageCode: chatFlags.language,
	}, printEvent)
	HandleError(err, "Chat turn failed")

	if res.State.Error != "" {
		fmt.Fprintf(os.Stderr, "workflow finished degraded: %s\n", res.State.Error)
		os.Exit(1)
	}
}

func printEvent(e chat.Event) {
	switch e.Type {
	case chat.EventStatus:
		if e.Agent != "" {
			fmt.Printf("[%s] %s\n", e.Agent, e.Text)
		} else {
			fmt.Printf("[status] %s\n", e.Text)
		}
	case chat.EventReport:
		out, err := json.MarshalIndent(e.Report, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to render report: %v\n", err)
			return
		}
		fmt.Println(string(out))
	case chat.EventError:
		fmt.Fprintf(os.Stderr, "[error] %s\n", e.Text)
	}
}
