package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/enercomp/enercomp/internal/agent/runner"
	"github.com/enercomp/enercomp/internal/agent/workflow"
	"github.com/enercomp/enercomp/internal/apiserver"
	"github.com/enercomp/enercomp/internal/artifact"
	"github.com/enercomp/enercomp/internal/chat"
	"github.com/enercomp/enercomp/internal/config"
	"github.com/enercomp/enercomp/internal/csvdata"
	"github.com/enercomp/enercomp/internal/logging"
	"github.com/enercomp/enercomp/internal/session"
	"github.com/enercomp/enercomp/internal/tracing"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the HTTP chat service",
	Long: `Starts the API server: SSE chat endpoint, session management, health,
agent info, and Prometheus metrics. Flags default from ENERCOMP_* environment
variables.`,
	Run: runServer,
}

var serverCfg config.Config

func init() {
	f := serverCmd.Flags()
	f.IntVar(&serverCfg.APIPort, "api-port", envInt("ENERCOMP_API_PORT", 8080), "Port the API server listens on")
	f.StringVar(&serverCfg.AgentConfigDir, "agent-config-dir", envStr("ENERCOMP_AGENT_CONFIG_DIR", "configs/agents"), "Directory holding per-agent YAML files")
	f.StringVar(&serverCfg.SessionBackend, "session-backend", envStr("ENERCOMP_SESSION_BACKEND", config.SessionBackendMemory), "Session store backend: memory, sqlite, firestore")
	f.StringVar(&serverCfg.SQLitePath, "sqlite-path", envStr("ENERCOMP_SQLITE_PATH", "enercomp.db"), "SQLite database file (session-backend=sqlite)")
	f.StringVar(&serverCfg.FirestoreProject, "firestore-project", envStr("ENERCOMP_FIRESTORE_PROJECT", ""), "GCP project id (session-backend=firestore)")
	f.StringVar(&serverCfg.ArtifactBackend, "artifact-backend", envStr("ENERCOMP_ARTIFACT_BACKEND", config.ArtifactBackendMemory), "Artifact store backend: memory, s3")
	f.StringVar(&serverCfg.S3Endpoint, "s3-endpoint", envStr("ENERCOMP_S3_ENDPOINT", ""), "S3-compatible endpoint (artifact-backend=s3)")
	f.StringVar(&serverCfg.S3AccessKey, "s3-access-key", envStr("ENERCOMP_S3_ACCESS_KEY", ""), "S3 access key")
	f.StringVar(&serverCfg.S3SecretKey, "s3-secret-key", envStr("ENERCOMP_S3_SECRET_KEY", ""), "S3 secret key")
	f.StringVar(&serverCfg.S3Bucket, "s3-bucket", envStr("ENERCOMP_S3_BUCKET", ""), "S3 bucket for artifacts")
	f.StringVar(&serverCfg.S3Region, "s3-region", envStr("ENERCOMP_S3_REGION", ""), "S3 region")
	f.BoolVar(&serverCfg.S3UseSSL, "s3-use-ssl", envBool("ENERCOMP_S3_USE_SSL", true), "Use TLS for the S3 endpoint")
	f.StringVar(&serverCfg.DefaultLanguageCode, "language", envStr("ENERCOMP_LANGUAGE", chat.DefaultLanguageCode), "Default report language code")
	f.IntVar(&serverCfg.ChunkSize, "chunk-size", envInt("ENERCOMP_CHUNK_SIZE", csvdata.DefaultChunkSize), "Maximum data rows per CSV analysis chunk")
	f.BoolVar(&serverCfg.TracingEnabled, "tracing-enabled", envBool("ENERCOMP_TRACING_ENABLED", false), "Enable OpenTelemetry tracing")
	f.StringVar(&serverCfg.TracingEndpoint, "tracing-endpoint", envStr("ENERCOMP_TRACING_ENDPOINT", ""), "OTLP gRPC endpoint")
	f.StringVar(&serverCfg.TracingTLSCAPath, "tracing-tls-ca", envStr("ENERCOMP_TRACING_TLS_CA", ""), "CA certificate for the OTLP endpoint")
}

func runServer(cmd *cobra.Command, _ []string) {
	HandleError(setupLog(logLevelFlags), "Failed to initialize logging")
	logger := logging.GetLogger("main")

	HandleError(serverCfg.Validate(), "Configuration error")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracingProvider, err := tracing.NewProvider(tracing.Config{
		Enabled:   serverCfg.TracingEnabled,
		Endpoint:  serverCfg.TracingEndpoint,
		TLSCAPath: serverCfg.TracingTLSCAPath,
	})
	HandleError(err, "Failed to initialize tracing")

	sessions, err := buildSessionStore(ctx, &serverCfg)
	HandleError(err, "Failed to create session store")
	defer sessions.Close()

	artifacts, err := buildArtifactStore(ctx, &serverCfg)
	HandleError(err, "Failed to create artifact store")
	defer artifacts.Close()

	agentConfigs := config.NewAgentConfigs(serverCfg.AgentConfigDir)

	w, err := buildWorkflow(ctx, agentConfigs, serverCfg.ChunkSize, "")
	HandleError(err, "Failed to build agent workflow")
	workflowAgent, err := w.Agent()
	HandleError(err, "Failed to assemble agent pipeline")

	r, err := runner.New(workflowAgent)
	HandleError(err, "Failed to create workflow runner")

	chatHandler := chat.New(r, sessions, artifacts, chat.Options{
		DefaultLanguageCode: serverCfg.DefaultLanguageCode,
	})

	srv := apiserver.New(serverCfg.APIPort, chatHandler, sessions, apiserver.AgentInfo{
		Name:        workflow.Name,
		Description: workflow.Description,
		Model:       agentConfigs.Get(config.DataAnalystAgentName).Model,
		Tools:       []string{},
	})

	// Hot reload of per-agent YAML; the next turn picks up new prompts.
	watcher, err := config.NewWatcher(config.WatcherConfig{Dir: serverCfg.AgentConfigDir}, agentConfigs.Reload)
	if err != nil {
		logger.Warn("agent config watcher unavailable: %v", err)
	} else if err := watcher.Start(ctx); err != nil {
		logger.Warn("agent config watcher failed to start: %v", err)
	} else {
		defer func() { _ = watcher.Stop() }()
	}

	HandleError(srv.Start(ctx), "Failed to start API server")

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("API server shutdown error: %v", err)
	}
	if err := tracingProvider.Shutdown(shutdownCtx); err != nil {
		logger.Error("Tracing shutdown error: %v", err)
	}
}

func buildSessionStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	switch cfg.SessionBackend {
	case config.SessionBackendMemory:
		return session.NewMemoryStore(), nil
	case config.SessionBackendSQLite:
		return session.NewSQLiteStore(cfg.SQLitePath)
	case config.SessionBackendFirestore:
		return session.NewFirestoreStore(ctx, cfg.FirestoreProject)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}

func buildArtifactStore(ctx context.Context, cfg *config.Config) (artifact.Store, error) {
	switch cfg.ArtifactBackend {
	case config.ArtifactBackendMemory:
		return artifact.NewMemoryStore(), nil
	case config.ArtifactBackendS3:
		return artifact.NewS3Store(ctx, artifact.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown artifact backend %q", cfg.ArtifactBackend)
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
