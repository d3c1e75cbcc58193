// Package config holds process configuration and per-agent model
// configuration. The process Config is constructed once in the CLI layer and
// passed down explicitly; there is no global configuration state.
package config

// Session store backends.
const (
	SessionBackendMemory    = "memory"
	SessionBackendSQLite    = "sqlite"
	SessionBackendFirestore = "firestore"
)

// Artifact store backends.
const (
	ArtifactBackendMemory = "memory"
	ArtifactBackendS3     = "s3"
)

// Config holds all process-level configuration for the service.
type Config struct {
	// APIPort is the port the API server listens on
	APIPort int

	// LogLevel is the logging level (debug, info, warn, error)
	LogLevel string

	// AgentConfigDir is the directory holding per-agent YAML files
	// (data_analyst_agent.yaml, compliance_report_agent.yaml)
	AgentConfigDir string

	// SessionBackend selects the session store: memory, sqlite, firestore
	SessionBackend string

	// SQLitePath is the sqlite database file, used when SessionBackend=sqlite
	SQLitePath string

	// FirestoreProject is the GCP project, used when SessionBackend=firestore
	FirestoreProject string

	// ArtifactBackend selects the artifact store: memory, s3
	ArtifactBackend string

	// S3Endpoint is the object store endpoint, used when ArtifactBackend=s3
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3UseSSL    bool

	// DefaultLanguageCode is used when a chat request carries no language
	DefaultLanguageCode string

	// ChunkSize is the maximum number of data rows per CSV analysis chunk
	ChunkSize int

	// TracingEnabled indicates whether OpenTelemetry tracing is enabled
	TracingEnabled bool

	// TracingEndpoint is the OTLP gRPC endpoint for trace export
	TracingEndpoint string

	// TracingTLSCAPath is the path to the CA certificate for TLS verification
	TracingTLSCAPath string
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.APIPort < 1 || c.APIPort > 65535 {
		return NewConfigError("APIPort must be between 1 and 65535")
	}

	switch c.SessionBackend {
	case SessionBackendMemory:
	case SessionBackendSQLite:
		if c.SQLitePath == "" {
			return NewConfigError("SQLitePath must be set when SessionBackend=sqlite")
		}
	case SessionBackendFirestore:
		if c.FirestoreProject == "" {
			return NewConfigError("FirestoreProject must be set when SessionBackend=firestore")
		}
	default:
		return NewConfigError("SessionBackend must be one of: memory, sqlite, firestore")
	}

	switch c.ArtifactBackend {
	case ArtifactBackendMemory:
	case ArtifactBackendS3:
		if c.S3Endpoint == "" || c.S3Bucket == "" {
			return NewConfigError("S3Endpoint and S3Bucket must be set when ArtifactBackend=s3")
		}
	default:
		return NewConfigError("ArtifactBackend must be one of: memory, s3")
	}

	if c.ChunkSize < 1 {
		return NewConfigError("ChunkSize must be at least 1")
	}

	if c.TracingEnabled && c.TracingEndpoint == "" {
		return NewConfigError("TracingEndpoint must be set when tracing is enabled")
	}

	return nil
}

// ConfigError represents a configuration error.
type ConfigError struct {
	message string
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string) *ConfigError {
	return &ConfigError{message: message}
}

func (e *ConfigError) Error() string {
	return e.message
}
