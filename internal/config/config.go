package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all configuration for the RagScout orchestrator.
type Config struct {
	Version    string
	DataDir    string
	LogLevel   string
	Backend    BackendConfig
	Classifier ClassifierConfig
	Telemetry  TelemetryConfig
}

// BackendConfig locates the remote RAG backend.
type BackendConfig struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// ClassifierConfig locates the persona-selection LLM. An empty APIKey
// disables the LLM path; the selector falls back to keyword scoring.
type ClassifierConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Version:  envStr("RAGSCOUT_VERSION", "0.2.0"),
		DataDir:  envStr("RAGSCOUT_DATA_DIR", defaultDataDir()),
		LogLevel: envStr("RAGSCOUT_LOG_LEVEL", "info"),
		Backend: BackendConfig{
			BaseURL:        envStr("R2R_BASE_URL", ""),
			APIKey:         envStr("R2R_API_KEY", ""),
			TimeoutSeconds: envInt("R2R_TIMEOUT_SECONDS", 120),
		},
		Classifier: ClassifierConfig{
			BaseURL: envStr("RAGSCOUT_CLASSIFIER_URL", "https://api.openai.com/v1"),
			APIKey:  envStr("RAGSCOUT_CLASSIFIER_API_KEY", ""),
			Model:   envStr("RAGSCOUT_CLASSIFIER_MODEL", "gpt-4o-mini"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "ragscout"),
		},
	}
}

// HistoryPath returns the persona selection history file location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "ai-persona-history.json")
}

// EvalDir returns the directory evaluation runs are written to.
func (c *Config) EvalDir() string {
	return filepath.Join(c.DataDir, "evals")
}

func defaultDataDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return filepath.Join(cwd, ".claude", "data")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
