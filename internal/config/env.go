package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration.
// Variables are read with the EXPLORER_ prefix; nested structs use an
// underscore delimiter (e.g. EXPLORER_EMBEDDING_API_KEY).
type EnvConfig struct {
	// DBURL is the database connection URL.
	// Env: EXPLORER_DB_URL
	// Default: sqlite:///{data_dir}/explorer.db
	DBURL string `envconfig:"DB_URL"`

	// DataDir is the data directory path.
	// Env: EXPLORER_DATA_DIR (default: ~/.onchain-explorer)
	DataDir string `envconfig:"DATA_DIR"`

	// LogLevel is the log verbosity level.
	// Env: EXPLORER_LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: EXPLORER_LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// BatchSize is the number of records per pipeline batch.
	// Env: EXPLORER_BATCH_SIZE (default: 100)
	BatchSize int `envconfig:"BATCH_SIZE" default:"100"`

	// NormalizeWorkers bounds parallel normalization within a batch.
	// Zero means one worker per CPU.
	// Env: EXPLORER_NORMALIZE_WORKERS (default: 0)
	NormalizeWorkers int `envconfig:"NORMALIZE_WORKERS" default:"0"`

	// Embedding configures the embedding provider.
	Embedding EmbeddingEnv `envconfig:"EMBEDDING"`
}

// EmbeddingEnv holds environment configuration for the embedding provider.
type EmbeddingEnv struct {
	// Provider selects the embedding backend:
	// remote-small, remote-large, or local-multilingual.
	// Env: EXPLORER_EMBEDDING_PROVIDER (default: remote-small)
	Provider string `envconfig:"PROVIDER" default:"remote-small"`

	// APIKey authenticates against the remote embedding service.
	// Supplied out-of-band; never logged.
	// Env: EXPLORER_EMBEDDING_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// BaseURL overrides the remote service base URL.
	// Env: EXPLORER_EMBEDDING_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// Timeout is the per-request timeout for remote calls.
	// Env: EXPLORER_EMBEDDING_TIMEOUT (default: 30s)
	Timeout time.Duration `envconfig:"TIMEOUT" default:"30s"`

	// MaxRetries bounds retry attempts on transient remote errors.
	// Env: EXPLORER_EMBEDDING_MAX_RETRIES (default: 5)
	MaxRetries int `envconfig:"MAX_RETRIES" default:"5"`

	// RequestsPerMinute is the token-bucket quota for remote calls.
	// Env: EXPLORER_EMBEDDING_REQUESTS_PER_MINUTE (default: 3000)
	RequestsPerMinute int `envconfig:"REQUESTS_PER_MINUTE" default:"3000"`

	// Parallelism bounds concurrent remote sub-batches.
	// Env: EXPLORER_EMBEDDING_PARALLELISM (default: 4)
	Parallelism int `envconfig:"PARALLELISM" default:"4"`

	// ModelDir is where the local model files live.
	// Env: EXPLORER_EMBEDDING_MODEL_DIR
	// Default: {data_dir}/models
	ModelDir string `envconfig:"MODEL_DIR"`

	// HTTPCacheDir caches remote responses on disk when set.
	// Env: EXPLORER_EMBEDDING_HTTP_CACHE_DIR
	HTTPCacheDir string `envconfig:"HTTP_CACHE_DIR"`
}

// LoadEnv reads configuration from the environment (after loading any .env
// file) and resolves it into an AppConfig.
func LoadEnv() (AppConfig, error) {
	LoadDotEnv()

	var env EnvConfig
	if err := envconfig.Process("EXPLORER", &env); err != nil {
		return AppConfig{}, fmt.Errorf("process environment: %w", err)
	}

	return newAppConfig(env)
}
