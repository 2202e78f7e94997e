// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Default configuration values.
const (
	DefaultLogLevel          = "INFO"
	DefaultBatchSize         = 100
	DefaultEmbeddingTimeout  = 30 * time.Second
	DefaultEmbeddingRetries  = 5
	DefaultRequestsPerMinute = 3000
	DefaultParallelism       = 4
)

// ProviderKind selects the embedding backend.
type ProviderKind string

// ProviderKind values.
const (
	ProviderRemoteSmall       ProviderKind = "remote-small"
	ProviderRemoteLarge       ProviderKind = "remote-large"
	ProviderLocalMultilingual ProviderKind = "local-multilingual"
)

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	provider          ProviderKind
	apiKey            string
	baseURL           string
	timeout           time.Duration
	maxRetries        int
	requestsPerMinute int
	parallelism       int
	modelDir          string
	httpCacheDir      string
}

// Provider returns the selected embedding backend.
func (e EmbeddingConfig) Provider() ProviderKind { return e.provider }

// APIKey returns the remote provider credential.
func (e EmbeddingConfig) APIKey() string { return e.apiKey }

// BaseURL returns the remote service base URL override.
func (e EmbeddingConfig) BaseURL() string { return e.baseURL }

// Timeout returns the per-request timeout.
func (e EmbeddingConfig) Timeout() time.Duration { return e.timeout }

// MaxRetries returns the retry attempt bound.
func (e EmbeddingConfig) MaxRetries() int { return e.maxRetries }

// RequestsPerMinute returns the token-bucket quota.
func (e EmbeddingConfig) RequestsPerMinute() int { return e.requestsPerMinute }

// Parallelism returns the concurrent sub-batch bound.
func (e EmbeddingConfig) Parallelism() int { return e.parallelism }

// ModelDir returns the local model directory.
func (e EmbeddingConfig) ModelDir() string { return e.modelDir }

// HTTPCacheDir returns the HTTP response cache directory, empty if disabled.
func (e EmbeddingConfig) HTTPCacheDir() string { return e.httpCacheDir }

// AppConfig is the resolved application configuration.
type AppConfig struct {
	dbURL            string
	dataDir          string
	logLevel         string
	logFormat        string
	batchSize        int
	normalizeWorkers int
	embedding        EmbeddingConfig
}

// DBURL returns the database connection URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// DataDir returns the data directory.
func (c AppConfig) DataDir() string { return c.dataDir }

// LogLevel returns the log verbosity level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log output format.
func (c AppConfig) LogFormat() string { return c.logFormat }

// BatchSize returns the pipeline batch size.
func (c AppConfig) BatchSize() int { return c.batchSize }

// NormalizeWorkers returns the normalization worker bound (0 = per CPU).
func (c AppConfig) NormalizeWorkers() int { return c.normalizeWorkers }

// Embedding returns the embedding provider configuration.
func (c AppConfig) Embedding() EmbeddingConfig { return c.embedding }

// DefaultDataDir returns the default data directory under the user's home.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".onchain-explorer"
	}
	return filepath.Join(home, ".onchain-explorer")
}

func newAppConfig(env EnvConfig) (AppConfig, error) {
	dataDir := env.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}

	dbURL := env.DBURL
	if dbURL == "" {
		dbURL = "sqlite:///" + filepath.Join(dataDir, "explorer.db")
	}

	batchSize := env.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	provider := ProviderKind(env.Embedding.Provider)
	switch provider {
	case ProviderRemoteSmall, ProviderRemoteLarge, ProviderLocalMultilingual:
	default:
		return AppConfig{}, fmt.Errorf("unknown embedding provider %q", env.Embedding.Provider)
	}

	modelDir := env.Embedding.ModelDir
	if modelDir == "" {
		modelDir = filepath.Join(dataDir, "models")
	}

	return AppConfig{
		dbURL:            dbURL,
		dataDir:          dataDir,
		logLevel:         env.LogLevel,
		logFormat:        env.LogFormat,
		batchSize:        batchSize,
		normalizeWorkers: env.NormalizeWorkers,
		embedding: EmbeddingConfig{
			provider:          provider,
			apiKey:            env.Embedding.APIKey,
			baseURL:           env.Embedding.BaseURL,
			timeout:           env.Embedding.Timeout,
			maxRetries:        env.Embedding.MaxRetries,
			requestsPerMinute: env.Embedding.RequestsPerMinute,
			parallelism:       env.Embedding.Parallelism,
			modelDir:          modelDir,
			httpCacheDir:      env.Embedding.HTTPCacheDir,
		},
	}, nil
}
