package explorer

import (
	"log/slog"

	"github.com/arnavk-polka/onChain-Explorer/domain/proposal"
	"github.com/arnavk-polka/onChain-Explorer/infrastructure/provider"
	"github.com/arnavk-polka/onChain-Explorer/internal/config"
)

// databaseType identifies the database.
type databaseType int

const (
	databaseUnset databaseType = iota
	databaseSQLite
	databasePostgres
)

// clientConfig holds configuration for Client construction.
// Use newClientConfig() to create with defaults from internal/config.
type clientConfig struct {
	database         databaseType
	dbPath           string
	dbDSN            string
	dataDir          string
	embedder         provider.Embedder
	remoteCfg        *provider.OpenAIConfig
	localModelDir    string
	fetcher          proposal.Fetcher
	logger           *slog.Logger
	batchSize        int
	normalizeWorkers int
}

// newClientConfig creates a clientConfig with defaults from internal/config.
func newClientConfig() *clientConfig {
	return &clientConfig{
		dataDir:   config.DefaultDataDir(),
		batchSize: config.DefaultBatchSize,
	}
}

// Option configures the Client.
type Option func(*clientConfig)

// WithSQLite configures SQLite as the database. Embeddings are stored as
// JSON text; suitable for local runs and tests.
func WithSQLite(path string) Option {
	return func(c *clientConfig) {
		c.database = databaseSQLite
		c.dbPath = path
	}
}

// WithPostgres configures PostgreSQL as the database. Requires the pgvector
// and pg_trgm extensions to be installable.
func WithPostgres(dsn string) Option {
	return func(c *clientConfig) {
		c.database = databasePostgres
		c.dbDSN = dsn
	}
}

// WithRemoteEmbedding sets the remote embedding provider. Invalid
// configuration (missing key, unknown model) surfaces as an error from New.
func WithRemoteEmbedding(cfg provider.OpenAIConfig) Option {
	return func(c *clientConfig) {
		c.remoteCfg = &cfg
	}
}

// WithLocalEmbedding sets the local multilingual embedding provider, loading
// model files from modelDir.
func WithLocalEmbedding(modelDir string) Option {
	return func(c *clientConfig) {
		c.localModelDir = modelDir
	}
}

// WithEmbedder sets a custom embedding provider.
func WithEmbedder(e provider.Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = e
	}
}

// WithFetcher sets the upstream file fetcher used by FetchAndProcess.
func WithFetcher(f proposal.Fetcher) Option {
	return func(c *clientConfig) {
		c.fetcher = f
	}
}

// WithBatchSize sets the pipeline batch size. Values <= 0 are ignored.
func WithBatchSize(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithNormalizeWorkers bounds parallel normalization within a batch.
// Values <= 0 are ignored.
func WithNormalizeWorkers(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.normalizeWorkers = n
		}
	}
}

// WithLogger sets the logger. Defaults to a pretty stdout logger at INFO.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithDataDir sets the data directory used for default paths.
func WithDataDir(dir string) Option {
	return func(c *clientConfig) {
		c.dataDir = dir
	}
}
