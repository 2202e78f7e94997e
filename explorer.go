// Package explorer provides a library for ingesting governance proposals
// into a searchable store.
//
// The pipeline loads batched JSON/CSV feeds, normalizes them into canonical
// proposals, merge-upserts them, maintains a full-text search document per
// row, and embeds proposal text with a remote or local provider.
//
// Basic usage:
//
//	client, err := explorer.New(
//	    explorer.WithSQLite(".explorer/data.db"),
//	    explorer.WithRemoteEmbedding(provider.OpenAIConfig{
//	        APIKey: os.Getenv("EXPLORER_EMBEDDING_API_KEY"),
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	report, err := client.Process(ctx, "proposals_polkadot.json")
//	fmt.Print(report.Summary())
package explorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/arnavk-polka/onChain-Explorer/application/service"
	"github.com/arnavk-polka/onChain-Explorer/domain/pipeline"
	"github.com/arnavk-polka/onChain-Explorer/domain/proposal"
	"github.com/arnavk-polka/onChain-Explorer/infrastructure/loader"
	"github.com/arnavk-polka/onChain-Explorer/infrastructure/persistence"
	"github.com/arnavk-polka/onChain-Explorer/infrastructure/provider"
	"github.com/arnavk-polka/onChain-Explorer/internal/config"
	"github.com/arnavk-polka/onChain-Explorer/internal/database"
	"github.com/arnavk-polka/onChain-Explorer/internal/log"
)

// ErrNoFetcher indicates FetchAndProcess was called without a configured
// fetcher.
var ErrNoFetcher = errors.New("no fetcher configured")

// Client is the main entry point for the explorer library.
type Client struct {
	db         database.Database
	store      proposal.Store
	embeddings proposal.EmbeddingStore
	embedder   provider.Embedder
	ingest     *service.IngestService
	fetcher    proposal.Fetcher
	logger     *slog.Logger
}

// New creates a Client. At minimum a database and an embedding provider must
// be configured.
func New(opts ...Option) (*Client, error) {
	cfg := newClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = log.New(log.FormatPretty, config.DefaultLogLevel)
	}

	embedder, err := resolveEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	dbURL, err := resolveDatabaseURL(cfg)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	db, err := database.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := persistence.AutoMigrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := persistence.NewProposalStore(db, logger)
	embeddings, err := persistence.NewEmbeddingStore(ctx, db, embedder.Dimension())
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	ldr, err := loader.New(cfg.batchSize, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	ingest, err := service.NewIngest(ldr, store, embeddings, embedder, cfg.normalizeWorkers, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Client{
		db:         db,
		store:      store,
		embeddings: embeddings,
		embedder:   embedder,
		ingest:     ingest,
		fetcher:    cfg.fetcher,
		logger:     logger,
	}, nil
}

// NewFromConfig creates a Client from environment-resolved configuration.
func NewFromConfig(appCfg config.AppConfig, opts ...Option) (*Client, error) {
	base := []Option{
		WithDataDir(appCfg.DataDir()),
		WithBatchSize(appCfg.BatchSize()),
		WithNormalizeWorkers(appCfg.NormalizeWorkers()),
		WithLogger(log.New(log.Format(appCfg.LogFormat()), appCfg.LogLevel())),
	}

	if appCfg.DBURL() != "" {
		if strings.HasPrefix(appCfg.DBURL(), "sqlite:///") {
			base = append(base, WithSQLite(strings.TrimPrefix(appCfg.DBURL(), "sqlite:///")))
		} else {
			base = append(base, WithPostgres(appCfg.DBURL()))
		}
	}

	emb := appCfg.Embedding()
	switch emb.Provider() {
	case config.ProviderLocalMultilingual:
		base = append(base, WithLocalEmbedding(emb.ModelDir()))
	default:
		model := provider.ModelRemoteSmall
		if emb.Provider() == config.ProviderRemoteLarge {
			model = provider.ModelRemoteLarge
		}
		var transport http.RoundTripper
		if emb.HTTPCacheDir() != "" {
			transport = provider.NewCachingTransport(emb.HTTPCacheDir(), nil)
		}
		base = append(base, WithRemoteEmbedding(provider.OpenAIConfig{
			APIKey:            emb.APIKey(),
			BaseURL:           emb.BaseURL(),
			Model:             model,
			Timeout:           emb.Timeout(),
			MaxRetries:        emb.MaxRetries(),
			RequestsPerMinute: emb.RequestsPerMinute(),
			Parallelism:       emb.Parallelism(),
			Transport:         transport,
		}))
	}

	return New(append(base, opts...)...)
}

// Process runs the ingestion pipeline over the given input files and
// returns the run report. A non-nil error means the run aborted on a
// structural failure; record-level and batch-level issues are in the report.
func (c *Client) Process(ctx context.Context, files ...string) (*pipeline.RunReport, error) {
	return c.ingest.Run(ctx, files)
}

// FetchAndProcess fetches input files from the configured upstream fetcher
// and processes them.
func (c *Client) FetchAndProcess(ctx context.Context) (*pipeline.RunReport, error) {
	if c.fetcher == nil {
		return nil, ErrNoFetcher
	}
	files, err := c.fetcher.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch input files: %w", err)
	}
	return c.Process(ctx, files...)
}

// Proposals returns the proposal store, for querying ingested data.
func (c *Client) Proposals() proposal.Store { return c.store }

// Embeddings returns the embedding store.
func (c *Client) Embeddings() proposal.EmbeddingStore { return c.embeddings }

// Close releases the provider and the database connection.
func (c *Client) Close() error {
	var errs []error
	if c.embedder != nil {
		if err := c.embedder.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func resolveEmbedder(cfg *clientConfig) (provider.Embedder, error) {
	switch {
	case cfg.embedder != nil:
		return cfg.embedder, nil
	case cfg.remoteCfg != nil:
		return provider.NewOpenAIEmbedding(*cfg.remoteCfg)
	case cfg.localModelDir != "":
		return provider.NewHugotEmbedding(cfg.localModelDir), nil
	default:
		return nil, errors.New("no embedding provider configured")
	}
}

func resolveDatabaseURL(cfg *clientConfig) (string, error) {
	switch cfg.database {
	case databaseSQLite:
		return "sqlite:///" + cfg.dbPath, nil
	case databasePostgres:
		return cfg.dbDSN, nil
	default:
		return "sqlite:///" + filepath.Join(cfg.dataDir, "explorer.db"), nil
	}
}
