package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	explorer "github.com/arnavk-polka/onChain-Explorer"
	"github.com/arnavk-polka/onChain-Explorer/internal/config"
)

func ingestCmd() *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Ingest proposal feed files",
		Long: `Ingest one or more proposal feed files (JSON or CSV).

Configuration is loaded from the environment (and a .env file if present):

  EXPLORER_DB_URL                       Database URL (default: sqlite in data dir)
  EXPLORER_DATA_DIR                     Data directory (default: ~/.onchain-explorer)
  EXPLORER_LOG_LEVEL                    DEBUG, INFO, WARN, ERROR (default: INFO)
  EXPLORER_LOG_FORMAT                   pretty, json (default: pretty)
  EXPLORER_BATCH_SIZE                   Records per batch (default: 100)
  EXPLORER_NORMALIZE_WORKERS            Parallel normalization bound (default: per CPU)

  EXPLORER_EMBEDDING_PROVIDER           remote-small, remote-large, local-multilingual
  EXPLORER_EMBEDDING_API_KEY            Remote provider credential (never logged)
  EXPLORER_EMBEDDING_BASE_URL           Remote service base URL override
  EXPLORER_EMBEDDING_TIMEOUT            Per-request timeout (default: 30s)
  EXPLORER_EMBEDDING_MAX_RETRIES        Retry bound (default: 5)
  EXPLORER_EMBEDDING_REQUESTS_PER_MINUTE  Rate limit (default: 3000)
  EXPLORER_EMBEDDING_PARALLELISM        Concurrent sub-batches (default: 4)
  EXPLORER_EMBEDDING_MODEL_DIR          Local model directory
  EXPLORER_EMBEDDING_HTTP_CACHE_DIR     On-disk HTTP response cache`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(args, batchSize)
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Records per batch (overrides EXPLORER_BATCH_SIZE)")

	return cmd
}

func runIngest(files []string, batchSize int) error {
	cfg, err := config.LoadEnv()
	if err != nil {
		return err
	}

	var opts []explorer.Option
	if batchSize > 0 {
		opts = append(opts, explorer.WithBatchSize(batchSize))
	}

	client, err := explorer.NewFromConfig(cfg, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, runErr := client.Process(ctx, files...)
	if report != nil {
		fmt.Print(report.Summary())
	}
	if runErr != nil {
		return fmt.Errorf("run aborted: %w", runErr)
	}
	if report != nil && len(report.FailedBatches()) > 0 {
		return errors.New("run completed with failed batches")
	}
	return nil
}
