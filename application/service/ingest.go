// Package service orchestrates the ingestion pipeline.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/arnavk-polka/onChain-Explorer/domain/pipeline"
	"github.com/arnavk-polka/onChain-Explorer/domain/proposal"
	"github.com/arnavk-polka/onChain-Explorer/infrastructure/loader"
	"github.com/arnavk-polka/onChain-Explorer/infrastructure/normalize"
	"github.com/arnavk-polka/onChain-Explorer/infrastructure/persistence"
	"github.com/arnavk-polka/onChain-Explorer/infrastructure/provider"
	"github.com/arnavk-polka/onChain-Explorer/internal/database"
	"github.com/arnavk-polka/onChain-Explorer/internal/log"
)

// IngestService drives batches through load → normalize → upsert →
// full-text recompute → embed → write. Batches fail independently;
// a structural failure (store gone, dimension mismatch) aborts the run.
type IngestService struct {
	loader           *loader.Loader
	store            proposal.Store
	embeddings       proposal.EmbeddingStore
	embedder         provider.Embedder
	normalizeWorkers int
	logger           *slog.Logger
}

// NewIngest creates an IngestService.
func NewIngest(
	ldr *loader.Loader,
	store proposal.Store,
	embeddings proposal.EmbeddingStore,
	embedder provider.Embedder,
	normalizeWorkers int,
	logger *slog.Logger,
) (*IngestService, error) {
	if ldr == nil {
		return nil, errors.New("NewIngest: nil loader")
	}
	if store == nil {
		return nil, errors.New("NewIngest: nil store")
	}
	if embeddings == nil {
		return nil, errors.New("NewIngest: nil embedding store")
	}
	if embedder == nil {
		return nil, errors.New("NewIngest: nil embedder")
	}
	if normalizeWorkers <= 0 {
		normalizeWorkers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestService{
		loader:           ldr,
		store:            store,
		embeddings:       embeddings,
		embedder:         embedder,
		normalizeWorkers: normalizeWorkers,
		logger:           logger,
	}, nil
}

// Run processes the given input files. Files and batches fail independently;
// the returned report records every outcome. A non-nil error means the run
// aborted structurally and the report is partial; committed batches remain
// valid either way.
func (s *IngestService) Run(ctx context.Context, files []string) (*pipeline.RunReport, error) {
	runID := uuid.NewString()
	logger := log.WithRun(s.logger, runID)
	report := pipeline.NewRunReport(runID, time.Now().UTC())
	defer func() { report.FinishedAt = time.Now().UTC() }()

	// The embedding table dimension is fixed; a provider change requires a
	// migration, not a half-written run.
	if s.embedder.Dimension() != s.embeddings.Dimension() {
		report.Fatal = fmt.Errorf("%w: provider %s produces %d, table expects %d",
			persistence.ErrDimensionMismatch, s.embedder.Model(),
			s.embedder.Dimension(), s.embeddings.Dimension())
		return report, report.Fatal
	}

	logger.Info("run started", "files", len(files), "model", s.embedder.Model())

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			report.Fatal = err
			return report, err
		}

		fileReport := report.FileReport(file)
		batchIndex := 0

		err := s.loader.Load(file, func(batch []proposal.RawRecord) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			batchReport := pipeline.NewBatchReport(file, batchIndex)
			batchIndex++
			fileReport.Batches = append(fileReport.Batches, batchReport)
			return s.processBatch(ctx, log.WithBatch(logger, file, batchReport.Index), batch, batchReport)
		})
		if err != nil {
			// A dead store aborts the run, and so does any context error:
			// cancellation and deadline expiry alike.
			if errors.Is(err, database.ErrStoreUnavailable) || ctx.Err() != nil {
				report.Fatal = err
				logger.Error("run aborted", "error", err)
				return report, err
			}
			// Unreadable file: fatal for the file, not the run.
			fileReport.Fatal = err
			logger.Error("file failed to load", "file", file, "error", err)
			continue
		}
		logger.Info("file done", "file", file,
			"succeeded", fileReport.Succeeded(),
			"skipped", fileReport.Skipped(),
			"failed", fileReport.Failed())
	}

	logger.Info("run finished",
		"files", len(report.Files),
		"failed_batches", len(report.FailedBatches()))
	return report, nil
}

// processBatch takes one batch through every stage. Returning an error
// aborts the whole file; per-batch and per-item failures are recorded in the
// report instead.
func (s *IngestService) processBatch(ctx context.Context, logger *slog.Logger, batch []proposal.RawRecord, report *pipeline.BatchReport) error {
	report.Loaded = len(batch)

	proposals := s.normalizeBatch(ctx, logger, batch, report)
	report.State = report.State.Advance() // normalized
	if len(proposals) == 0 {
		// Nothing survived normalization; the batch is trivially done.
		for !report.State.Done() {
			report.State = report.State.Advance()
		}
		return nil
	}

	ids := make([]string, len(proposals))
	for i, p := range proposals {
		ids[i] = p.ID()
	}
	existing, err := s.store.ExistingIDs(ctx, ids)
	if err != nil {
		if errors.Is(err, database.ErrStoreUnavailable) {
			return err
		}
		report.State = report.State.Fail(err)
		logger.Error("batch lookup failed", "error", err)
		return nil
	}

	result, err := s.store.UpsertBatch(ctx, proposals)
	if err != nil {
		if errors.Is(err, database.ErrStoreUnavailable) {
			return err
		}
		report.State = report.State.Fail(err)
		logger.Error("batch upsert failed", "error", err)
		return nil
	}
	for _, id := range result.Written() {
		if existing[id] {
			report.Updated++
		} else {
			report.Inserted++
		}
	}
	report.TextChanged = len(result.TextChanged())
	report.Deduplicated = result.Deduplicated()
	report.Skipped += result.Deduplicated()
	report.State = report.State.Advance() // upserted

	if err := s.store.RecomputeSearchDocuments(ctx, result.TextChanged()); err != nil {
		if errors.Is(err, database.ErrStoreUnavailable) {
			return err
		}
		report.State = report.State.Fail(err)
		logger.Error("search document recompute failed", "error", err)
		return nil
	}
	report.State = report.State.Advance() // text indexed

	embedded, err := s.embedBatch(ctx, logger, proposals, report)
	if err != nil {
		return err
	}
	report.State = report.State.Advance() // embedded
	report.EmbeddedIDs = embedded
	report.State = report.State.Advance() // done
	report.Succeeded = len(proposals) - len(report.FailedItems)

	logger.Debug("batch done",
		"loaded", report.Loaded,
		"succeeded", report.Succeeded,
		"inserted", report.Inserted,
		"updated", report.Updated,
		"embedded", len(embedded),
		"text_changed", report.TextChanged)
	return nil
}

// normalizeBatch fans normalization out over a bounded worker pool, keeping
// input order. Malformed records are dropped with a warning; they never
// fail the batch.
func (s *IngestService) normalizeBatch(ctx context.Context, logger *slog.Logger, batch []proposal.RawRecord, report *pipeline.BatchReport) []proposal.Proposal {
	ingestedAt := time.Now().UTC()

	type outcome struct {
		p        proposal.Proposal
		warnings []string
		err      error
	}
	outcomes := make([]outcome, len(batch))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.normalizeWorkers)
	for i, raw := range batch {
		g.Go(func() error {
			p, warnings, err := normalize.Record(raw, ingestedAt)
			outcomes[i] = outcome{p: p, warnings: warnings, err: err}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures are per-record

	var proposals []proposal.Proposal
	for i, out := range outcomes {
		if out.err != nil {
			id := batch[i].String("id")
			if id == "" {
				id = fmt.Sprintf("record#%d", i)
			}
			report.DroppedIDs = append(report.DroppedIDs, id)
			report.Skipped++
			logger.Warn("dropping malformed record", "record", id, "error", out.err)
			continue
		}
		for _, w := range out.warnings {
			logger.Warn("normalization fallback", "record", out.p.ID(), "detail", w)
		}
		proposals = append(proposals, out.p)
	}
	return proposals
}

// embedBatch embeds the batch in provider-capacity sub-batches, fanned out
// to the provider's parallelism, then writes the vectors. A failed sub-batch
// fails only its own items; a store loss aborts.
func (s *IngestService) embedBatch(ctx context.Context, logger *slog.Logger, proposals []proposal.Proposal, report *pipeline.BatchReport) ([]string, error) {
	var embeddable []proposal.Proposal
	for _, p := range proposals {
		if p.EmbeddingText() == "" {
			report.Skipped++
			logger.Debug("no embeddable text", "record", p.ID())
			continue
		}
		embeddable = append(embeddable, p)
	}
	if len(embeddable) == 0 {
		return nil, nil
	}

	capacity := s.embedder.Capacity()
	if capacity <= 0 {
		capacity = provider.DefaultBatchSize
	}

	type subBatch struct {
		items   []proposal.Proposal
		vectors [][]float64
		err     error
	}
	var subBatches []*subBatch
	for start := 0; start < len(embeddable); start += capacity {
		end := min(start+capacity, len(embeddable))
		subBatches = append(subBatches, &subBatch{items: embeddable[start:end]})
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.embedder.Parallelism(), 1))
	for _, sb := range subBatches {
		g.Go(func() error {
			texts := make([]string, len(sb.items))
			for i, p := range sb.items {
				texts[i] = p.EmbeddingText()
			}
			vectors, err := s.embedder.Embed(gctx, texts)
			mu.Lock()
			defer mu.Unlock()
			sb.vectors, sb.err = vectors, err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var toWrite []proposal.Embedding
	for _, sb := range subBatches {
		if sb.err != nil {
			for _, p := range sb.items {
				report.RecordItemFailure(p.ID(), fmt.Sprintf("embed: %v", sb.err))
			}
			logger.Warn("embedding sub-batch failed", "items", len(sb.items), "error", sb.err)
			continue
		}
		for i, p := range sb.items {
			toWrite = append(toWrite, proposal.NewEmbedding(p.ID(), sb.vectors[i]))
		}
	}
	if len(toWrite) == 0 {
		return nil, nil
	}

	result, err := s.embeddings.SaveAll(ctx, toWrite)
	if err != nil {
		if errors.Is(err, database.ErrStoreUnavailable) {
			return nil, err
		}
		for _, e := range toWrite {
			report.RecordItemFailure(e.ProposalID(), fmt.Sprintf("save embedding: %v", err))
		}
		logger.Error("embedding write failed", "error", err)
		return nil, nil
	}
	for _, f := range result.Failed() {
		report.RecordItemFailure(f.ProposalID(), f.Err().Error())
		logger.Warn("embedding rejected", "record", f.ProposalID(), "error", f.Err())
	}
	return result.Saved(), nil
}
