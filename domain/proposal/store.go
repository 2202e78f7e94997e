package proposal

import "context"

// UpsertResult reports what an upsert batch changed.
type UpsertResult struct {
	written      []string
	textChanged  []string
	deduplicated int
}

// NewUpsertResult creates an UpsertResult.
func NewUpsertResult(written, textChanged []string, deduplicated int) UpsertResult {
	return UpsertResult{
		written:      append([]string(nil), written...),
		textChanged:  append([]string(nil), textChanged...),
		deduplicated: deduplicated,
	}
}

// Written returns the ids committed by the batch.
func (r UpsertResult) Written() []string {
	return append([]string(nil), r.written...)
}

// TextChanged returns the ids whose title or description changed, i.e. the
// incremental work list for the full-text recomputer.
func (r UpsertResult) TextChanged() []string {
	return append([]string(nil), r.textChanged...)
}

// Deduplicated returns how many in-batch duplicate ids were dropped.
func (r UpsertResult) Deduplicated() int { return r.deduplicated }

// Store persists proposals.
type Store interface {
	// UpsertBatch atomically merges the batch into the store keyed by id.
	// Non-null incoming columns overwrite; absent columns keep their stored
	// values. Re-running an identical batch is a no-op on stored state.
	UpsertBatch(ctx context.Context, proposals []Proposal) (UpsertResult, error)

	// RecomputeSearchDocuments rebuilds search_document for the given ids
	// from their persisted title and description, in one transaction.
	RecomputeSearchDocuments(ctx context.Context, ids []string) error

	// ExistingIDs returns which of the given ids exist in the store.
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)

	// FindByID loads one proposal.
	FindByID(ctx context.Context, id string) (Proposal, error)

	// Count returns the number of persisted proposals.
	Count(ctx context.Context) (int64, error)
}

// ItemFailure records a single rejected embedding write.
type ItemFailure struct {
	proposalID string
	err        error
}

// NewItemFailure creates an ItemFailure.
func NewItemFailure(proposalID string, err error) ItemFailure {
	return ItemFailure{proposalID: proposalID, err: err}
}

// ProposalID returns the rejected item's proposal id.
func (f ItemFailure) ProposalID() string { return f.proposalID }

// Err returns the rejection reason.
func (f ItemFailure) Err() error { return f.err }

// EmbeddingWriteResult reports a SaveAll outcome: which vectors were written
// and which items were rejected without failing the batch.
type EmbeddingWriteResult struct {
	saved  []string
	failed []ItemFailure
}

// NewEmbeddingWriteResult creates an EmbeddingWriteResult.
func NewEmbeddingWriteResult(saved []string, failed []ItemFailure) EmbeddingWriteResult {
	return EmbeddingWriteResult{
		saved:  append([]string(nil), saved...),
		failed: append([]ItemFailure(nil), failed...),
	}
}

// Saved returns the proposal ids whose vectors were written.
func (r EmbeddingWriteResult) Saved() []string {
	return append([]string(nil), r.saved...)
}

// Failed returns the rejected items.
func (r EmbeddingWriteResult) Failed() []ItemFailure {
	return append([]ItemFailure(nil), r.failed...)
}

// EmbeddingStore persists proposal embeddings.
type EmbeddingStore interface {
	// Dimension returns the fixed vector dimension of the table.
	Dimension() int

	// SaveAll upserts vectors keyed by proposal id. A vector of the wrong
	// length or referencing a missing proposal fails that item only; the
	// returned error is reserved for structural failures.
	SaveAll(ctx context.Context, embeddings []Embedding) (EmbeddingWriteResult, error)

	// FindByProposalID loads one embedding.
	FindByProposalID(ctx context.Context, proposalID string) (Embedding, error)

	// Count returns the number of persisted embeddings.
	Count(ctx context.Context) (int64, error)
}

// Fetcher obtains input files from the upstream governance API. It is an
// external collaborator; this pipeline only consumes the files it produces.
type Fetcher interface {
	Fetch(ctx context.Context) ([]string, error)
}
