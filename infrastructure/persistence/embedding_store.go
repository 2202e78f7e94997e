package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/arnavk-polka/onChain-Explorer/domain/proposal"
	"github.com/arnavk-polka/onChain-Explorer/internal/database"
)

// ErrDimensionMismatch indicates the embedding table was created for a
// different vector dimension than the configured provider produces. A run
// must abort before any writes; fixing it requires a migration, not a retry.
var ErrDimensionMismatch = errors.New("embedding table dimension mismatch")

// ErrEmbeddingNotFound indicates no embedding exists for the proposal.
var ErrEmbeddingNotFound = errors.New("embedding not found")

// ErrUnknownProposal indicates a vector references a proposal id that was
// never upserted. The item is rejected; the rest of the batch proceeds.
var ErrUnknownProposal = errors.New("unknown proposal id")

// ErrVectorDimension indicates a vector has the wrong number of elements
// for the table. The item is rejected; the rest of the batch proceeds.
var ErrVectorDimension = errors.New("wrong vector dimension")

// NewEmbeddingStore picks the store variant for the connected database.
// The dimension is fixed at construction and verified against any existing
// table before writes are accepted.
func NewEmbeddingStore(ctx context.Context, db database.Database, dimension int) (proposal.EmbeddingStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension %d", dimension)
	}
	if db.IsPostgres() {
		return newPgvectorEmbeddingStore(ctx, db, dimension)
	}
	return newSQLiteEmbeddingStore(ctx, db, dimension)
}

// partitionEmbeddings splits a batch into writable vectors and per-item
// rejections. existing holds the proposal ids known to the proposals table.
func partitionEmbeddings(embeddings []proposal.Embedding, dimension int, existing map[string]bool) ([]proposal.Embedding, []proposal.ItemFailure) {
	var ok []proposal.Embedding
	var failed []proposal.ItemFailure
	for _, e := range embeddings {
		switch {
		case e.Dimension() != dimension:
			failed = append(failed, proposal.NewItemFailure(e.ProposalID(),
				fmt.Errorf("%w: got %d, table expects %d", ErrVectorDimension, e.Dimension(), dimension)))
		case !existing[e.ProposalID()]:
			failed = append(failed, proposal.NewItemFailure(e.ProposalID(),
				fmt.Errorf("%w: %s", ErrUnknownProposal, e.ProposalID())))
		default:
			ok = append(ok, e)
		}
	}
	return ok, failed
}

func embeddingProposalIDs(embeddings []proposal.Embedding) []string {
	ids := make([]string, len(embeddings))
	for i, e := range embeddings {
		ids[i] = e.ProposalID()
	}
	return ids
}
