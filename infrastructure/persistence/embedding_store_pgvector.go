package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/arnavk-polka/onChain-Explorer/domain/proposal"
	"github.com/arnavk-polka/onChain-Explorer/internal/database"
)

type pgvectorEmbeddingStore struct {
	db        database.Database
	dimension int
}

func newPgvectorEmbeddingStore(ctx context.Context, db database.Database, dimension int) (*pgvectorEmbeddingStore, error) {
	store := &pgvectorEmbeddingStore{db: db, dimension: dimension}
	if err := store.migrate(ctx); err != nil {
		return nil, err
	}
	if err := store.verifyDimension(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// migrate creates the embedding table with a typed VECTOR column. GORM
// cannot express the type, the FK cascade, or the HNSW index, so the DDL is
// raw. Idempotent.
func (s *pgvectorEmbeddingStore) migrate(ctx context.Context) error {
	gdb := s.db.Session(ctx)
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS proposal_embeddings (
proposal_id TEXT PRIMARY KEY REFERENCES proposals(id) ON DELETE CASCADE,
embedding VECTOR(%d) NOT NULL
)`, s.dimension),
		`CREATE INDEX IF NOT EXISTS idx_proposal_embeddings_hnsw
ON proposal_embeddings USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range stmts {
		if err := gdb.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migrate embeddings: %w", database.Classify(err))
		}
	}
	return nil
}

// verifyDimension reads the declared dimension of the embedding column from
// the catalog. A mismatch means the table predates a provider change and the
// run must abort before any writes.
func (s *pgvectorEmbeddingStore) verifyDimension(ctx context.Context) error {
	var declared int
	err := s.db.Session(ctx).Raw(
		`SELECT atttypmod FROM pg_attribute
WHERE attrelid = 'proposal_embeddings'::regclass AND attname = 'embedding'`,
	).Scan(&declared).Error
	if err != nil {
		return fmt.Errorf("inspect embedding column: %w", database.Classify(err))
	}
	if declared != s.dimension {
		return fmt.Errorf("%w: table declares VECTOR(%d), provider produces %d",
			ErrDimensionMismatch, declared, s.dimension)
	}
	return nil
}

func (s *pgvectorEmbeddingStore) Dimension() int { return s.dimension }

// SaveAll upserts vectors keyed by proposal id. Wrong-length vectors and
// vectors for unknown proposals fail individually; the rest commit.
func (s *pgvectorEmbeddingStore) SaveAll(ctx context.Context, embeddings []proposal.Embedding) (proposal.EmbeddingWriteResult, error) {
	if len(embeddings) == 0 {
		return proposal.EmbeddingWriteResult{}, nil
	}

	var saved []string
	var failed []proposal.ItemFailure
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		existing, err := pluckExistingProposalIDs(tx, embeddingProposalIDs(embeddings))
		if err != nil {
			return err
		}

		writable, rejected := partitionEmbeddings(embeddings, s.dimension, existing)
		failed = rejected

		for _, e := range writable {
			vector := database.NewPgVector(e.Vector())
			err := tx.Exec(
				`INSERT INTO proposal_embeddings (proposal_id, embedding) VALUES (?, ?)
ON CONFLICT (proposal_id) DO UPDATE SET embedding = excluded.embedding`,
				e.ProposalID(), vector,
			).Error
			if err != nil {
				return fmt.Errorf("upsert embedding %s: %w", e.ProposalID(), err)
			}
			saved = append(saved, e.ProposalID())
		}
		return nil
	})
	if err != nil {
		return proposal.EmbeddingWriteResult{}, database.Classify(err)
	}
	return proposal.NewEmbeddingWriteResult(saved, failed), nil
}

func (s *pgvectorEmbeddingStore) FindByProposalID(ctx context.Context, proposalID string) (proposal.Embedding, error) {
	var row struct {
		ProposalID string
		Embedding  database.PgVector
	}
	err := s.db.Session(ctx).Raw(
		`SELECT proposal_id, embedding FROM proposal_embeddings WHERE proposal_id = ?`,
		proposalID,
	).Scan(&row).Error
	if err != nil {
		return proposal.Embedding{}, fmt.Errorf("find embedding %s: %w", proposalID, database.Classify(err))
	}
	if row.ProposalID == "" {
		return proposal.Embedding{}, fmt.Errorf("%w: %s", ErrEmbeddingNotFound, proposalID)
	}
	return proposal.NewEmbedding(row.ProposalID, row.Embedding.Floats()), nil
}

func (s *pgvectorEmbeddingStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.Session(ctx).Raw(`SELECT count(*) FROM proposal_embeddings`).Scan(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count embeddings: %w", database.Classify(err))
	}
	return count, nil
}

var _ proposal.EmbeddingStore = (*pgvectorEmbeddingStore)(nil)
