package persistence

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnavk-polka/onChain-Explorer/domain/proposal"
	"github.com/arnavk-polka/onChain-Explorer/internal/database"
)

// Float64Slice stores a vector as a JSON array in a TEXT column. SQLite has
// no vector type; this keeps the store runnable in tests and local setups.
type Float64Slice []float64

// Scan implements sql.Scanner.
func (f *Float64Slice) Scan(value any) error {
	if value == nil {
		*f = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Float64Slice", value)
	}
	return json.Unmarshal(raw, f)
}

// Value implements driver.Valuer.
func (f Float64Slice) Value() (driver.Value, error) {
	return json.Marshal(f)
}

// EmbeddingModel is the GORM model for the proposal_embeddings table on
// SQLite. One vector per proposal; re-embedding replaces in place.
type EmbeddingModel struct {
	ProposalID string       `gorm:"column:proposal_id;primaryKey"`
	Embedding  Float64Slice `gorm:"column:embedding;type:text;not null"`
}

// TableName implements the GORM table-name convention.
func (EmbeddingModel) TableName() string { return "proposal_embeddings" }

type sqliteEmbeddingStore struct {
	db        database.Database
	dimension int
}

func newSQLiteEmbeddingStore(ctx context.Context, db database.Database, dimension int) (*sqliteEmbeddingStore, error) {
	if err := db.Session(ctx).AutoMigrate(&EmbeddingModel{}); err != nil {
		return nil, fmt.Errorf("migrate embeddings: %w", database.Classify(err))
	}
	store := &sqliteEmbeddingStore{db: db, dimension: dimension}
	if err := store.verifyDimension(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// verifyDimension checks stored vectors against the configured dimension.
// SQLite has no typed column to inspect, so an arbitrary existing row stands
// in for the table's dimension.
func (s *sqliteEmbeddingStore) verifyDimension(ctx context.Context) error {
	var model EmbeddingModel
	err := s.db.Session(ctx).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("inspect embeddings: %w", database.Classify(err))
	}
	if len(model.Embedding) != s.dimension {
		return fmt.Errorf("%w: table holds %d-dim vectors, provider produces %d",
			ErrDimensionMismatch, len(model.Embedding), s.dimension)
	}
	return nil
}

func (s *sqliteEmbeddingStore) Dimension() int { return s.dimension }

// SaveAll upserts vectors keyed by proposal id. Wrong-length vectors and
// vectors for unknown proposals fail individually; the rest commit.
func (s *sqliteEmbeddingStore) SaveAll(ctx context.Context, embeddings []proposal.Embedding) (proposal.EmbeddingWriteResult, error) {
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
		if len(writable) == 0 {
			return nil
		}

		models := make([]EmbeddingModel, len(writable))
		for i, e := range writable {
			models[i] = EmbeddingModel{
				ProposalID: e.ProposalID(),
				Embedding:  Float64Slice(e.Vector()),
			}
			saved = append(saved, e.ProposalID())
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "proposal_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"embedding"}),
		}).Create(&models).Error
		if err != nil {
			return fmt.Errorf("upsert embeddings: %w", err)
		}
		return nil
	})
	if err != nil {
		return proposal.EmbeddingWriteResult{}, database.Classify(err)
	}
	return proposal.NewEmbeddingWriteResult(saved, failed), nil
}

func (s *sqliteEmbeddingStore) FindByProposalID(ctx context.Context, proposalID string) (proposal.Embedding, error) {
	var model EmbeddingModel
	err := s.db.Session(ctx).First(&model, "proposal_id = ?", proposalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return proposal.Embedding{}, fmt.Errorf("%w: %s", ErrEmbeddingNotFound, proposalID)
	}
	if err != nil {
		return proposal.Embedding{}, fmt.Errorf("find embedding %s: %w", proposalID, database.Classify(err))
	}
	return proposal.NewEmbedding(model.ProposalID, model.Embedding), nil
}

func (s *sqliteEmbeddingStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.Session(ctx).Model(&EmbeddingModel{}).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count embeddings: %w", database.Classify(err))
	}
	return count, nil
}

func pluckExistingProposalIDs(tx *gorm.DB, ids []string) (map[string]bool, error) {
	var found []string
	err := tx.Model(&ProposalModel{}).Where("id IN ?", ids).Pluck("id", &found).Error
	if err != nil {
		return nil, fmt.Errorf("check proposal ids: %w", err)
	}
	existing := make(map[string]bool, len(found))
	for _, id := range found {
		existing[id] = true
	}
	return existing, nil
}

var _ proposal.EmbeddingStore = (*sqliteEmbeddingStore)(nil)
