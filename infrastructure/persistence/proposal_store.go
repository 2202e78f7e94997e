package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnavk-polka/onChain-Explorer/domain/proposal"
	"github.com/arnavk-polka/onChain-Explorer/internal/database"
)

// ErrProposalNotFound indicates the requested proposal does not exist.
var ErrProposalNotFound = errors.New("proposal not found")

// ProposalStore persists proposals with merge-upsert semantics.
type ProposalStore struct {
	db     database.Database
	mapper ProposalMapper
	logger *slog.Logger
}

// NewProposalStore creates a ProposalStore.
func NewProposalStore(db database.Database, logger *slog.Logger) *ProposalStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProposalStore{db: db, logger: logger}
}

// mergeColumns are the nullable columns merged with COALESCE on conflict:
// an incoming NULL keeps the stored value, so a later feed that supplies
// fewer fields never erases previously-ingested detail.
var mergeColumns = []string{"title", "description", "proposer", "amount_numeric", "currency"}

// overwriteColumns always take the incoming value on conflict. created_at
// and search_document are deliberately absent: creation time is fixed at
// first ingestion, and search_document belongs to the full-text recomputer.
var overwriteColumns = []string{"network", "type", "status", "updated_at", "metadata"}

// UpsertBatch atomically merges the batch into the proposals table, keyed by
// id. In-batch duplicates keep the first occurrence. The result reports
// which ids had their title or description changed so the full-text
// recompute stays proportional to ingestion volume.
func (s *ProposalStore) UpsertBatch(ctx context.Context, proposals []proposal.Proposal) (proposal.UpsertResult, error) {
	if len(proposals) == 0 {
		return proposal.UpsertResult{}, nil
	}

	unique, deduplicated := dedupeByID(proposals)
	ids := make([]string, len(unique))
	for i, p := range unique {
		ids[i] = p.ID()
	}
	if deduplicated > 0 {
		s.logger.Warn("dropped duplicate proposal ids in batch", "count", deduplicated)
	}

	var textChanged []string
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		existing, err := loadTextFields(tx, ids)
		if err != nil {
			return err
		}

		models := make([]ProposalModel, len(unique))
		for i, p := range unique {
			models[i] = s.mapper.ToModel(p)
			if textFieldsChanged(models[i], existing) {
				textChanged = append(textChanged, p.ID())
			}
		}

		assignments := make(map[string]any, len(mergeColumns)+len(overwriteColumns))
		for _, col := range mergeColumns {
			assignments[col] = gorm.Expr(fmt.Sprintf("COALESCE(excluded.%s, proposals.%s)", col, col))
		}
		for _, col := range overwriteColumns {
			assignments[col] = gorm.Expr("excluded." + col)
		}

		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(assignments),
		}).Create(&models).Error
		if err != nil {
			return fmt.Errorf("upsert proposals: %w", err)
		}
		return nil
	})
	if err != nil {
		return proposal.UpsertResult{}, database.Classify(err)
	}

	return proposal.NewUpsertResult(ids, textChanged, deduplicated), nil
}

// RecomputeSearchDocuments rebuilds search_document for the given ids from
// their persisted title and description, in one transaction. Only ids the
// upsert flagged as text-changed should be passed here; the recompute is
// incremental by design.
func (s *ProposalStore) RecomputeSearchDocuments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		rows, err := loadTextFields(tx, ids)
		if err != nil {
			return err
		}
		for id, text := range rows {
			doc := BuildSearchDocument(deref(text.title), deref(text.description))
			err := tx.Model(&ProposalModel{}).
				Where("id = ?", id).
				Update("search_document", doc).Error
			if err != nil {
				return fmt.Errorf("update search_document for %s: %w", id, err)
			}
		}
		return nil
	})
	return database.Classify(err)
}

// ExistingIDs returns which of the given ids exist in the store.
func (s *ProposalStore) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	if len(ids) == 0 {
		return map[string]bool{}, nil
	}
	var found []string
	err := s.db.Session(ctx).
		Model(&ProposalModel{}).
		Where("id IN ?", ids).
		Pluck("id", &found).Error
	if err != nil {
		return nil, fmt.Errorf("check existing proposals: %w", database.Classify(err))
	}
	existing := make(map[string]bool, len(found))
	for _, id := range found {
		existing[id] = true
	}
	return existing, nil
}

// FindByID loads one proposal.
func (s *ProposalStore) FindByID(ctx context.Context, id string) (proposal.Proposal, error) {
	var model ProposalModel
	err := s.db.Session(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return proposal.Proposal{}, fmt.Errorf("%w: %s", ErrProposalNotFound, id)
	}
	if err != nil {
		return proposal.Proposal{}, fmt.Errorf("find proposal %s: %w", id, database.Classify(err))
	}
	return s.mapper.ToDomain(model), nil
}

// Count returns the number of persisted proposals.
func (s *ProposalStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.Session(ctx).Model(&ProposalModel{}).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count proposals: %w", database.Classify(err))
	}
	return count, nil
}

type textFields struct {
	title       *string
	description *string
}

func loadTextFields(tx *gorm.DB, ids []string) (map[string]textFields, error) {
	var rows []ProposalModel
	err := tx.Model(&ProposalModel{}).
		Select("id", "title", "description").
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load text fields: %w", err)
	}
	out := make(map[string]textFields, len(rows))
	for _, row := range rows {
		out[row.ID] = textFields{title: row.Title, description: row.Description}
	}
	return out, nil
}

// textFieldsChanged reports whether the incoming model changes the stored
// title or description. New rows count as changed when they carry any text.
// An incoming nil never changes anything because the merge keeps the stored
// value.
func textFieldsChanged(incoming ProposalModel, existing map[string]textFields) bool {
	stored, ok := existing[incoming.ID]
	if !ok {
		return incoming.Title != nil || incoming.Description != nil
	}
	if incoming.Title != nil && deref(incoming.Title) != deref(stored.title) {
		return true
	}
	if incoming.Description != nil && deref(incoming.Description) != deref(stored.description) {
		return true
	}
	return false
}

func dedupeByID(proposals []proposal.Proposal) ([]proposal.Proposal, int) {
	seen := make(map[string]bool, len(proposals))
	unique := make([]proposal.Proposal, 0, len(proposals))
	for _, p := range proposals {
		if seen[p.ID()] {
			continue
		}
		seen[p.ID()] = true
		unique = append(unique, p)
	}
	return unique, len(proposals) - len(unique)
}

var _ proposal.Store = (*ProposalStore)(nil)
