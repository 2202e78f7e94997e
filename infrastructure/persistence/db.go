package persistence

import (
	"context"
	"fmt"

	"github.com/arnavk-polka/onChain-Explorer/internal/database"
)

// AutoMigrate creates or updates the proposals schema and, on PostgreSQL,
// the extensions and search indexes the query collaborator depends on.
// The embedding table is managed by the embedding store because its column
// dimension comes from the configured provider.
func AutoMigrate(ctx context.Context, db database.Database) error {
	if err := db.Session(ctx).AutoMigrate(&ProposalModel{}); err != nil {
		return fmt.Errorf("migrate proposals: %w", database.Classify(err))
	}
	return postMigrate(ctx, db)
}

// postMigrate creates the PostgreSQL search indexes GORM cannot express:
// a GIN tsvector expression index over search_document for full-text
// predicates and trigram indexes over title and proposer for fuzzy matching.
// Idempotent; safe to run on every startup.
func postMigrate(ctx context.Context, db database.Database) error {
	if !db.IsPostgres() {
		return nil
	}

	gdb := db.Session(ctx)

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS pg_trgm`,
		`CREATE INDEX IF NOT EXISTS idx_proposals_search_document
ON proposals USING gin (to_tsvector('simple', coalesce(search_document, '')))`,
		`CREATE INDEX IF NOT EXISTS idx_proposals_title_trgm
ON proposals USING gin (title gin_trgm_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_proposals_proposer_trgm
ON proposals USING gin (proposer gin_trgm_ops)`,
	}
	for _, stmt := range stmts {
		if err := gdb.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create search index: %w", database.Classify(err))
		}
	}
	return nil
}
