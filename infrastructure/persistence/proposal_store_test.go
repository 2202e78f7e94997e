package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/arnavk-polka/onChain-Explorer/domain/proposal"
	"github.com/arnavk-polka/onChain-Explorer/internal/database"
)

// newTestDB creates an in-memory SQLite database for testing.
// Cannot use the testdb package here due to import cycle (testdb imports
// persistence).
func newTestDB(t *testing.T) database.Database {
	t.Helper()
	ctx := context.Background()
	db, err := database.New(ctx, "sqlite:///:memory:")
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(ctx, db))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

var testCreatedAt = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func makeProposal(id, title, description string, amount string) proposal.Proposal {
	amt := decimal.NullDecimal{}
	if amount != "" {
		d, _ := decimal.NewFromString(amount)
		amt = decimal.NewNullDecimal(d)
	}
	return proposal.NewProposal(
		id, proposal.NetworkPolkadot, proposal.TypeTreasuryProposal,
		title, description, "5Grw...",
		amt, "DOT", "pending",
		testCreatedAt, testCreatedAt,
		map[string]any{"hash": "0xabc"},
	)
}

func TestProposalStore_UpsertAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewProposalStore(newTestDB(t), nil)

	p := makeProposal("polkadot_1", "Title", "Desc", "100")
	result, err := store.UpsertBatch(ctx, []proposal.Proposal{p})
	require.NoError(t, err)
	require.Equal(t, []string{"polkadot_1"}, result.Written())
	require.Equal(t, []string{"polkadot_1"}, result.TextChanged())
	require.Zero(t, result.Deduplicated())

	got, err := store.FindByID(ctx, "polkadot_1")
	require.NoError(t, err)
	require.Equal(t, "Title", got.Title())
	require.Equal(t, "Desc", got.Description())
	require.True(t, got.Amount().Valid)
	require.Equal(t, "100", got.Amount().Decimal.String())
	require.Equal(t, map[string]any{"hash": "0xabc"}, got.Metadata())
}

func TestProposalStore_UpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewProposalStore(newTestDB(t), nil)

	p := makeProposal("polkadot_1", "Title", "Desc", "100")
	_, err := store.UpsertBatch(ctx, []proposal.Proposal{p})
	require.NoError(t, err)

	// Re-running the identical batch changes nothing and flags no text.
	result, err := store.UpsertBatch(ctx, []proposal.Proposal{p})
	require.NoError(t, err)
	require.Empty(t, result.TextChanged())

	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestProposalStore_MergeKeepsStoredFields(t *testing.T) {
	ctx := context.Background()
	store := NewProposalStore(newTestDB(t), nil)

	withTitle := makeProposal("polkadot_1", "Original title", "", "")
	_, err := store.UpsertBatch(ctx, []proposal.Proposal{withTitle})
	require.NoError(t, err)

	// Second feed carries the amount but no title; the title survives.
	withAmount := makeProposal("polkadot_1", "", "", "5")
	_, err = store.UpsertBatch(ctx, []proposal.Proposal{withAmount})
	require.NoError(t, err)

	got, err := store.FindByID(ctx, "polkadot_1")
	require.NoError(t, err)
	require.Equal(t, "Original title", got.Title())
	require.True(t, got.Amount().Valid)
	require.Equal(t, "5", got.Amount().Decimal.String())
}

func TestProposalStore_CreatedAtFixedAtFirstIngestion(t *testing.T) {
	ctx := context.Background()
	store := NewProposalStore(newTestDB(t), nil)

	first := makeProposal("polkadot_1", "t", "", "")
	_, err := store.UpsertBatch(ctx, []proposal.Proposal{first})
	require.NoError(t, err)

	later := proposal.NewProposal(
		"polkadot_1", proposal.NetworkPolkadot, proposal.TypeTreasuryProposal,
		"t2", "", "", decimal.NullDecimal{}, "", "executed",
		testCreatedAt.Add(48*time.Hour), testCreatedAt.Add(48*time.Hour),
		nil,
	)
	_, err = store.UpsertBatch(ctx, []proposal.Proposal{later})
	require.NoError(t, err)

	got, err := store.FindByID(ctx, "polkadot_1")
	require.NoError(t, err)
	require.True(t, testCreatedAt.Equal(got.CreatedAt()), "created_at must not move on conflict")
	require.Equal(t, "executed", got.Status())
}

func TestProposalStore_InBatchDuplicatesKeepFirst(t *testing.T) {
	ctx := context.Background()
	store := NewProposalStore(newTestDB(t), nil)

	first := makeProposal("polkadot_1", "first", "", "")
	second := makeProposal("polkadot_1", "second", "", "")
	result, err := store.UpsertBatch(ctx, []proposal.Proposal{first, second})
	require.NoError(t, err)
	require.Equal(t, 1, result.Deduplicated())

	got, err := store.FindByID(ctx, "polkadot_1")
	require.NoError(t, err)
	require.Equal(t, "first", got.Title())
}

func TestProposalStore_TextChangeFlags(t *testing.T) {
	ctx := context.Background()
	store := NewProposalStore(newTestDB(t), nil)

	_, err := store.UpsertBatch(ctx, []proposal.Proposal{
		makeProposal("polkadot_1", "stable", "stable", ""),
		makeProposal("polkadot_2", "old", "old", ""),
	})
	require.NoError(t, err)

	result, err := store.UpsertBatch(ctx, []proposal.Proposal{
		makeProposal("polkadot_1", "stable", "stable", ""),
		makeProposal("polkadot_2", "new title", "old", ""),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"polkadot_2"}, result.TextChanged())
}

func TestProposalStore_RecomputeSearchDocuments(t *testing.T) {
	ctx := context.Background()
	store := NewProposalStore(newTestDB(t), nil)

	p := makeProposal("polkadot_1", "Fund the bridge!", "With  $5m, please.", "")
	result, err := store.UpsertBatch(ctx, []proposal.Proposal{p})
	require.NoError(t, err)

	require.NoError(t, store.RecomputeSearchDocuments(ctx, result.TextChanged()))

	got, err := store.FindByID(ctx, "polkadot_1")
	require.NoError(t, err)
	require.Equal(t, "Fund the bridge With 5m please", got.SearchDocument())
}

func TestProposalStore_ExistingIDs(t *testing.T) {
	ctx := context.Background()
	store := NewProposalStore(newTestDB(t), nil)

	_, err := store.UpsertBatch(ctx, []proposal.Proposal{
		makeProposal("polkadot_1", "t", "", ""),
	})
	require.NoError(t, err)

	existing, err := store.ExistingIDs(ctx, []string{"polkadot_1", "polkadot_2"})
	require.NoError(t, err)
	require.True(t, existing["polkadot_1"])
	require.False(t, existing["polkadot_2"])
}

func TestProposalStore_FindMissing(t *testing.T) {
	ctx := context.Background()
	store := NewProposalStore(newTestDB(t), nil)

	_, err := store.FindByID(ctx, "nope")
	require.ErrorIs(t, err, ErrProposalNotFound)
}
