package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arnavk-polka/onChain-Explorer/domain/proposal"
)

func seedProposals(t *testing.T, store *ProposalStore, ids ...string) {
	t.Helper()
	proposals := make([]proposal.Proposal, len(ids))
	for i, id := range ids {
		proposals[i] = makeProposal(id, "title "+id, "", "")
	}
	_, err := store.UpsertBatch(context.Background(), proposals)
	require.NoError(t, err)
}

func vector(dim int, fill float64) []float64 {
	v := make([]float64, dim)
	for i := range v {
		v[i] = fill
	}
	return v
}

func TestEmbeddingStore_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	proposals := NewProposalStore(db, nil)
	seedProposals(t, proposals, "polkadot_1")

	store, err := NewEmbeddingStore(ctx, db, 4)
	require.NoError(t, err)
	require.Equal(t, 4, store.Dimension())

	result, err := store.SaveAll(ctx, []proposal.Embedding{
		proposal.NewEmbedding("polkadot_1", vector(4, 0.5)),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"polkadot_1"}, result.Saved())
	require.Empty(t, result.Failed())

	got, err := store.FindByProposalID(ctx, "polkadot_1")
	require.NoError(t, err)
	require.Equal(t, vector(4, 0.5), got.Vector())
}

func TestEmbeddingStore_UpsertReplacesVector(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedProposals(t, NewProposalStore(db, nil), "polkadot_1")

	store, err := NewEmbeddingStore(ctx, db, 4)
	require.NoError(t, err)

	_, err = store.SaveAll(ctx, []proposal.Embedding{
		proposal.NewEmbedding("polkadot_1", vector(4, 0.1)),
	})
	require.NoError(t, err)
	_, err = store.SaveAll(ctx, []proposal.Embedding{
		proposal.NewEmbedding("polkadot_1", vector(4, 0.9)),
	})
	require.NoError(t, err)

	got, err := store.FindByProposalID(ctx, "polkadot_1")
	require.NoError(t, err)
	require.Equal(t, vector(4, 0.9), got.Vector())

	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestEmbeddingStore_WrongDimensionRejectsItemOnly(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedProposals(t, NewProposalStore(db, nil), "polkadot_1", "polkadot_2")

	store, err := NewEmbeddingStore(ctx, db, 4)
	require.NoError(t, err)

	result, err := store.SaveAll(ctx, []proposal.Embedding{
		proposal.NewEmbedding("polkadot_1", vector(3, 0.1)), // wrong length
		proposal.NewEmbedding("polkadot_2", vector(4, 0.2)),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"polkadot_2"}, result.Saved())
	require.Len(t, result.Failed(), 1)
	require.Equal(t, "polkadot_1", result.Failed()[0].ProposalID())
	require.ErrorIs(t, result.Failed()[0].Err(), ErrVectorDimension)

	// The rejected item left no row behind.
	_, err = store.FindByProposalID(ctx, "polkadot_1")
	require.ErrorIs(t, err, ErrEmbeddingNotFound)
}

func TestEmbeddingStore_WrongDimensionKeepsExistingRow(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedProposals(t, NewProposalStore(db, nil), "polkadot_1")

	store, err := NewEmbeddingStore(ctx, db, 4)
	require.NoError(t, err)

	_, err = store.SaveAll(ctx, []proposal.Embedding{
		proposal.NewEmbedding("polkadot_1", vector(4, 0.1)),
	})
	require.NoError(t, err)

	result, err := store.SaveAll(ctx, []proposal.Embedding{
		proposal.NewEmbedding("polkadot_1", vector(7, 0.9)),
	})
	require.NoError(t, err)
	require.Empty(t, result.Saved())
	require.Len(t, result.Failed(), 1)

	got, err := store.FindByProposalID(ctx, "polkadot_1")
	require.NoError(t, err)
	require.Equal(t, vector(4, 0.1), got.Vector(), "stored vector unchanged after rejected write")
}

func TestEmbeddingStore_UnknownProposalRejected(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedProposals(t, NewProposalStore(db, nil), "polkadot_1")

	store, err := NewEmbeddingStore(ctx, db, 4)
	require.NoError(t, err)

	result, err := store.SaveAll(ctx, []proposal.Embedding{
		proposal.NewEmbedding("polkadot_1", vector(4, 0.1)),
		proposal.NewEmbedding("ghost_9", vector(4, 0.2)),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"polkadot_1"}, result.Saved())
	require.Len(t, result.Failed(), 1)
	require.ErrorIs(t, result.Failed()[0].Err(), ErrUnknownProposal)
}

func TestEmbeddingStore_DimensionMismatchOnOpen(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedProposals(t, NewProposalStore(db, nil), "polkadot_1")

	store, err := NewEmbeddingStore(ctx, db, 4)
	require.NoError(t, err)
	_, err = store.SaveAll(ctx, []proposal.Embedding{
		proposal.NewEmbedding("polkadot_1", vector(4, 0.1)),
	})
	require.NoError(t, err)

	// Reopening with a different provider dimension must refuse.
	_, err = NewEmbeddingStore(ctx, db, 8)
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestEmbeddingStore_EmptyBatch(t *testing.T) {
	ctx := context.Background()
	store, err := NewEmbeddingStore(ctx, newTestDB(t), 4)
	require.NoError(t, err)

	result, err := store.SaveAll(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, result.Saved())
	require.Empty(t, result.Failed())
}
