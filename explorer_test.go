package explorer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubEmbedder struct{ dim int }

func (s stubEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i := range texts {
		vectors[i] = make([]float64, s.dim)
	}
	return vectors, nil
}
func (s stubEmbedder) Dimension() int   { return s.dim }
func (s stubEmbedder) Model() string    { return "stub" }
func (s stubEmbedder) Capacity() int    { return 10 }
func (s stubEmbedder) Parallelism() int { return 1 }
func (s stubEmbedder) Close() error     { return nil }

type stubFetcher struct{ files []string }

func (s stubFetcher) Fetch(context.Context) ([]string, error) { return s.files, nil }

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithSQLite(filepath.Join(t.TempDir(), "explorer.db")),
		WithEmbedder(stubEmbedder{dim: 4}),
	}
	client, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNew_RequiresEmbedder(t *testing.T) {
	_, err := New(WithSQLite(filepath.Join(t.TempDir(), "x.db")))
	require.Error(t, err)
}

func TestClient_Process(t *testing.T) {
	client := newTestClient(t)

	path := filepath.Join(t.TempDir(), "feed.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": "polkadot_1", "network": "polkadot", "title": "One"},
		{"id": "kusama_2", "network": "kusama", "title": "Two"}
	]`), 0o644))

	report, err := client.Process(context.Background(), path)
	require.NoError(t, err)
	require.Empty(t, report.FailedBatches())

	count, err := client.Proposals().Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	embCount, err := client.Embeddings().Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), embCount)
}

func TestClient_FetchAndProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id": "polkadot_1", "title": "One"}]`), 0o644))

	client := newTestClient(t, WithFetcher(stubFetcher{files: []string{path}}))

	report, err := client.FetchAndProcess(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Files, 1)
}

func TestClient_FetchAndProcessWithoutFetcher(t *testing.T) {
	client := newTestClient(t)

	_, err := client.FetchAndProcess(context.Background())
	require.ErrorIs(t, err, ErrNoFetcher)
}
