package provider

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, client *http.Client, url, body string) string {
	t.Helper()
	resp, err := client.Post(url, "application/json", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestCachingTransport_RepeatedRequestHitsCache(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewCachingTransport(t.TempDir(), nil)}

	first := postJSON(t, client, srv.URL, `{"input": "a"}`)
	second := postJSON(t, client, srv.URL, `{"input": "a"}`)
	require.Equal(t, first, second)
	require.Equal(t, int64(1), hits.Load(), "identical request must be served from cache")
}

func TestCachingTransport_DifferentBodiesMiss(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewCachingTransport(t.TempDir(), nil)}

	postJSON(t, client, srv.URL, `{"input": "a"}`)
	postJSON(t, client, srv.URL, `{"input": "b"}`)
	require.Equal(t, int64(2), hits.Load())
}

func TestCachingTransport_ErrorsNotCached(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewCachingTransport(t.TempDir(), nil)}

	postJSON(t, client, srv.URL, `{"input": "a"}`)
	postJSON(t, client, srv.URL, `{"input": "a"}`)
	require.Equal(t, int64(2), hits.Load(), "non-2xx responses must not be cached")
}
