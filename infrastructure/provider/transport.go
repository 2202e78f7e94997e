package provider

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// CachingTransport is an http.RoundTripper that replays responses from a disk
// cache keyed by the request hash. Embedding calls are deterministic per text,
// so rerunning the same input files costs no remote quota. Only 2xx responses
// are stored; a cache read or write failure falls through to the inner
// transport rather than surfacing.
type CachingTransport struct {
	inner http.RoundTripper
	dir   string
}

// NewCachingTransport creates a CachingTransport rooted at dir. A nil inner
// transport means http.DefaultTransport.
func NewCachingTransport(dir string, inner http.RoundTripper) *CachingTransport {
	if inner == nil {
		inner = http.DefaultTransport
	}
	_ = os.MkdirAll(dir, 0o755)
	return &CachingTransport{inner: inner, dir: dir}
}

// cacheEntry is the on-disk form of a cached response. The body is base64 so
// the entry stays valid JSON regardless of response content.
type cacheEntry struct {
	Status int                 `json:"status"`
	Header map[string][]string `json:"header"`
	Body   string              `json:"body"`
}

// RoundTrip implements http.RoundTripper.
func (t *CachingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var reqBody []byte
	if req.Body != nil {
		var err error
		reqBody, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(reqBody))
	}

	path := t.entryPath(req.Method, req.URL.String(), reqBody)
	if resp, ok := t.replay(path, req); ok {
		return resp, nil
	}

	resp, err := t.inner.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	_ = resp.Body.Close()
	t.store(path, resp.StatusCode, resp.Header, respBody)

	resp.Body = io.NopCloser(bytes.NewReader(respBody))
	return resp, nil
}

// entryPath derives the cache file for a request from the SHA-256 of its
// method, URL, and body. Credentials live in headers, so they never reach the
// key or the disk.
func (t *CachingTransport) entryPath(method, url string, body []byte) string {
	h := sha256.New()
	io.WriteString(h, method)
	io.WriteString(h, "\n")
	io.WriteString(h, url)
	io.WriteString(h, "\n")
	h.Write(body)
	return filepath.Join(t.dir, hex.EncodeToString(h.Sum(nil))+".json")
}

func (t *CachingTransport) replay(path string, req *http.Request) (*http.Response, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	body, err := base64.StdEncoding.DecodeString(entry.Body)
	if err != nil {
		return nil, false
	}
	return &http.Response{
		StatusCode: entry.Status,
		Header:     entry.Header,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Request:    req,
	}, true
}

func (t *CachingTransport) store(path string, status int, header http.Header, body []byte) {
	data, err := json.Marshal(cacheEntry{
		Status: status,
		Header: header,
		Body:   base64.StdEncoding.EncodeToString(body),
	})
	if err != nil {
		return
	}
	_ = os.WriteFile(path, data, 0o644)
}
