package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Remote embedding models and their fixed vector dimensions.
const (
	ModelRemoteSmall = "text-embedding-3-small"
	ModelRemoteLarge = "text-embedding-3-large"

	DimensionRemoteSmall = 1536
	DimensionRemoteLarge = 3072
)

// DefaultBatchSize is the default number of texts per embedding API call.
const DefaultBatchSize = 10

// errEmbeddingCountMismatch indicates the API returned fewer embedding vectors
// than requested. This is retryable because transient upstream issues (e.g.
// rate-limiting behind a 200 status) can produce partial responses.
var errEmbeddingCountMismatch = errors.New("embedding response count mismatch")

// OpenAIEmbedding generates embeddings via the OpenAI embeddings API.
// A token-bucket limiter throttles requests below the account quota and a
// jittered exponential backoff absorbs 429s and transient 5xx responses.
type OpenAIEmbedding struct {
	client      *openai.Client
	model       string
	dimension   int
	limiter     *rate.Limiter
	retry       RetryPolicy
	parallelism int
}

// OpenAIConfig holds configuration for the OpenAI embedding provider.
// The API key is carried only here and in the request Authorization header;
// it is never logged.
type OpenAIConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	MaxRetries        int
	InitialDelay      time.Duration
	BackoffFactor     float64
	RequestsPerMinute int
	Parallelism       int
	Transport         http.RoundTripper
}

// NewOpenAIEmbedding creates an embedding provider from configuration.
func NewOpenAIEmbedding(cfg OpenAIConfig) (*OpenAIEmbedding, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai embedding: missing API key")
	}

	model := cfg.Model
	if model == "" {
		model = ModelRemoteSmall
	}
	var dimension int
	switch model {
	case ModelRemoteSmall:
		dimension = DimensionRemoteSmall
	case ModelRemoteLarge:
		dimension = DimensionRemoteLarge
	default:
		return nil, fmt.Errorf("openai embedding: unsupported model %q", model)
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	httpClient := &http.Client{}
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	}
	if cfg.Transport != nil {
		httpClient.Transport = cfg.Transport
	}
	config.HTTPClient = httpClient

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 5
	}
	initialDelay := cfg.InitialDelay
	if initialDelay == 0 {
		initialDelay = 2 * time.Second
	}
	backoffFactor := cfg.BackoffFactor
	if backoffFactor == 0 {
		backoffFactor = 2.0
	}
	requestsPerMinute := cfg.RequestsPerMinute
	if requestsPerMinute == 0 {
		requestsPerMinute = 3000
	}
	parallelism := cfg.Parallelism
	if parallelism == 0 {
		parallelism = 4
	}

	return &OpenAIEmbedding{
		client:    openai.NewClientWithConfig(config),
		model:     model,
		dimension: dimension,
		limiter:   rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute/60+1),
		retry: RetryPolicy{
			MaxAttempts:   maxRetries + 1,
			InitialDelay:  initialDelay,
			BackoffFactor: backoffFactor,
			Jitter:        EqualJitter,
		},
		parallelism: parallelism,
	}, nil
}

// Dimension returns the fixed vector dimension of the configured model.
func (p *OpenAIEmbedding) Dimension() int { return p.dimension }

// Model returns the model identifier.
func (p *OpenAIEmbedding) Model() string { return p.model }

// Capacity returns the maximum number of texts per Embed call.
func (p *OpenAIEmbedding) Capacity() int { return DefaultBatchSize }

// Parallelism returns how many Embed calls may usefully run at once.
func (p *OpenAIEmbedding) Parallelism() int { return p.parallelism }

// Close is a no-op for the OpenAI provider.
func (p *OpenAIEmbedding) Close() error { return nil }

// Embed generates embeddings for the given texts in a single API call,
// rate-limited and retried.
func (p *OpenAIEmbedding) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}
	if len(texts) > p.Capacity() {
		return nil, fmt.Errorf("embed: %d texts exceeds capacity %d", len(texts), p.Capacity())
	}

	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.model),
		Input: texts,
	}

	var resp openai.EmbeddingResponse
	err := p.retry.Do(ctx, p.isRetryable, func() error {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		resp, err = p.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Data) != len(texts) {
			return fmt.Errorf("%w: got %d vectors for %d texts", errEmbeddingCountMismatch, len(resp.Data), len(texts))
		}
		return nil
	})
	if err != nil {
		return nil, p.wrapError("embedding", err)
	}

	embeddings := make([][]float64, len(resp.Data))
	for i, data := range resp.Data {
		vec := make([]float64, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float64(v)
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

// isRetryable determines if an error should be retried.
func (p *OpenAIEmbedding) isRetryable(err error) bool {
	// Partial embedding responses are retryable — upstream providers can
	// return 200 with missing data under transient load.
	if errors.Is(err, errEmbeddingCountMismatch) {
		return true
	}

	// HTTP client timeouts are retryable
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		// Network errors are retryable
		return true
	}

	return false
}

// wrapError wraps an OpenAI error into a ProviderError.
func (p *OpenAIEmbedding) wrapError(operation string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return NewProviderError(operation, apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewProviderError(operation, reqErr.HTTPStatusCode, reqErr.Error(), err)
	}

	return NewProviderError(operation, 0, err.Error(), err)
}

var _ Embedder = (*OpenAIEmbedding)(nil)
