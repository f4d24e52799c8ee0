package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
	"github.com/tmc/langchaingo/embeddings"
)

const (
	// DefaultModel is the OpenAI model used for generating embeddings.
	DefaultModel = "text-embedding-3-small"

	// DefaultDimensions shortens text-embedding-3 vectors to the size the
	// custom fusion vectors use, so both storage modes share one query space.
	DefaultDimensions = 256

	// DefaultBatchSize balances requests-per-minute vs tokens-per-minute rate limits.
	// OpenAI supports up to 2048 texts per batch, but smaller batches reduce TPM pressure.
	DefaultBatchSize = 500
)

// Embedder is the capability the pipeline depends on: embed one query or
// many documents. It is langchaingo's embeddings.Embedder contract.
type Embedder = embeddings.Embedder

var _ Embedder = (*OpenAIEmbedder)(nil)

// Options configures an OpenAIEmbedder.
type Options struct {
	Model      string
	Dimensions int // 0 keeps the model's native size
	BatchSize  int
}

// OpenAIEmbedder generates embeddings through the OpenAI embeddings API.
// It batches requests and implements exponential backoff on rate limit errors.
type OpenAIEmbedder struct {
	client     *Client
	model      string
	dimensions int
	batchSize  int
}

// NewEmbedder creates an embedder; zero-valued options take the defaults
// except Dimensions, which is passed through as-is.
func NewEmbedder(client *Client, opts Options) *OpenAIEmbedder {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &OpenAIEmbedder{
		client:     client,
		model:      opts.Model,
		dimensions: opts.Dimensions,
		batchSize:  opts.BatchSize,
	}
}

// EmbedDocuments embeds texts in order, batching requests.
func (e *OpenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	allEmbeddings := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))
		batch := texts[i:end]

		vectors, err := e.embedBatchWithRetry(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("batch %d-%d: got %d embeddings for %d texts", i, end, len(vectors), len(batch))
		}
		allEmbeddings = append(allEmbeddings, vectors...)
	}

	return allEmbeddings, nil
}

// EmbedQuery embeds a single search query.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedBatchWithRetry(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("no embedding returned for query")
	}
	return vectors[0], nil
}

// embedBatchWithRetry generates embeddings for a single batch with retry logic.
// Retries with exponential backoff on rate limit errors (HTTP 429).
// Other errors are treated as permanent and fail immediately.
func (e *OpenAIEmbedder) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: openai.EmbeddingModel(e.model),
	}
	if e.dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	operation := func() error {
		resp, err := e.client.client.Embeddings.New(ctx, params)
		if err != nil {
			if isRateLimitError(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		// Results are sorted by index; the API does not guarantee order
		vectors = make([][]float32, len(resp.Data))
		for _, data := range resp.Data {
			if int(data.Index) >= len(vectors) {
				return backoff.Permanent(fmt.Errorf("embedding index %d out of range", data.Index))
			}
			vectors[data.Index] = toFloat32(data.Embedding)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	err := backoff.Retry(operation, backoff.WithContext(b, ctx))
	return vectors, err
}

// isRateLimitError checks if the error is a rate limit error (HTTP 429).
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 converts []float64 to []float32.
// OpenAI API returns float64, but storage uses float32 for memory efficiency.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
