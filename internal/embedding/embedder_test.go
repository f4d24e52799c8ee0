package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/codeqa/internal/document"
)

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions"`
}

// newFakeOpenAI serves /embeddings, answering each input with a vector whose
// first component is the input length. Data is returned in reverse order.
func newFakeOpenAI(t *testing.T, requests *atomic.Int32, seen chan<- embeddingRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if seen != nil {
			seen <- req
		}

		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float64{float64(len(req.Input[i])), 0.5},
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data":   data,
			"usage":  map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIEmbedder_EmbedDocuments_Batches(t *testing.T) {
	var requests atomic.Int32
	srv := newFakeOpenAI(t, &requests, nil)

	client, err := NewClient("test-key", srv.URL)
	require.NoError(t, err)
	embedder := NewEmbedder(client, Options{BatchSize: 2})

	vectors, err := embedder.EmbedDocuments(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)

	assert.Equal(t, int32(2), requests.Load())
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{1, 0.5}, vectors[0])
	assert.Equal(t, []float32{2, 0.5}, vectors[1])
	assert.Equal(t, []float32{3, 0.5}, vectors[2])
}

func TestOpenAIEmbedder_EmbedQuery(t *testing.T) {
	var requests atomic.Int32
	seen := make(chan embeddingRequest, 1)
	srv := newFakeOpenAI(t, &requests, seen)

	client, err := NewClient("test-key", srv.URL)
	require.NoError(t, err)
	embedder := NewEmbedder(client, Options{Model: "text-embedding-3-large", Dimensions: 256})

	vector, err := embedder.EmbedQuery(context.Background(), "where is main?")
	require.NoError(t, err)
	assert.Equal(t, []float32{14, 0.5}, vector)

	req := <-seen
	assert.Equal(t, "text-embedding-3-large", req.Model)
	assert.Equal(t, 256, req.Dimensions)
	assert.Equal(t, []string{"where is main?"}, req.Input)
}

func TestOpenAIEmbedder_PermanentError(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad input","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	client, err := NewClient("test-key", srv.URL)
	require.NoError(t, err)

	_, err = NewEmbedder(client, Options{}).EmbedDocuments(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Equal(t, int32(1), requests.Load(), "non-429 errors are not retried")
}

func TestNewClient_RequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewClient("", "")
	assert.Error(t, err)
}

func TestFixedFuser(t *testing.T) {
	fuser := NewFixedFuser()
	assert.Equal(t, CustomDimension, fuser.Dimension())

	v, err := fuser.Fuse(context.Background(), document.Chunk{Text: "anything"})
	require.NoError(t, err)
	require.Len(t, v, 256)
	for _, x := range v {
		assert.Equal(t, float32(1), x)
	}
}

func TestToFloat32(t *testing.T) {
	assert.Equal(t, []float32{1.5, -2, 0}, toFloat32([]float64{1.5, -2, 0}))
}
