package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllama_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)

		var req api.EmbedRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "bge-m3", req.Model)

		inputs, _ := req.Input.([]any)
		out := make([][]float32, len(inputs))
		for i := range inputs {
			out[i] = []float32{0, 0, 2}
		}
		_ = json.NewEncoder(w).Encode(api.EmbedResponse{Model: req.Model, Embeddings: out})
	}))
	defer srv.Close()

	o, err := NewOllama(OllamaConfig{BaseURL: srv.URL, Model: "bge-m3", Dimension: 3}, nil)
	require.NoError(t, err)

	vectors, err := o.EmbedDocuments(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{0, 0, 1}, vectors[2])

	v, err := o.EmbedQuery(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 1}, v)
	assert.Equal(t, 3, o.Dimension())
}

func TestOllama_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer srv.Close()

	o, err := NewOllama(OllamaConfig{BaseURL: srv.URL, Model: "missing", Dimension: 3}, nil)
	require.NoError(t, err)

	_, err = o.EmbedQuery(context.Background(), "q")
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}
