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
)

func TestHashingEmbedderDeterministic(t *testing.T) {
	e := NewHashingEmbedder(128)
	a, err := e.Embed(context.Background(), "retrieval augmented generation")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "retrieval augmented generation")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 128)
}

func TestHashingEmbedderNormalized(t *testing.T) {
	e := NewHashingEmbedder(64)
	v, err := e.Embed(context.Background(), "cosine similarity over unit vectors")
	require.NoError(t, err)
	norm := 0.0
	for _, x := range v {
		norm += x * x
	}
	assert.InDelta(t, 1.0, norm, 1e-9)
}

func TestHashingEmbedderBatchOrder(t *testing.T) {
	e := NewHashingEmbedder(64)
	vecs, err := e.EmbedBatch(context.Background(), []string{"alpha text", "beta text"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	single, err := e.Embed(context.Background(), "beta text")
	require.NoError(t, err)
	assert.Equal(t, single, vecs[1])
}

func TestHashingEmbedderEmptyTextZeroVector(t *testing.T) {
	e := NewHashingEmbedder(32)
	v, err := e.Embed(context.Background(), "")
	require.NoError(t, err)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func embeddingsHandler(t *testing.T, perCall func(n int32, w http.ResponseWriter, inputs []string)) http.HandlerFunc {
	var calls atomic.Int32
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		perCall(calls.Add(1), w, body.Input)
	}
}

func writeEmbeddings(w http.ResponseWriter, inputs []string) {
	type item struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	}
	out := struct {
		Data []item `json:"data"`
	}{}
	for i := range inputs {
		out.Data = append(out.Data, item{Index: i, Embedding: []float64{float64(i), 1, 0}})
	}
	_ = json.NewEncoder(w).Encode(out)
}

func TestClientEmbedBatch(t *testing.T) {
	srv := httptest.NewServer(embeddingsHandler(t, func(_ int32, w http.ResponseWriter, inputs []string) {
		writeEmbeddings(w, inputs)
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key"}, nil)
	require.NoError(t, err)
	vecs, err := c.EmbedBatch(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, []float64{2, 1, 0}, vecs[2])
}

func TestClientRetriesOnThrottle(t *testing.T) {
	srv := httptest.NewServer(embeddingsHandler(t, func(n int32, w http.ResponseWriter, inputs []string) {
		if n == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeEmbeddings(w, inputs)
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key"}, nil)
	require.NoError(t, err)
	vec, err := c.Embed(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0}, vec)
}

func TestClientFatalOnAuthFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "bad-key"}, nil)
	require.NoError(t, err)
	_, err = c.Embed(context.Background(), "query")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "auth failures must not be retried")
}

func TestClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	require.Error(t, err)
}

func TestHashingSimilarTextsScoreHigher(t *testing.T) {
	e := NewHashingEmbedder(256)
	ctx := context.Background()
	q, _ := e.Embed(ctx, "large language model evaluation")
	close1, _ := e.Embed(ctx, "evaluation of large language models")
	far, _ := e.Embed(ctx, "marine biology of coral reefs")
	assert.Greater(t, dot(q, close1), dot(q, far))
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func TestRetryDelayCapped(t *testing.T) {
	assert.LessOrEqual(t, retryDelay(30).Seconds(), 5.0)
	assert.InDelta(t, 0.2, retryDelay(0).Seconds(), 1e-9)
}
