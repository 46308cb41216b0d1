package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visamate/types"
)

func TestOpenAIEmbedder_Embed(t *testing.T) {
	var gotReq embeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float64{0.25, -0.5, 1.0}},
			},
		})
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(srv.URL, "test-key", "text-embedding-3-small")

	vec, err := e.Embed(context.Background(), "what is an F-1 visa")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -0.5, 1.0}, vec)
	assert.Equal(t, "text-embedding-3-small", gotReq.Model)
	assert.Equal(t, "what is an F-1 visa", gotReq.Input)
}

func TestOpenAIEmbedder_Quota(t *testing.T) {
	t.Run("status 429", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := NewOpenAIEmbedder(srv.URL, "k", "m").Embed(context.Background(), "q")
		assert.Equal(t, types.KindEmbeddingQuota, types.KindOf(err))
	})

	t.Run("insufficient_quota marker", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"code":"insufficient_quota"}}`))
		}))
		defer srv.Close()

		_, err := NewOpenAIEmbedder(srv.URL, "k", "m").Embed(context.Background(), "q")
		assert.Equal(t, types.KindEmbeddingQuota, types.KindOf(err))
	})
}

func TestOpenAIEmbedder_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewOpenAIEmbedder(srv.URL, "k", "m").Embed(context.Background(), "q")
	assert.Equal(t, types.KindEmbeddingFailure, types.KindOf(err))
}

func TestOpenAIEmbedder_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer srv.Close()

	_, err := NewOpenAIEmbedder(srv.URL, "k", "m").Embed(context.Background(), "q")
	assert.Equal(t, types.KindEmbeddingFailure, types.KindOf(err))
}
