package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"visamate/types"
)

// EmbedderInterface converts a text into a fixed-length vector.
type EmbedderInterface interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// OpenAIEmbedder talks to an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func NewOpenAIEmbedder(baseURL, apiKey, model string) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{
		Model: e.model,
		Input: text,
	})
	if err != nil {
		return nil, types.WrapFault(types.KindEmbeddingFailure, "failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, types.WrapFault(types.KindEmbeddingFailure, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, types.WrapFault(types.KindEmbeddingFailure, "failed to reach embeddings API", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.WrapFault(types.KindEmbeddingFailure, "failed to read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyAPIError(resp.StatusCode, payload, types.KindEmbeddingFailure, types.KindEmbeddingQuota)
	}

	var out embeddingResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, types.WrapFault(types.KindEmbeddingFailure, "failed to unmarshal response", err)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, types.NewFault(types.KindEmbeddingFailure, "no embedding returned")
	}

	embedding := make([]float32, len(out.Data[0].Embedding))
	for i, v := range out.Data[0].Embedding {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

// classifyAPIError maps a non-2xx collaborator response onto a tagged error
// kind. Quota exhaustion gets its own kind so handlers can answer 429
// without string-matching error messages downstream.
func classifyAPIError(status int, body []byte, generic, quota types.Kind) error {
	if status == http.StatusTooManyRequests || bytes.Contains(body, []byte("insufficient_quota")) {
		return types.NewFault(quota, "API quota exceeded, check your billing and try again later")
	}
	return types.NewFault(generic, fmt.Sprintf("API error: status %d: %s", status, truncate(body, 200)))
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
