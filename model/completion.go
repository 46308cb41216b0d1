package model

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"visamate/types"
)

// Answers favour faithfulness over creativity, with a bounded output length.
const (
	completionTemperature = 0.3
	completionMaxTokens   = 1000
)

// CompleterInterface generates natural-language text from a structured prompt.
type CompleterInterface interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// OpenAICompleter talks to an OpenAI-compatible chat completions endpoint.
type OpenAICompleter struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func NewOpenAICompleter(baseURL, apiKey, model string) *OpenAICompleter {
	return &OpenAICompleter{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: completionTemperature,
		MaxTokens:   completionMaxTokens,
	})
	if err != nil {
		return "", types.WrapFault(types.KindCompletionFailure, "failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", types.WrapFault(types.KindCompletionFailure, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", types.WrapFault(types.KindCompletionFailure, "failed to reach completions API", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", types.WrapFault(types.KindCompletionFailure, "failed to read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyAPIError(resp.StatusCode, payload, types.KindCompletionFailure, types.KindCompletionQuota)
	}

	var out completionResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", types.WrapFault(types.KindCompletionFailure, "failed to unmarshal response", err)
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return out.Choices[0].Message.Content, nil
}
