// Package agent implements the retrieval-augmented answer pipeline: embed
// the question, query the vector index, filter by relevance, assemble a
// grounded prompt and ask the completion model.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"visamate/model"
	"visamate/store"
	"visamate/types"
)

const (
	topK               = 5
	relevanceThreshold = 0.7
	historyWindow      = 3
)

// FallbackAnswer is returned when retrieval confidence is too low to ground
// an answer. This is a designed response, not an error.
const FallbackAnswer = "I don't have enough information to provide a reliable answer to your question. " +
	"Please try rephrasing your question or upload relevant documents to get more accurate responses."

// ApologyAnswer covers the completion model returning empty content.
const ApologyAnswer = "I apologize, but I was unable to generate a response."

const systemPrompt = `You are VisaMate, an immigration and visa assistant. You help users with questions about H-1B, F-1, OPT, and other visa processes.

IMPORTANT GUIDELINES:
1. Base your answers ONLY on the provided context from official sources
2. If the context doesn't contain enough information, say "I don't have enough information" rather than guessing
3. Always cite your sources clearly
4. Be clear about limitations and recommend consulting legal professionals for specific cases
5. Provide step-by-step guidance when possible
6. Use a helpful, professional tone

Context from official sources:
%s

Current conversation:
%s

User question: %s

Please provide a clear, accurate answer based on the context above. Include source citations and any relevant disclaimers.`

type Agent struct {
	embedder    model.EmbedderInterface
	index       store.VectorStorer
	completer   model.CompleterInterface
	logger      *slog.Logger
	countTokens func(string) (int, error)
}

func New(embedder model.EmbedderInterface, index store.VectorStorer, completer model.CompleterInterface) *Agent {
	return &Agent{
		embedder:    embedder,
		index:       index,
		completer:   completer,
		logger:      slog.Default(),
		countTokens: tiktokenCount,
	}
}

// Answer runs one question through the pipeline and returns the generated
// answer with its cited sources. When no retrieved chunk clears the
// relevance threshold the completion model is not invoked at all.
func (a *Agent) Answer(ctx context.Context, message string, history []types.ConversationTurn) (*types.ChatResponse, error) {
	if strings.TrimSpace(message) == "" {
		return nil, types.NewFault(types.KindInvalidInput, "message is required")
	}

	embedding, err := a.embedder.Embed(ctx, message)
	if err != nil {
		return nil, err
	}

	matches, err := a.index.Query(ctx, embedding, topK)
	if err != nil {
		return nil, err
	}

	relevant := make([]types.Match, 0, len(matches))
	for _, m := range matches {
		if m.Score > relevanceThreshold {
			relevant = append(relevant, m)
		}
	}

	if len(relevant) == 0 {
		a.logger.Info("no relevant context found", "matches", len(matches))
		return &types.ChatResponse{
			Answer:  FallbackAnswer,
			Sources: []types.Source{},
		}, nil
	}

	prompt := fmt.Sprintf(systemPrompt, contextBlock(relevant), renderHistory(history), message)
	a.logPromptSize(prompt)

	answer, err := a.completer.Complete(ctx, prompt, message)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(answer) == "" {
		answer = ApologyAnswer
	}

	sources := make([]types.Source, len(relevant))
	for i, m := range relevant {
		sources[i] = types.Source{
			DocumentTitle: m.Metadata.DocumentTitle,
			SourceType:    m.Metadata.SourceType,
			UploadDate:    m.Metadata.UploadDate,
			ChunkText:     m.Metadata.ChunkText,
		}
	}

	return &types.ChatResponse{
		Answer:  answer,
		Sources: sources,
	}, nil
}

// contextBlock concatenates surviving contexts in relevance order.
func contextBlock(matches []types.Match) string {
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = fmt.Sprintf("Source: %s\nContent: %s", m.Metadata.DocumentTitle, m.Metadata.ChunkText)
	}
	return strings.Join(parts, "\n\n")
}

// renderHistory keeps the most recent turns to bound prompt size.
func renderHistory(history []types.ConversationTurn) string {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	lines := make([]string, len(history))
	for i, turn := range history {
		lines[i] = fmt.Sprintf("%s: %s", turn.Role, turn.Content)
	}
	return strings.Join(lines, "\n")
}

func (a *Agent) logPromptSize(prompt string) {
	tokens, err := a.countTokens(prompt)
	if err != nil {
		a.logger.Debug("token counting unavailable", "error", err)
		return
	}
	a.logger.Info("prompt assembled", "tokens", tokens, "chars", len(prompt))
}

func tiktokenCount(text string) (int, error) {
	enc, err := tiktoken.EncodingForModel("gpt-4")
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}
