package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visamate/types"
)

type stubEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	return s.vector, s.err
}

type stubIndex struct {
	matches []types.Match
	err     error
	calls   int
}

func (s *stubIndex) Init(ctx context.Context) error { return nil }
func (s *stubIndex) Upsert(ctx context.Context, records []types.VectorRecord) error {
	return nil
}
func (s *stubIndex) Query(ctx context.Context, embedding []float32, topK int) ([]types.Match, error) {
	s.calls++
	return s.matches, s.err
}
func (s *stubIndex) Close() error { return nil }

type stubCompleter struct {
	answer string
	err    error
	calls  int
	system string
	user   string
}

func (s *stubCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	s.calls++
	s.system = system
	s.user = user
	return s.answer, s.err
}

func match(title, text string, score float64) types.Match {
	return types.Match{
		Metadata: types.RecordMetadata{
			DocumentTitle: title,
			SourceType:    "GENERAL",
			UploadDate:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			ChunkText:     text,
		},
		Score: score,
	}
}

func newTestAgent(e *stubEmbedder, i *stubIndex, c *stubCompleter) *Agent {
	a := New(e, i, c)
	a.countTokens = func(string) (int, error) { return 0, nil }
	return a
}

func TestAnswer_EmptyMessage(t *testing.T) {
	embedder := &stubEmbedder{}
	a := newTestAgent(embedder, &stubIndex{}, &stubCompleter{})

	_, err := a.Answer(context.Background(), "   ", nil)

	assert.Equal(t, types.KindInvalidInput, types.KindOf(err))
	assert.Zero(t, embedder.calls)
}

func TestAnswer_LowConfidenceFallback(t *testing.T) {
	completer := &stubCompleter{answer: "should never be used"}
	index := &stubIndex{matches: []types.Match{
		match("USCIS Guide", "some text", 0.69),
		match("DoS FAQ", "other text", 0.4),
	}}
	a := newTestAgent(&stubEmbedder{vector: []float32{1}}, index, completer)

	resp, err := a.Answer(context.Background(), "Can I work on a B-2 visa?", nil)

	require.NoError(t, err)
	assert.Equal(t, FallbackAnswer, resp.Answer)
	assert.Empty(t, resp.Sources)
	assert.Zero(t, completer.calls, "completion model must not be invoked without relevant context")
}

func TestAnswer_GroundedResponse(t *testing.T) {
	completer := &stubCompleter{answer: "According to the USCIS Guide, yes."}
	index := &stubIndex{matches: []types.Match{
		match("USCIS Guide", "OPT allows 12 months of work authorization.", 0.93),
		match("Campus Handbook", "STEM extensions add 24 months.", 0.81),
		match("Old Blog Post", "irrelevant", 0.5),
	}}
	a := newTestAgent(&stubEmbedder{vector: []float32{1}}, index, completer)

	resp, err := a.Answer(context.Background(), "How long can I work on OPT?", nil)

	require.NoError(t, err)
	assert.Equal(t, "According to the USCIS Guide, yes.", resp.Answer)

	require.Len(t, resp.Sources, 2)
	assert.Equal(t, "USCIS Guide", resp.Sources[0].DocumentTitle)
	assert.Equal(t, "Campus Handbook", resp.Sources[1].DocumentTitle)

	assert.Contains(t, completer.system, "Source: USCIS Guide\nContent: OPT allows 12 months of work authorization.")
	assert.Contains(t, completer.system, "Source: Campus Handbook")
	assert.NotContains(t, completer.system, "Old Blog Post")
	assert.Equal(t, "How long can I work on OPT?", completer.user)
}

func TestAnswer_HistoryTruncatedToLastThree(t *testing.T) {
	completer := &stubCompleter{answer: "ok"}
	index := &stubIndex{matches: []types.Match{match("Doc", "text", 0.9)}}
	a := newTestAgent(&stubEmbedder{vector: []float32{1}}, index, completer)

	history := []types.ConversationTurn{
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "first answer"},
		{Role: "user", Content: "second question"},
		{Role: "assistant", Content: "second answer"},
		{Role: "user", Content: "third question"},
	}

	_, err := a.Answer(context.Background(), "follow up", history)

	require.NoError(t, err)
	assert.NotContains(t, completer.system, "first question")
	assert.NotContains(t, completer.system, "first answer")
	assert.Contains(t, completer.system, "user: second question")
	assert.Contains(t, completer.system, "assistant: second answer")
	assert.Contains(t, completer.system, "user: third question")
}

func TestAnswer_EmptyCompletionApology(t *testing.T) {
	completer := &stubCompleter{answer: "   "}
	index := &stubIndex{matches: []types.Match{match("Doc", "text", 0.9)}}
	a := newTestAgent(&stubEmbedder{vector: []float32{1}}, index, completer)

	resp, err := a.Answer(context.Background(), "question", nil)

	require.NoError(t, err)
	assert.Equal(t, ApologyAnswer, resp.Answer)
}

func TestAnswer_EmbeddingFailurePropagates(t *testing.T) {
	embedder := &stubEmbedder{err: types.NewFault(types.KindEmbeddingQuota, "quota exceeded")}
	index := &stubIndex{}
	a := newTestAgent(embedder, index, &stubCompleter{})

	_, err := a.Answer(context.Background(), "question", nil)

	assert.Equal(t, types.KindEmbeddingQuota, types.KindOf(err))
	assert.Zero(t, index.calls)
}

func TestAnswer_IndexFailure(t *testing.T) {
	index := &stubIndex{err: errors.New("connection reset")}
	a := newTestAgent(&stubEmbedder{vector: []float32{1}}, index, &stubCompleter{})

	_, err := a.Answer(context.Background(), "question", nil)

	assert.Error(t, err)
}
