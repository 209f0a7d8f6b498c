package rag_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/pdfrag/internal/models"
	"github.com/xhad/pdfrag/internal/types"
	"github.com/xhad/pdfrag/pkg/llm"
	"github.com/xhad/pdfrag/pkg/rag"
	"github.com/xhad/pdfrag/pkg/store"
)

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, types.Wrap(types.ErrEmbeddingService, errors.New("embedding endpoint down"))
}

func (f failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, types.Wrap(types.ErrEmbeddingService, errors.New("embedding endpoint down"))
}

func seededStore(t *testing.T, embedder llm.StubEmbedder) *store.Memory {
	t.Helper()
	ctx := context.Background()
	m := store.NewMemory(embedder.Dim)

	texts := []struct {
		content string
		source  string
	}{
		{"Revenue grew 20 percent in Q1.", "report.pdf"},
		{"Weather was mild in the second quarter.", "weather.pdf"},
	}

	var chunks []models.Chunk
	for _, tc := range texts {
		vector, err := embedder.Embed(ctx, tc.content)
		require.NoError(t, err)
		chunks = append(chunks, models.Chunk{
			Content:   tc.content,
			Embedding: vector,
			Metadata:  map[string]interface{}{"source": tc.source, "page": 1},
		})
	}
	require.NoError(t, m.AddChunks(ctx, chunks))

	return m
}

func TestAnswerRetrievesRelevantContext(t *testing.T) {
	embedder := llm.StubEmbedder{Dim: 64}
	m := seededStore(t, embedder)

	// The echoing completer returns the assembled prompt, so the test
	// can check what retrieval surfaced.
	engine := rag.NewEngine(embedder, m, llm.StubCompleter{}, rag.EngineConfig{})

	answer, err := engine.Answer(context.Background(), "What grew 20 percent?", "report.pdf")
	require.NoError(t, err)

	assert.Contains(t, answer, "Revenue grew 20 percent")
	assert.Contains(t, answer, "What grew 20 percent?")
	assert.NotContains(t, answer, "Weather was mild")
}

func TestAnswerWithoutFilterSearchesAllDocuments(t *testing.T) {
	embedder := llm.StubEmbedder{Dim: 64}
	m := seededStore(t, embedder)
	engine := rag.NewEngine(embedder, m, llm.StubCompleter{}, rag.EngineConfig{})

	answer, err := engine.Answer(context.Background(), "How was the weather?", "")
	require.NoError(t, err)
	assert.Contains(t, answer, "Weather was mild")
}

func TestAnswerEmptyContext(t *testing.T) {
	embedder := llm.StubEmbedder{Dim: 64}
	engine := rag.NewEngine(embedder, store.NewMemory(64), llm.StubCompleter{}, rag.EngineConfig{})

	// No chunks at all: generation still runs and the prompt carries
	// the don't-know instruction.
	answer, err := engine.Answer(context.Background(), "What grew 20 percent?", "nothing.pdf")
	require.NoError(t, err)
	assert.NotEmpty(t, answer)
	assert.Contains(t, answer, "Sorry, I don't know the answer")
}

func TestAnswerValidation(t *testing.T) {
	embedder := llm.StubEmbedder{Dim: 64}
	engine := rag.NewEngine(embedder, store.NewMemory(64), llm.StubCompleter{}, rag.EngineConfig{})

	_, err := engine.Answer(context.Background(), "   ", "")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestAnswerEmbeddingFailure(t *testing.T) {
	engine := rag.NewEngine(failingEmbedder{}, store.NewMemory(64), llm.StubCompleter{}, rag.EngineConfig{})

	_, err := engine.Answer(context.Background(), "anything", "")
	assert.ErrorIs(t, err, types.ErrEmbeddingService)
}

type timedOutEmbedder struct{}

func (timedOutEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, types.Wrap(types.ErrEmbeddingService, context.DeadlineExceeded)
}

func (timedOutEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, types.Wrap(types.ErrEmbeddingService, context.DeadlineExceeded)
}

func TestAnswerEmbeddingTimeout(t *testing.T) {
	engine := rag.NewEngine(timedOutEmbedder{}, store.NewMemory(64), llm.StubCompleter{}, rag.EngineConfig{})

	// A timed-out embedding call is reported as a timeout, not as a
	// generic embedding fault.
	_, err := engine.Answer(context.Background(), "anything", "")
	assert.ErrorIs(t, err, types.ErrTimeout)
	assert.NotErrorIs(t, err, types.ErrEmbeddingService)
}

func TestAnswerCompletionFailure(t *testing.T) {
	embedder := llm.StubEmbedder{Dim: 64}
	completer := llm.StubCompleter{
		Err: types.Wrap(types.ErrCompletionService, errors.New("model unavailable")),
	}
	engine := rag.NewEngine(embedder, seededStore(t, embedder), completer, rag.EngineConfig{})

	_, err := engine.Answer(context.Background(), "What grew 20 percent?", "report.pdf")
	assert.ErrorIs(t, err, types.ErrCompletionService)
}

func TestSearch(t *testing.T) {
	embedder := llm.StubEmbedder{Dim: 64}
	engine := rag.NewEngine(embedder, seededStore(t, embedder), llm.StubCompleter{}, rag.EngineConfig{})

	result, err := engine.Search(context.Background(), "revenue", 10)
	require.NoError(t, err)

	assert.Len(t, result.Embedding, 64)
	require.Len(t, result.Results, 2)
	assert.Contains(t, result.Results[0].Content, "Revenue")
	assert.LessOrEqual(t, result.Results[0].Distance, result.Results[1].Distance)
}

func TestSearchValidation(t *testing.T) {
	embedder := llm.StubEmbedder{Dim: 64}
	engine := rag.NewEngine(embedder, store.NewMemory(64), llm.StubCompleter{}, rag.EngineConfig{})

	_, err := engine.Search(context.Background(), "", 10)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestAnswerDeterministicForUnchangedStore(t *testing.T) {
	embedder := llm.StubEmbedder{Dim: 64}
	m := seededStore(t, embedder)
	engine := rag.NewEngine(embedder, m, llm.StubCompleter{}, rag.EngineConfig{})

	first, err := engine.Answer(context.Background(), "What grew 20 percent?", "")
	require.NoError(t, err)
	second, err := engine.Answer(context.Background(), "What grew 20 percent?", "")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
