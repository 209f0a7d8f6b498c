package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xhad/pdfrag/internal/models"
	"github.com/xhad/pdfrag/internal/types"
)

// promptTemplate instructs the model to answer only from the retrieved
// context and to admit when it can't. An empty context therefore yields
// the acknowledgment, not a hallucination.
const promptTemplate = `You are given a context from a PDF file and a question. Try to answer the question based on the provided context.

If you don't know the answer, say: "Sorry, I don't know the answer".

The provided context is:
------
%s
------

And the question: %s
Answer:
`

type EngineConfig struct {
	TopK    int           // chunks retrieved per question
	Timeout time.Duration // per external call
}

// Engine answers questions about ingested documents: embed the
// question, retrieve the closest chunks, assemble the prompt, generate.
type Engine struct {
	config    EngineConfig
	embedder  types.Embedder
	store     types.VectorStore
	completer types.Completer
}

func NewEngine(embedder types.Embedder, store types.VectorStore, completer types.Completer, config EngineConfig) *Engine {
	if config.TopK == 0 {
		config.TopK = 4
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	return &Engine{
		config:    config,
		embedder:  embedder,
		store:     store,
		completer: completer,
	}
}

// Answer runs the full pipeline for one question. A non-empty filter
// scopes retrieval to chunks from that filename. Zero retrieved chunks
// is not an error; generation proceeds with an empty context.
func (e *Engine) Answer(ctx context.Context, question, filter string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", types.Wrap(types.ErrValidation, fmt.Errorf("question is required"))
	}

	vector, err := e.embedQuestion(ctx, question)
	if err != nil {
		return "", err
	}

	results, err := e.retrieve(ctx, vector, e.config.TopK, filter)
	if err != nil {
		return "", err
	}

	prompt := e.assemblePrompt(question, results)

	callCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	return e.completer.Complete(callCtx, prompt)
}

// SearchResult carries the standalone similarity page's payload: the
// query's embedding and the matching chunks.
type SearchResult struct {
	Embedding []float32
	Results   []models.SimilarityResult
}

// Search embeds term and returns the closest chunks across all
// documents.
func (e *Engine) Search(ctx context.Context, term string, limit int) (SearchResult, error) {
	if strings.TrimSpace(term) == "" {
		return SearchResult{}, types.Wrap(types.ErrValidation, fmt.Errorf("search term is required"))
	}

	vector, err := e.embedQuestion(ctx, term)
	if err != nil {
		return SearchResult{}, err
	}

	results, err := e.retrieve(ctx, vector, limit, "")
	if err != nil {
		return SearchResult{}, err
	}

	return SearchResult{Embedding: vector, Results: results}, nil
}

func (e *Engine) embedQuestion(ctx context.Context, text string) ([]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	return e.embedder.Embed(callCtx, text)
}

func (e *Engine) retrieve(ctx context.Context, vector []float32, limit int, filter string) ([]models.SimilarityResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	return e.store.SimilaritySearch(callCtx, vector, limit, filter)
}

func (e *Engine) assemblePrompt(question string, results []models.SimilarityResult) string {
	var contextBuilder strings.Builder
	for _, result := range results {
		contextBuilder.WriteString(result.Content)
		contextBuilder.WriteString("\n\n")
	}

	return fmt.Sprintf(promptTemplate, strings.TrimSpace(contextBuilder.String()), question)
}
