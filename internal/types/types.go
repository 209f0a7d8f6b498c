package types

import (
	"context"
	"io"

	"github.com/xhad/pdfrag/internal/models"
)

// Core interfaces

// Extractor pulls per-page text segments out of a PDF.
type Extractor interface {
	Extract(ctx context.Context, r io.ReaderAt, size int64, source string) ([]models.Segment, error)
}

// Embedder turns text into fixed-dimension vectors. EmbedBatch preserves
// input order and returns one vector per input.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer generates an answer from an assembled prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// VectorStore persists chunks and documents and runs similarity queries.
type VectorStore interface {
	AddChunks(ctx context.Context, chunks []models.Chunk) error
	SimilaritySearch(ctx context.Context, vector []float32, limit int, filter string) ([]models.SimilarityResult, error)
	InsertDocument(ctx context.Context, filename, url string) (models.Document, error)
	DocumentExists(ctx context.Context, filename string) (bool, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
	SetDocumentStatus(ctx context.Context, filename, status string) error
	Close()
}

// ObjectStore holds the raw uploaded files.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}
