package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/xhad/pdfrag/internal/models"
	"github.com/xhad/pdfrag/internal/types"
)

// Memory is an in-process VectorStore with the same semantics as the
// pgvector adapter: cosine distance, ascending order, ties broken by
// insertion id, per-batch all-or-nothing writes. It backs tests and
// local runs without Postgres.
type Memory struct {
	mu        sync.RWMutex
	vectorDim int
	nextID    int64
	chunks    []memoryChunk
	docs      []models.Document
}

type memoryChunk struct {
	id        int64
	content   string
	embedding []float32
	metadata  map[string]interface{}
	source    string
}

// NewMemory creates an empty in-memory store. A zero vectorDim accepts
// the dimension of the first chunk written.
func NewMemory(vectorDim int) *Memory {
	return &Memory{vectorDim: vectorDim, nextID: 1}
}

func (m *Memory) AddChunks(ctx context.Context, chunks []models.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(chunks) == 0 {
		return nil
	}

	if m.vectorDim == 0 {
		m.vectorDim = len(chunks[0].Embedding)
	}

	// Validate the whole batch before writing anything.
	for i, chunk := range chunks {
		if len(chunk.Embedding) != m.vectorDim {
			return types.Wrap(types.ErrDatabase,
				fmt.Errorf("chunk %d has embedding dimension %d, want %d", i, len(chunk.Embedding), m.vectorDim))
		}
	}

	for _, chunk := range chunks {
		m.chunks = append(m.chunks, memoryChunk{
			id:        m.nextID,
			content:   chunk.Content,
			embedding: chunk.Embedding,
			metadata:  chunk.Metadata,
			source:    chunk.Source(),
		})
		m.nextID++
	}

	return nil
}

func (m *Memory) SimilaritySearch(ctx context.Context, vector []float32, limit int, filter string) ([]models.SimilarityResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	if m.vectorDim != 0 && len(vector) != m.vectorDim {
		return nil, types.Wrap(types.ErrDatabase,
			fmt.Errorf("query vector has dimension %d, want %d", len(vector), m.vectorDim))
	}

	var results []models.SimilarityResult
	for _, chunk := range m.chunks {
		if filter != "" && chunk.source != filter {
			continue
		}
		results = append(results, models.SimilarityResult{
			ID:       chunk.id,
			Content:  chunk.content,
			Metadata: chunk.metadata,
			Distance: cosineDistance(vector, chunk.embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

func (m *Memory) InsertDocument(ctx context.Context, filename, url string) (models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, doc := range m.docs {
		if doc.Filename == filename {
			return doc, nil
		}
	}

	doc := models.Document{
		ID:       int64(len(m.docs) + 1),
		Filename: filename,
		URL:      url,
		Status:   models.StatusPending,
	}
	m.docs = append(m.docs, doc)

	return doc, nil
}

func (m *Memory) DocumentExists(ctx context.Context, filename string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, doc := range m.docs {
		if doc.Filename == filename {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) ListDocuments(ctx context.Context) ([]models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make([]models.Document, len(m.docs))
	copy(docs, m.docs)
	return docs, nil
}

func (m *Memory) SetDocumentStatus(ctx context.Context, filename, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.docs {
		if m.docs[i].Filename == filename {
			m.docs[i].Status = status
			return nil
		}
	}
	return types.Wrap(types.ErrDatabase, fmt.Errorf("no document named %s", filename))
}

func (m *Memory) Close() {}

// cosineDistance matches pgvector's <=> operator: 1 - cosine similarity.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
