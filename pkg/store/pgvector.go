package store

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/xhad/pdfrag/internal/models"
	"github.com/xhad/pdfrag/internal/types"
)

const (
	documentsTable  = "pdf_documents"
	embeddingsTable = "pdf_embeddings"
)

type VectorStoreConfig struct {
	ConnString  string
	VectorDim   int
	SearchLimit int
}

// VectorStore persists documents and chunk embeddings in Postgres with
// the pgvector extension. Similarity is cosine distance (the <=>
// operator), ascending; both the ivfflat index and every query use the
// same metric.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(config VectorStoreConfig) (*VectorStore, error) {
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if config.SearchLimit == 0 {
		config.SearchLimit = 10
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, types.Wrap(types.ErrDatabase, fmt.Errorf("failed to connect to database: %w", err))
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize() error {
	ctx := context.Background()

	// Enable pgvector extension
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return types.Wrap(types.ErrDatabase, fmt.Errorf("failed to create vector extension: %w", err))
	}

	createDocuments := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			filename TEXT NOT NULL UNIQUE,
			url TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending'
		)`, documentsTable)

	_, err = vs.pool.Exec(ctx, createDocuments)
	if err != nil {
		return types.Wrap(types.ErrDatabase, fmt.Errorf("failed to create documents table: %w", err))
	}

	createEmbeddings := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			content TEXT NOT NULL,
			embedding vector(%d),
			metadata JSONB,
			source TEXT NOT NULL
		)`, embeddingsTable, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createEmbeddings)
	if err != nil {
		return types.Wrap(types.ErrDatabase, fmt.Errorf("failed to create embeddings table: %w", err))
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		embeddingsTable, embeddingsTable)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return types.Wrap(types.ErrDatabase, fmt.Errorf("failed to create index: %w", err))
	}

	return nil
}

// AddChunks writes a batch of embedded chunks in one transaction. The
// batch succeeds or fails as a whole; a dimension mismatch aborts it.
func (vs *VectorStore) AddChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for i, chunk := range chunks {
		if len(chunk.Embedding) != vs.config.VectorDim {
			return types.Wrap(types.ErrDatabase,
				fmt.Errorf("chunk %d has embedding dimension %d, want %d", i, len(chunk.Embedding), vs.config.VectorDim))
		}
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return types.Wrap(types.ErrDatabase, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (content, embedding, metadata, source)
		VALUES ($1, $2, $3, $4)`, embeddingsTable)

	for _, chunk := range chunks {
		_, err = tx.Exec(ctx, stmt,
			sanitizeUTF8(chunk.Content),
			pgvector.NewVector(chunk.Embedding),
			chunk.Metadata,
			chunk.Source(),
		)
		if err != nil {
			return types.Wrap(types.ErrDatabase, fmt.Errorf("failed to insert chunk: %w", err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return types.Wrap(types.ErrDatabase, fmt.Errorf("failed to commit transaction: %w", err))
	}

	return nil
}

// SimilaritySearch returns up to limit chunks ordered by ascending
// cosine distance to the query vector. A non-empty filter restricts
// results to chunks whose source equals it exactly. Ties are broken by
// id so repeated queries are stable.
func (vs *VectorStore) SimilaritySearch(ctx context.Context, vector []float32, limit int, filter string) ([]models.SimilarityResult, error) {
	if limit <= 0 {
		limit = vs.config.SearchLimit
	}

	query := fmt.Sprintf(`
		SELECT id, content, metadata, embedding <=> $1 AS distance
		FROM %s
		ORDER BY distance ASC, id ASC
		LIMIT $2`, embeddingsTable)

	args := []interface{}{pgvector.NewVector(vector), limit}

	if filter != "" {
		query = fmt.Sprintf(`
			SELECT id, content, metadata, embedding <=> $1 AS distance
			FROM %s
			WHERE source = $3
			ORDER BY distance ASC, id ASC
			LIMIT $2`, embeddingsTable)
		args = append(args, filter)
	}

	rows, err := vs.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, types.Wrap(types.ErrDatabase, fmt.Errorf("failed to query embeddings: %w", err))
	}
	defer rows.Close()

	var results []models.SimilarityResult
	for rows.Next() {
		var result models.SimilarityResult
		err := rows.Scan(
			&result.ID,
			&result.Content,
			&result.Metadata,
			&result.Distance,
		)
		if err != nil {
			return nil, types.Wrap(types.ErrDatabase, fmt.Errorf("failed to scan row: %w", err))
		}
		results = append(results, result)
	}

	return results, nil
}

// InsertDocument records a document with status pending. If a document
// with the same filename already exists the existing row is returned
// unchanged.
func (vs *VectorStore) InsertDocument(ctx context.Context, filename, url string) (models.Document, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (filename, url, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (filename) DO NOTHING
		RETURNING id, filename, url, status`, documentsTable)

	var doc models.Document
	err := vs.pool.QueryRow(ctx, query, filename, url, models.StatusPending).
		Scan(&doc.ID, &doc.Filename, &doc.URL, &doc.Status)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Document{}, types.Wrap(types.ErrDatabase, fmt.Errorf("failed to insert document: %w", err))
	}

	// Conflict: fetch the existing row.
	existing := fmt.Sprintf(`
		SELECT id, filename, url, status FROM %s WHERE filename = $1`, documentsTable)
	err = vs.pool.QueryRow(ctx, existing, filename).
		Scan(&doc.ID, &doc.Filename, &doc.URL, &doc.Status)
	if err != nil {
		return models.Document{}, types.Wrap(types.ErrDatabase, fmt.Errorf("failed to load existing document: %w", err))
	}

	return doc, nil
}

func (vs *VectorStore) DocumentExists(ctx context.Context, filename string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE filename = $1)`, documentsTable)

	var exists bool
	if err := vs.pool.QueryRow(ctx, query, filename).Scan(&exists); err != nil {
		return false, types.Wrap(types.ErrDatabase, fmt.Errorf("failed to check document: %w", err))
	}

	return exists, nil
}

func (vs *VectorStore) ListDocuments(ctx context.Context) ([]models.Document, error) {
	query := fmt.Sprintf(`SELECT id, filename, url, status FROM %s ORDER BY id`, documentsTable)

	rows, err := vs.pool.Query(ctx, query)
	if err != nil {
		return nil, types.Wrap(types.ErrDatabase, fmt.Errorf("failed to list documents: %w", err))
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.URL, &doc.Status); err != nil {
			return nil, types.Wrap(types.ErrDatabase, fmt.Errorf("failed to scan document: %w", err))
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

func (vs *VectorStore) SetDocumentStatus(ctx context.Context, filename, status string) error {
	query := fmt.Sprintf(`UPDATE %s SET status = $2 WHERE filename = $1`, documentsTable)

	if _, err := vs.pool.Exec(ctx, query, filename, status); err != nil {
		return types.Wrap(types.ErrDatabase, fmt.Errorf("failed to update document status: %w", err))
	}

	return nil
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
