package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/xhad/pdfrag/internal/models"
	"github.com/xhad/pdfrag/internal/types"
	"github.com/xhad/pdfrag/pkg/processor"
	"github.com/xhad/pdfrag/pkg/storage"
)

// Stage names reported through the progress callback.
const (
	StageUpload  = "upload"
	StageExtract = "extract"
	StageChunk   = "chunk"
	StageEmbed   = "embed"
	StageStore   = "store"
)

type OrchestratorConfig struct {
	KeyPrefix  string        // object key prefix, e.g. "public/"
	TmpDir     string        // local staging directory
	Timeout    time.Duration // per external call
	OnProgress func(stage string, count int)
}

// Orchestrator runs the upload-time pipeline: persist the raw file,
// record the document, extract, chunk, embed, store vectors.
type Orchestrator struct {
	config    OrchestratorConfig
	objects   types.ObjectStore
	store     types.VectorStore
	extractor types.Extractor
	processor *processor.Processor
	embedder  types.Embedder
}

func NewOrchestrator(objects types.ObjectStore, store types.VectorStore, extractor types.Extractor, proc *processor.Processor, embedder types.Embedder, config OrchestratorConfig) *Orchestrator {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "public/"
	}
	if config.TmpDir == "" {
		config.TmpDir = filepath.Join(os.TempDir(), "pdfrag")
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	return &Orchestrator{
		config:    config,
		objects:   objects,
		store:     store,
		extractor: extractor,
		processor: proc,
		embedder:  embedder,
	}
}

// Ingest uploads the file and vectorizes its text. Re-ingesting a
// filename whose document is already ready skips vectorization; a
// previously failed one is retried. If vectorization fails after the
// document record exists, the record stays (status failed) and the
// error is returned.
func (o *Orchestrator) Ingest(ctx context.Context, r io.Reader, filename string) (models.Document, error) {
	filename = filepath.Base(filename)
	if filename == "" || filename == "." {
		return models.Document{}, types.Wrap(types.ErrValidation, fmt.Errorf("filename is required"))
	}

	// Stage locally first so the bytes can be both uploaded and read
	// back with random access for extraction.
	path, err := storage.StageFile(o.config.TmpDir, filename, r)
	if err != nil {
		return models.Document{}, err
	}
	defer os.Remove(path)

	url, err := o.upload(ctx, path, filename)
	if err != nil {
		return models.Document{}, err
	}
	o.progress(StageUpload, 1)

	doc, err := o.store.InsertDocument(ctx, filename, url)
	if err != nil {
		return models.Document{}, err
	}

	if doc.Status == models.StatusReady {
		// Idempotent re-upload: the bytes were overwritten in storage
		// but the chunks are already in place.
		log.Printf("document %s already ingested, skipping vectorization", filename)
		return doc, nil
	}

	if err := o.vectorize(ctx, path, filename); err != nil {
		if statusErr := o.store.SetDocumentStatus(ctx, filename, models.StatusFailed); statusErr != nil {
			log.Printf("failed to mark %s as failed: %v", filename, statusErr)
		}
		doc.Status = models.StatusFailed
		return doc, err
	}

	if err := o.store.SetDocumentStatus(ctx, filename, models.StatusReady); err != nil {
		return doc, err
	}
	doc.Status = models.StatusReady

	return doc, nil
}

func (o *Orchestrator) upload(ctx context.Context, path, filename string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", types.Wrap(types.ErrStorage, fmt.Errorf("failed to open staged file: %w", err))
	}
	defer f.Close()

	callCtx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	return o.objects.Put(callCtx, o.config.KeyPrefix+filename, f)
}

func (o *Orchestrator) vectorize(ctx context.Context, path, filename string) error {
	f, err := os.Open(path)
	if err != nil {
		return types.Wrap(types.ErrExtraction, fmt.Errorf("failed to open staged file: %w", err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return types.Wrap(types.ErrExtraction, fmt.Errorf("failed to stat staged file: %w", err))
	}

	segments, err := o.extractor.Extract(ctx, f, info.Size(), filename)
	if err != nil {
		return err
	}
	o.progress(StageExtract, len(segments))

	if len(segments) == 0 {
		// Image-only or empty PDF: nothing to vectorize.
		log.Printf("no extractable text in %s, skipping vectorization", filename)
		return nil
	}

	chunks, err := o.processor.Split(segments)
	if err != nil {
		return err
	}
	o.progress(StageChunk, len(chunks))

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	embedCtx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	vectors, err := o.embedder.EmbedBatch(embedCtx, texts)
	if err != nil {
		return err
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	o.progress(StageEmbed, len(chunks))

	storeCtx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	if err := o.store.AddChunks(storeCtx, chunks); err != nil {
		return err
	}
	o.progress(StageStore, len(chunks))

	return nil
}

func (o *Orchestrator) progress(stage string, count int) {
	if o.config.OnProgress != nil {
		o.config.OnProgress(stage, count)
	}
}
