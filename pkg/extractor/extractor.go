package extractor

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"

	"github.com/xhad/pdfrag/internal/models"
	"github.com/xhad/pdfrag/internal/types"
)

// Extractor reads a PDF and returns one text segment per page that
// carries text. Image-only pages are skipped, so a scanned document
// yields zero segments rather than an error.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, r io.ReaderAt, size int64, source string) (segments []models.Segment, err error) {
	// The underlying pdf reader panics on some malformed files.
	defer func() {
		if rec := recover(); rec != nil {
			segments = nil
			err = types.Wrap(types.ErrExtraction, fmt.Errorf("reading %s: %v", source, rec))
		}
	}()

	loader := documentloaders.NewPDF(r, size)
	docs, err := loader.Load(ctx)
	if err != nil {
		return nil, types.Wrap(types.ErrExtraction, fmt.Errorf("reading %s: %w", source, err))
	}

	for i, doc := range docs {
		text := strings.TrimSpace(doc.PageContent)
		if text == "" {
			continue
		}

		page := i + 1
		if p, ok := doc.Metadata["page"].(int); ok {
			page = p
		}

		segments = append(segments, models.Segment{
			Text:   text,
			Page:   page,
			Source: source,
		})
	}

	return segments, nil
}
