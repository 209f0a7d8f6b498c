package processor

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/xhad/pdfrag/internal/models"
)

type ProcessorConfig struct {
	ChunkSize    int // characters per chunk
	ChunkOverlap int // characters shared between consecutive chunks
}

// Processor splits extracted segments into bounded chunks ready for
// embedding. Sizes are measured in characters. Splitting is
// deterministic: the same segments and config always produce the same
// chunk sequence.
type Processor struct {
	config   ProcessorConfig
	splitter textsplitter.RecursiveCharacter
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.ChunkSize == 0 {
		config.ChunkSize = 500
	}
	if config.ChunkOverlap < 0 {
		config.ChunkOverlap = 0
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(config.ChunkSize),
		textsplitter.WithChunkOverlap(config.ChunkOverlap),
	)

	return Processor{
		config:   config,
		splitter: splitter,
	}
}

// Split turns segments into chunk candidates. Each chunk inherits the
// source and page of the segment it came from. Embeddings are filled in
// later by the ingestion pipeline.
func (p *Processor) Split(segments []models.Segment) ([]models.Chunk, error) {
	var chunks []models.Chunk

	for _, seg := range segments {
		parts, err := p.splitter.SplitText(seg.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to split segment (page %d): %w", seg.Page, err)
		}

		for _, part := range parts {
			if part == "" {
				continue
			}
			chunks = append(chunks, models.Chunk{
				Content: part,
				Metadata: map[string]interface{}{
					"source": seg.Source,
					"page":   seg.Page,
				},
			})
		}
	}

	return chunks, nil
}
