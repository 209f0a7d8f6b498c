package models

// Document status lifecycle. A document is pending until its chunks
// are stored, ready afterwards, failed if vectorization broke partway.
const (
	StatusPending = "pending"
	StatusReady   = "ready"
	StatusFailed  = "failed"
)

// Document is one ingested PDF, identified by its filename.
type Document struct {
	ID       int64
	Filename string
	URL      string
	Status   string
}

// Segment is a page-scoped piece of extracted text.
type Segment struct {
	Text   string
	Page   int
	Source string
}

// Chunk is a bounded slice of a document's text, embedded and stored
// independently for retrieval.
type Chunk struct {
	Content   string
	Embedding []float32
	Metadata  map[string]interface{}
}

// SimilarityResult is a retrieved chunk plus its distance to the query
// vector. Smaller distance means more similar.
type SimilarityResult struct {
	ID       int64                  `json:"id"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
	Distance float64                `json:"distance"`
}

// Source returns the chunk's originating filename, if recorded.
func (c Chunk) Source() string {
	if c.Metadata == nil {
		return ""
	}
	if s, ok := c.Metadata["source"].(string); ok {
		return s
	}
	return ""
}
