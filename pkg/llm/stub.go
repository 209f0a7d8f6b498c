package llm

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// StubEmbedder is a deterministic, offline Embedder: a bag-of-words
// hash projected onto Dim buckets and normalized. Texts sharing words
// land close together under cosine distance, which is all retrieval
// tests need.
type StubEmbedder struct {
	Dim int
}

func (s StubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	dim := s.Dim
	if dim == 0 {
		dim = 64
	}

	vector := make([]float32, dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(word, ".,!?;:")))
		vector[h.Sum32()%uint32(dim)]++
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vector {
			vector[i] = float32(float64(vector[i]) / norm)
		}
	}

	return vector, nil
}

func (s StubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vector, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vector
	}
	return vectors, nil
}

// StubCompleter is a canned Completer. With an empty Response it echoes
// the prompt, letting tests assert on what was assembled.
type StubCompleter struct {
	Response string
	Err      error
}

func (s StubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	if s.Response == "" {
		return prompt, nil
	}
	return s.Response, nil
}
