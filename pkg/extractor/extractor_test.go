package extractor_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/pdfrag/internal/types"
	"github.com/xhad/pdfrag/pkg/extractor"
)

func openFixture(t *testing.T, name string) (*os.File, int64) {
	t.Helper()

	f, err := os.Open("testdata/" + name)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	info, err := f.Stat()
	require.NoError(t, err)

	return f, info.Size()
}

func TestExtract(t *testing.T) {
	f, size := openFixture(t, "report.pdf")

	segments, err := extractor.New().Extract(context.Background(), f, size, "report.pdf")
	require.NoError(t, err)
	require.Len(t, segments, 2)

	assert.Contains(t, segments[0].Text, "Revenue grew 20 percent")
	assert.Contains(t, segments[1].Text, "Weather was mild")

	for i, seg := range segments {
		assert.Equal(t, i+1, seg.Page)
		assert.Equal(t, "report.pdf", seg.Source)
	}
}

func TestExtractEmptyPDF(t *testing.T) {
	f, size := openFixture(t, "empty.pdf")

	segments, err := extractor.New().Extract(context.Background(), f, size, "empty.pdf")
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestExtractCorruptPDF(t *testing.T) {
	f, size := openFixture(t, "corrupt.pdf")

	segments, err := extractor.New().Extract(context.Background(), f, size, "corrupt.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrExtraction)
	assert.Nil(t, segments)
}
