package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xhad/pdfrag/internal/types"
)

// StageFile writes r to dir/<base of filename> so extraction can read
// the PDF with random access. The directory is created on first use.
func StageFile(dir, filename string, r io.Reader) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", types.Wrap(types.ErrStorage, fmt.Errorf("failed to create staging dir: %w", err))
	}

	path := filepath.Join(dir, filepath.Base(filename))

	f, err := os.Create(path)
	if err != nil {
		return "", types.Wrap(types.ErrStorage, fmt.Errorf("failed to stage %s: %w", filename, err))
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", types.Wrap(types.ErrStorage, fmt.Errorf("failed to stage %s: %w", filename, err))
	}

	return path, nil
}
