package types

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds. Pipeline stages wrap their failures with one of these so
// the boundary can tell service faults apart from user mistakes without
// inspecting messages.
var (
	ErrExtraction        = errors.New("extraction failed")
	ErrEmbeddingService  = errors.New("embedding service error")
	ErrCompletionService = errors.New("completion service error")
	ErrStorage           = errors.New("object storage error")
	ErrDatabase          = errors.New("database error")
	ErrTimeout           = errors.New("external call timed out")
	ErrValidation        = errors.New("validation error")
)

// Wrap tags err with kind, keeping both visible to errors.Is. Timeouts
// take precedence so callers see ErrTimeout rather than the stage kind.
func Wrap(kind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", kind, err)
}

// IsServiceError reports whether err is a failure of an external
// collaborator rather than bad user input.
func IsServiceError(err error) bool {
	return errors.Is(err, ErrEmbeddingService) ||
		errors.Is(err, ErrCompletionService) ||
		errors.Is(err, ErrStorage) ||
		errors.Is(err, ErrDatabase) ||
		errors.Is(err, ErrTimeout)
}
