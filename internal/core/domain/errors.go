package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrTemporary        = errors.New("temporary failure")

	// ErrDimensionMismatch means the query embedding's dimensionality does
	// not match the stored vectors. Re-indexing is required; the engine never
	// truncates or pads silently.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch, re-index required")

	// ErrEmbeddingUnavailable means the embedding provider failed and the
	// caller did not request the lexical-only fallback.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
