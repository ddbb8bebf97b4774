package rag

import (
	"errors"
	"fmt"
)

// EmbeddingError reports a failure of the embedding provider.
// Op is "build" for index construction and "query" for query embedding.
type EmbeddingError struct {
	Op  string
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed during %s: %v", e.Op, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// GenerationError reports a failure of the completion provider.
type GenerationError struct {
	Timeout bool
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("generation timed out: %v", e.Err)
	}
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IndexNotReadyError is returned by queries when the lazy index build failed.
type IndexNotReadyError struct {
	Cause error
}

func (e *IndexNotReadyError) Error() string {
	return fmt.Sprintf("index not ready: %v", e.Cause)
}

func (e *IndexNotReadyError) Unwrap() error {
	return e.Cause
}

// IsTimeout reports whether err is a timed-out generation.
func IsTimeout(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr) && genErr.Timeout
}
