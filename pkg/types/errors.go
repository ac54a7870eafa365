package types

import (
	"errors"
	"fmt"
)

// Error kinds of a build run
var (
	// ErrNotFound is returned when the source directory or a required input is missing.
	// Fatal, raised before any mutation.
	ErrNotFound = errors.New("not found")

	// ErrExtraction is returned when a single PDF cannot be parsed.
	// Recovered locally: the file is skipped and retried next run.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbeddingProvider is returned when an embedding request fails.
	// Fatal for the run; the processed-files record is not advanced.
	ErrEmbeddingProvider = errors.New("embedding provider failed")

	// ErrPersistence is returned when the record or build log cannot be written.
	ErrPersistence = errors.New("persistence failed")

	// ErrInconsistentStore is returned when the vector store fails its integrity check
	ErrInconsistentStore = errors.New("vector store inconsistent")

	// Chunk validation errors
	ErrEmptyContent    = errors.New("content cannot be empty")
	ErrMissingDocument = errors.New("document path is required")
	ErrInvalidIndex    = errors.New("chunk index must be >= 0")
)

// FileError records a per-file failure that did not abort the run
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
