package store

import "errors"

var (
	// ErrNotFound indicates a required read hit a missing key.
	ErrNotFound = errors.New("record not found")

	// ErrEmbeddingFailed indicates the external embedding provider call
	// failed. The store is left unchanged when this is returned.
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrDimensionMismatch indicates a vector's length does not match the
	// store's fixed dimensionality. This is a configuration-level error.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrBackendUnreachable indicates a persistence backend could not be
	// reached.
	ErrBackendUnreachable = errors.New("storage backend unreachable")
)
