package store

import (
	"fmt"
	"strings"
)

// MetadataSuffix marks the searchable metadata chunk of a document.
const MetadataSuffix = ".metadata"

// MetadataKey returns the chunk key of a document's searchable metadata
// chunk.
func MetadataKey(documentID string) string {
	return documentID + MetadataSuffix
}

// ChunkKey returns the chunk key for the n-th content chunk of a split
// document. n is zero-based.
func ChunkKey(documentID string, n int) string {
	return fmt.Sprintf("%s chunk %d", documentID, n)
}

// IsMetadataKey reports whether key names a metadata chunk.
func IsMetadataKey(key string) bool {
	return strings.HasSuffix(key, MetadataSuffix)
}
