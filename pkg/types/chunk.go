package types

import (
	"crypto/sha256"
	"fmt"
)

// ChunkIDSeparator joins a document path and a chunk index into a chunk ID
const ChunkIDSeparator = "#"

// Chunk represents a bounded span of extracted text for embedding
type Chunk struct {
	// Identification
	DocumentPath string
	Index        int // Sequence index within the document, 0-based

	// Content
	Content     string
	ContentHash [32]byte // SHA-256 hash of Content
	TokenCount  int

	// Location
	StartOffset int // Character offset of Content in the document text
	Page        int // 1-based page the chunk starts on, 0 if unknown
}

// ChunkID derives the vector store identifier for chunk index of a document.
// Indices are zero-padded so IDs sort in sequence order.
func ChunkID(documentPath string, index int) string {
	return fmt.Sprintf("%s%s%05d", documentPath, ChunkIDSeparator, index)
}

// ID returns the stable vector store identifier for the chunk
func (c *Chunk) ID() string {
	return ChunkID(c.DocumentPath, c.Index)
}

// ComputeTokenCount estimates the number of tokens in the chunk
// Uses a simple heuristic: characters / 4
func (c *Chunk) ComputeTokenCount() int {
	c.TokenCount = len(c.Content) / 4
	return c.TokenCount
}

// ComputeContentHash computes the SHA-256 hash of the chunk content
func (c *Chunk) ComputeContentHash() {
	c.ContentHash = HashContent(c.Content)
}

// HashContent returns the SHA-256 digest of chunk text
func HashContent(content string) [32]byte {
	return sha256.Sum256([]byte(content))
}

// Validate performs validation of the chunk
func (c *Chunk) Validate() error {
	if c.DocumentPath == "" {
		return ErrMissingDocument
	}
	if c.Index < 0 {
		return ErrInvalidIndex
	}
	if c.Content == "" {
		return ErrEmptyContent
	}
	var zeroHash [32]byte
	if c.ContentHash == zeroHash {
		return fmt.Errorf("content hash must be computed")
	}
	return nil
}
