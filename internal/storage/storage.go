package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/dshills/pdfindex/pkg/types"
)

// Storage defines the interface for persisting indexed document data
type Storage interface {
	// Document operations
	UpsertDocument(ctx context.Context, doc *Document, chunks []*Chunk, embeddings []*Embedding) error
	GetDocument(ctx context.Context, path string) (*Document, error)
	ListDocuments(ctx context.Context) ([]*Document, error)
	DeleteDocument(ctx context.Context, path string) error

	// Chunk operations
	ListChunks(ctx context.Context, path string) ([]*Chunk, error)

	// Embedding operations
	GetEmbedding(ctx context.Context, chunkID string) (*Embedding, error)

	// Status operations
	Stats(ctx context.Context) (*Stats, error)
	CheckIntegrity(ctx context.Context) (*IntegrityReport, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx groups document removals so a run deletes all of them or none
type Tx interface {
	ListDocuments(ctx context.Context) ([]*Document, error)
	DeleteDocument(ctx context.Context, path string) error
	Commit() error
	Rollback() error
}

// Document is one source file as last written to the store
type Document struct {
	Path        string // Relative to the source directory
	Fingerprint types.Fingerprint
	PageCount   int
	ChunkCount  int
	IndexedAt   time.Time
}

// Chunk is a stored text section of a document
type Chunk struct {
	ID           string // types.ChunkID(DocumentPath, Index)
	DocumentPath string
	Index        int
	Content      string
	ContentHash  [32]byte
	TokenCount   int
	StartOffset  int
	Page         int
}

// Embedding is the vector stored for a chunk
type Embedding struct {
	ChunkID   string
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
	CreatedAt time.Time
}

// Stats summarizes the contents of the store
type Stats struct {
	Documents     int
	Chunks        int
	Embeddings    int
	Dimension     int      // 0 when empty or mixed
	Models        []string // distinct provider/model pairs
	SizeBytes     int64
	LastIndexedAt time.Time
	SchemaVersion string
	BuildMode     string
}

// IntegrityReport lists inconsistencies found in the store
type IntegrityReport struct {
	MissingEmbeddings  []string // chunk ids without an embedding
	MalformedVectors   []string // chunk ids whose blob does not match the recorded dimension
	MixedDimensions    bool
	ChunkCountMismatch []string // document paths whose chunk_count disagrees with the chunk rows
}

// OK reports whether no inconsistencies were found
func (r *IntegrityReport) OK() bool {
	return len(r.MissingEmbeddings) == 0 &&
		len(r.MalformedVectors) == 0 &&
		!r.MixedDimensions &&
		len(r.ChunkCountMismatch) == 0
}

// Err returns types.ErrInconsistentStore describing the problems, or nil
func (r *IntegrityReport) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("%w: %d chunks without embeddings, %d malformed vectors, mixed dimensions=%t, %d documents with wrong chunk count",
		types.ErrInconsistentStore, len(r.MissingEmbeddings), len(r.MalformedVectors), r.MixedDimensions, len(r.ChunkCountMismatch))
}

// FromTypesChunk converts types.Chunk to storage Chunk
func FromTypesChunk(c *types.Chunk) *Chunk {
	return &Chunk{
		ID:           c.ID(),
		DocumentPath: c.DocumentPath,
		Index:        c.Index,
		Content:      c.Content,
		ContentHash:  c.ContentHash,
		TokenCount:   c.TokenCount,
		StartOffset:  c.StartOffset,
		Page:         c.Page,
	}
}

// ToTypesChunk converts storage Chunk to types.Chunk
func (c *Chunk) ToTypesChunk() *types.Chunk {
	return &types.Chunk{
		DocumentPath: c.DocumentPath,
		Index:        c.Index,
		Content:      c.Content,
		ContentHash:  c.ContentHash,
		TokenCount:   c.TokenCount,
		StartOffset:  c.StartOffset,
		Page:         c.Page,
	}
}
