package embedder

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/pdfindex/pkg/types"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrProviderFailed    = errors.New("embedding provider failed")
	ErrMalformedResponse = errors.New("malformed embedding response")
	ErrUnsupportedModel  = errors.New("unsupported model")
	ErrBatchTooLarge     = errors.New("batch size exceeds limit")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
)

// Embedding is the vector computed for one chunk
type Embedding struct {
	Vector      []float32
	Provider    string
	Model       string
	ContentHash [32]byte // hash of the embedded chunk text
}

// Batch is a run of consecutive chunks of one document sent in a single
// provider request
type Batch struct {
	Document string
	Chunks   []*types.Chunk
}

// Batches splits the chunks of a document into batches of at most size chunks
func Batches(document string, chunks []*types.Chunk, size int) []Batch {
	if size <= 0 || size > MaxBatchSize {
		size = DefaultBatchSize
	}
	out := make([]Batch, 0, (len(chunks)+size-1)/size)
	for start := 0; start < len(chunks); start += size {
		end := min(start+size, len(chunks))
		out = append(out, Batch{Document: document, Chunks: chunks[start:end]})
	}
	return out
}

// TextBatch wraps free text, such as a connectivity check, as a batch
func TextBatch(texts ...string) Batch {
	b := Batch{Chunks: make([]*types.Chunk, len(texts))}
	for i, text := range texts {
		b.Chunks[i] = &types.Chunk{Index: i, Content: text, ContentHash: types.HashContent(text)}
	}
	return b
}

// Validate rejects empty or oversized batches and chunks without text
func (b Batch) Validate() error {
	if len(b.Chunks) == 0 {
		return fmt.Errorf("%w: no chunks in batch", ErrInvalidInput)
	}
	if len(b.Chunks) > MaxBatchSize {
		return fmt.Errorf("%w: %d chunks, max %d", ErrBatchTooLarge, len(b.Chunks), MaxBatchSize)
	}
	for i, c := range b.Chunks {
		if c == nil || c.Content == "" {
			return fmt.Errorf("%w: chunk %d of %q is empty", ErrInvalidInput, i, b.Document)
		}
	}
	return nil
}

// Embedder turns chunk batches into vectors
type Embedder interface {
	// Embed returns one embedding per chunk of batch, in chunk order
	Embed(ctx context.Context, batch Batch) ([]*Embedding, error)

	// Dimension returns the vector length, 0 until known
	Dimension() int

	Provider() string
	Model() string

	Close() error
}

type cacheKey struct {
	model string
	hash  [32]byte
}

// Cache keeps the vectors of recently embedded chunks keyed by model and
// content hash. Unchanged chunks of a modified document skip the provider.
// A nil *Cache is valid and never hits.
type Cache struct {
	lru *lru.Cache[cacheKey, []float32]
}

// NewCache creates a cache holding up to size vectors
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[cacheKey, []float32](size)
	if err != nil {
		c, _ = lru.New[cacheKey, []float32](DefaultCacheSize)
	}
	return &Cache{lru: c}
}

// Get returns a copy of the cached vector
func (c *Cache) Get(model string, hash [32]byte) ([]float32, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.lru.Get(cacheKey{model, hash})
	if !ok {
		return nil, false
	}
	return append([]float32(nil), v...), true
}

// Add stores a vector, evicting the least recently used one when full
func (c *Cache) Add(model string, hash [32]byte, vector []float32) {
	if c == nil {
		return
	}
	c.lru.Add(cacheKey{model, hash}, vector)
}

// Len returns the number of cached vectors
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// fetchFunc asks a provider for the vectors of texts, in order
type fetchFunc func(ctx context.Context, texts []string) ([][]float32, error)

// embedBatch serves what it can of batch from cache and fetches the rest in
// one call
func embedBatch(ctx context.Context, cache *Cache, provider, model string, batch Batch, fetch fetchFunc) ([]*Embedding, error) {
	if err := batch.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]*Embedding, len(batch.Chunks))
	var missing []int
	for i, c := range batch.Chunks {
		if v, ok := cache.Get(model, c.ContentHash); ok {
			out[i] = &Embedding{Vector: v, Provider: provider, Model: model, ContentHash: c.ContentHash}
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	texts := make([]string, len(missing))
	for j, i := range missing {
		texts[j] = batch.Chunks[i].Content
	}
	vectors, err := fetch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrMalformedResponse, len(vectors), len(texts))
	}

	for j, i := range missing {
		hash := batch.Chunks[i].ContentHash
		cache.Add(model, hash, vectors[j])
		out[i] = &Embedding{
			Vector:      append([]float32(nil), vectors[j]...),
			Provider:    provider,
			Model:       model,
			ContentHash: hash,
		}
	}
	return out, nil
}

// ValidateVectors checks that a provider returned exactly one non-empty vector
// per input and that every vector has the same length. When dimension is
// non-zero the vectors must also match it.
func ValidateVectors(want int, vectors [][]float32, dimension int) error {
	if len(vectors) != want {
		return fmt.Errorf("%w: got %d vectors for %d texts", ErrMalformedResponse, len(vectors), want)
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("%w: vector %d is empty", ErrMalformedResponse, i)
		}
		if len(v) != len(vectors[0]) {
			return fmt.Errorf("%w: vector %d has length %d, expected %d", ErrMalformedResponse, i, len(v), len(vectors[0]))
		}
		if dimension > 0 && len(v) != dimension {
			return fmt.Errorf("%w: vector %d has length %d, model dimension is %d", ErrMalformedResponse, i, len(v), dimension)
		}
	}
	return nil
}
