package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/pdfindex/internal/embedder"
	"github.com/dshills/pdfindex/internal/extractor"
	"github.com/dshills/pdfindex/pkg/types"
)

const brokenMarker = "BROKEN"

// mockExtractor treats each file's bytes as the text of a single page.
// Files whose content starts with brokenMarker fail extraction.
type mockExtractor struct {
	mu    sync.Mutex
	calls []string
}

func (m *mockExtractor) Extract(ctx context.Context, path string) (*extractor.Document, error) {
	m.mu.Lock()
	m.calls = append(m.calls, filepath.Base(path))
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrExtraction, err)
	}
	if strings.HasPrefix(string(data), brokenMarker) {
		return nil, fmt.Errorf("%w: malformed pdf", types.ErrExtraction)
	}
	return &extractor.Document{Pages: []extractor.Page{{Number: 1, Text: string(data)}}}, nil
}

func (m *mockExtractor) extracted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// mockEmbedder implements embedder.Embedder for testing
type mockEmbedder struct {
	dimension int
	modelName string
	failAfter int // fail every batch after this many succeeded; <0 never fails
	batchErr  error
	batches   int
	mu        sync.Mutex
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{dimension: 8, modelName: "test-v1", failAfter: -1}
}

func (m *mockEmbedder) model() string { return m.modelName }

func (m *mockEmbedder) vector(text string) []float32 {
	v := make([]float32, m.dimension)
	for i := range v {
		v[i] = float32(len(text)%7+i) / 10
	}
	return v
}

func (m *mockEmbedder) Embed(ctx context.Context, batch embedder.Batch) ([]*embedder.Embedding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.batchErr != nil {
		return nil, m.batchErr
	}
	if m.failAfter >= 0 && m.batches >= m.failAfter {
		return nil, errors.New("quota exceeded")
	}
	m.batches++

	embeddings := make([]*embedder.Embedding, len(batch.Chunks))
	for i, c := range batch.Chunks {
		embeddings[i] = &embedder.Embedding{
			Vector:      m.vector(c.Content),
			Provider:    "mock",
			Model:       m.model(),
			ContentHash: c.ContentHash,
		}
	}
	return embeddings, nil
}

func (m *mockEmbedder) Dimension() int   { return m.dimension }
func (m *mockEmbedder) Provider() string { return "mock" }
func (m *mockEmbedder) Model() string    { return m.model() }
func (m *mockEmbedder) Close() error     { return nil }

var _ embedder.Embedder = (*mockEmbedder)(nil)
var _ extractor.Extractor = (*mockExtractor)(nil)

// writeFile writes content to dir/name, creating parent directories
func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
