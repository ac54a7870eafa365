package chunker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/dshills/pdfindex/internal/extractor"
	"github.com/dshills/pdfindex/pkg/types"
)

const (
	// DefaultChunkSize is the target chunk length in characters
	DefaultChunkSize = 5000

	// DefaultChunkOverlap is the number of characters shared by neighbouring chunks
	DefaultChunkOverlap = 2000

	// TokensPerChar is the heuristic for estimating tokens (chars/4)
	TokensPerChar = 4
)

// Config controls chunk sizing. Sizing is a tunable, not a correctness constraint.
type Config struct {
	ChunkSize    int // Characters per chunk (default: 5000)
	ChunkOverlap int // Characters of overlap (default: 2000)
}

// DefaultConfig returns the default chunk sizing
func DefaultConfig() Config {
	return Config{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
	}
}

// Validate checks that the sizing is usable
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("chunk overlap must not be negative, got %d", c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

// Chunker splits extracted document text into fixed-size overlapping chunks
type Chunker struct {
	config   Config
	splitter textsplitter.RecursiveCharacter
}

// New creates a Chunker with the default sizing
func New() *Chunker {
	c, _ := NewWithConfig(DefaultConfig())
	return c
}

// NewWithConfig creates a Chunker with explicit sizing
func NewWithConfig(config Config) (*Chunker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(config.ChunkSize),
		textsplitter.WithChunkOverlap(config.ChunkOverlap),
		textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
	)

	return &Chunker{
		config:   config,
		splitter: splitter,
	}, nil
}

// Config returns the sizing in use
func (c *Chunker) Config() Config {
	return c.config
}

// ChunkDocument creates ordered chunks for the document stored at documentPath
// (the relative path used as the chunk identifier space)
func (c *Chunker) ChunkDocument(documentPath string, doc *extractor.Document) ([]*types.Chunk, error) {
	text := doc.Text()
	if strings.TrimSpace(text) == "" {
		return []*types.Chunk{}, nil
	}

	pieces, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("failed to split %s: %w", documentPath, err)
	}

	pageStarts := pageOffsets(doc.Pages)
	chunks := make([]*types.Chunk, 0, len(pieces))
	searchFrom := 0
	prevStart, prevLen := -1, 0

	for _, piece := range pieces {
		if strings.TrimSpace(piece) == "" {
			continue
		}

		// Locate the piece in the source text, starting just before the overlap
		// window of the previous chunk
		if prevStart >= 0 {
			searchFrom = prevStart + prevLen - c.config.ChunkOverlap
			if searchFrom < 0 {
				searchFrom = 0
			}
		}
		start := indexFrom(text, piece, searchFrom)

		chunk := &types.Chunk{
			DocumentPath: documentPath,
			Index:        len(chunks),
			Content:      piece,
			StartOffset:  start,
			Page:         pageAt(pageStarts, doc.Pages, start),
		}
		chunk.ComputeTokenCount()
		chunk.ComputeContentHash()
		chunks = append(chunks, chunk)

		if start >= 0 {
			prevStart, prevLen = start, len(piece)
		}
	}

	return chunks, nil
}

// indexFrom finds needle in haystack at or after from, -1 if absent
func indexFrom(haystack, needle string, from int) int {
	if from > len(haystack) {
		return -1
	}
	idx := strings.Index(haystack[from:], needle)
	if idx < 0 {
		return -1
	}
	return from + idx
}

// pageOffsets returns the character offset at which each page starts in Document.Text
func pageOffsets(pages []extractor.Page) []int {
	offsets := make([]int, len(pages))
	pos := 0
	for i, p := range pages {
		offsets[i] = pos
		pos += len(p.Text) + len("\n\n")
	}
	return offsets
}

// pageAt maps a character offset to the page containing it
func pageAt(offsets []int, pages []extractor.Page, offset int) int {
	if offset < 0 || len(pages) == 0 {
		return 0
	}
	i := sort.Search(len(offsets), func(i int) bool { return offsets[i] > offset }) - 1
	if i < 0 {
		i = 0
	}
	return pages[i].Number
}

// ComputeChunkHash computes the SHA-256 hash for a chunk's content
func ComputeChunkHash(content string) [32]byte {
	return types.HashContent(content)
}

// EstimateTokenCount estimates the number of tokens in a string
func EstimateTokenCount(text string) int {
	return len(text) / TokensPerChar
}
