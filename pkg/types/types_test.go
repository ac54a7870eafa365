package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkID(t *testing.T) {
	assert.Equal(t, "a.pdf#00000", ChunkID("a.pdf", 0))
	assert.Equal(t, "dir/b.pdf#00042", ChunkID("dir/b.pdf", 42))
	assert.Less(t, ChunkID("a.pdf", 9), ChunkID("a.pdf", 10), "ids sort in index order")
}

func TestChunk_Validate(t *testing.T) {
	valid := func() *Chunk {
		c := &Chunk{DocumentPath: "a.pdf", Index: 0, Content: "hello"}
		c.ComputeContentHash()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Chunk)
		wantErr error
	}{
		{"valid", func(*Chunk) {}, nil},
		{"missing path", func(c *Chunk) { c.DocumentPath = "" }, ErrMissingDocument},
		{"negative index", func(c *Chunk) { c.Index = -1 }, ErrInvalidIndex},
		{"empty content", func(c *Chunk) { c.Content = "" }, ErrEmptyContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}

	noHash := &Chunk{DocumentPath: "a.pdf", Content: "x"}
	assert.Error(t, noHash.Validate())
}

func TestChunk_Hashing(t *testing.T) {
	c := &Chunk{Content: "12345678"}
	c.ComputeContentHash()

	assert.Equal(t, HashContent("12345678"), c.ContentHash)
	assert.NotEqual(t, HashContent("other"), c.ContentHash)
	assert.Equal(t, 2, c.ComputeTokenCount())
}

func TestFingerprint(t *testing.T) {
	fp := FingerprintOf([]byte("pdf bytes"))

	assert.True(t, fp.Valid())
	assert.Equal(t, fp, FingerprintOf([]byte("pdf bytes")))
	assert.NotEqual(t, fp, FingerprintOf([]byte("other bytes")))
	assert.Len(t, fp.String(), len(FingerprintPrefix)+64)
}

func TestFingerprint_Valid(t *testing.T) {
	tests := []struct {
		fp   Fingerprint
		want bool
	}{
		{FingerprintOf(nil), true},
		{"", false},
		{"md5:abc", false},
		{"sha256:abc", false},
		{Fingerprint("sha256:" + string(make([]byte, 64))), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.fp.Valid(), "fingerprint %q", tt.fp)
	}
}

func TestFileError(t *testing.T) {
	err := &FileError{Path: "a.pdf", Err: fmt.Errorf("%w: bad xref", ErrExtraction)}

	assert.Equal(t, "a.pdf: extraction failed: bad xref", err.Error())
	assert.ErrorIs(t, err, ErrExtraction)

	var fileErr *FileError
	wrapped := fmt.Errorf("run: %w", err)
	require.True(t, errors.As(wrapped, &fileErr))
	assert.Equal(t, "a.pdf", fileErr.Path)
}
