package embedder

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/pdfindex/pkg/types"
)

func TestCache(t *testing.T) {
	cache := NewCache(2)
	a, b, c := types.HashContent("a"), types.HashContent("b"), types.HashContent("c")

	cache.Add("m", a, []float32{1, 2, 3})

	got, ok := cache.Get("m", a)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, got)

	_, ok = cache.Get("other-model", a)
	assert.False(t, ok, "entries are scoped to a model")

	// Returned vectors are copies
	got[0] = 99
	again, _ := cache.Get("m", a)
	assert.Equal(t, float32(1), again[0])

	cache.Add("m", b, []float32{1})
	cache.Add("m", c, []float32{1})
	assert.Equal(t, 2, cache.Len())
	_, ok = cache.Get("m", a)
	assert.False(t, ok, "oldest entry should be evicted")
}

func TestCache_Nil(t *testing.T) {
	var cache *Cache

	cache.Add("m", types.HashContent("x"), []float32{1})
	_, ok := cache.Get("m", types.HashContent("x"))
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestNewCache_DefaultSize(t *testing.T) {
	cache := NewCache(0)
	require.NotNil(t, cache)
	cache.Add("m", types.HashContent("x"), nil)
	assert.Equal(t, 1, cache.Len())
}

func TestBatches(t *testing.T) {
	chunks := TextBatch("a", "b", "c", "d", "e").Chunks

	batches := Batches("doc.pdf", chunks, 2)

	require.Len(t, batches, 3)
	assert.Len(t, batches[0].Chunks, 2)
	assert.Len(t, batches[2].Chunks, 1)
	assert.Equal(t, "doc.pdf", batches[1].Document)
	assert.Equal(t, "c", batches[1].Chunks[0].Content)

	assert.Len(t, Batches("doc.pdf", chunks, 0), 1, "size out of range selects the default")
	assert.Empty(t, Batches("doc.pdf", nil, 2))
}

func TestBatch_Validate(t *testing.T) {
	tooMany := make([]string, MaxBatchSize+1)
	for i := range tooMany {
		tooMany[i] = "x"
	}

	tests := []struct {
		name    string
		batch   Batch
		wantErr error
	}{
		{"valid", TextBatch("a", "b"), nil},
		{"empty batch", Batch{}, ErrInvalidInput},
		{"empty text", TextBatch("a", ""), ErrInvalidInput},
		{"nil chunk", Batch{Chunks: []*types.Chunk{nil}}, ErrInvalidInput},
		{"too large", TextBatch(tooMany...), ErrBatchTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.batch.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestEmbedBatch_UsesCache(t *testing.T) {
	cache := NewCache(10)
	var requested [][]string
	fetch := func(ctx context.Context, texts []string) ([][]float32, error) {
		requested = append(requested, texts)
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = []float32{float32(len(text))}
		}
		return out, nil
	}
	ctx := context.Background()

	first, err := embedBatch(ctx, cache, "p", "m", TextBatch("one", "three"), fetch)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, types.HashContent("three"), first[1].ContentHash)
	assert.Equal(t, "p", first[1].Provider)

	second, err := embedBatch(ctx, cache, "p", "m", TextBatch("three", "fifteen"), fetch)
	require.NoError(t, err)
	assert.Equal(t, []float32{5}, second[0].Vector)
	assert.Equal(t, []float32{7}, second[1].Vector)

	assert.Equal(t, [][]string{{"one", "three"}, {"fifteen"}}, requested, "cached chunks are not re-sent")
}

func TestEmbedBatch_ShortResponse(t *testing.T) {
	fetch := func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}

	_, err := embedBatch(context.Background(), nil, "p", "m", TextBatch("a", "b"), fetch)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestValidateVectors(t *testing.T) {
	tests := []struct {
		name      string
		want      int
		vectors   [][]float32
		dimension int
		wantErr   bool
	}{
		{"ok", 2, [][]float32{{1, 2}, {3, 4}}, 0, false},
		{"ok with dimension", 1, [][]float32{{1, 2}}, 2, false},
		{"count mismatch", 3, [][]float32{{1}, {2}}, 0, true},
		{"empty vector", 1, [][]float32{{}}, 0, true},
		{"ragged", 2, [][]float32{{1, 2}, {3}}, 0, true},
		{"wrong dimension", 1, [][]float32{{1, 2}}, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVectors(tt.want, tt.vectors, tt.dimension)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedResponse)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Multiplier: 2,
	}
}

func TestRetryWithBackoff(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		var calls int32
		got, err := retryWithBackoff(context.Background(), fastRetry(), func() (int, error) {
			if atomic.AddInt32(&calls, 1) < 3 {
				return 0, &APIError{StatusCode: http.StatusServiceUnavailable}
			}
			return 42, nil
		})

		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.Equal(t, int32(3), calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var calls int32
		_, err := retryWithBackoff(context.Background(), fastRetry(), func() (int, error) {
			atomic.AddInt32(&calls, 1)
			return 0, &APIError{StatusCode: http.StatusTooManyRequests}
		})

		require.Error(t, err)
		assert.Equal(t, int32(3), calls)
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls int32
		_, err := retryWithBackoff(context.Background(), fastRetry(), func() (int, error) {
			atomic.AddInt32(&calls, 1)
			return 0, &APIError{StatusCode: http.StatusUnauthorized}
		})

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Equal(t, int32(1), calls)
	})

	t.Run("does not retry malformed responses", func(t *testing.T) {
		var calls int32
		_, err := retryWithBackoff(context.Background(), fastRetry(), func() (int, error) {
			atomic.AddInt32(&calls, 1)
			return 0, ErrMalformedResponse
		})

		assert.ErrorIs(t, err, ErrMalformedResponse)
		assert.Equal(t, int32(1), calls)
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := retryWithBackoff(ctx, fastRetry(), func() (int, error) {
			return 0, errors.New("network down")
		})

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestAPIError_Retryable(t *testing.T) {
	assert.True(t, (&APIError{StatusCode: 429}).Retryable())
	assert.True(t, (&APIError{StatusCode: 500}).Retryable())
	assert.True(t, (&APIError{StatusCode: 503}).Retryable())
	assert.False(t, (&APIError{StatusCode: 400}).Retryable())
	assert.False(t, (&APIError{StatusCode: 401}).Retryable())
	assert.Contains(t, (&APIError{StatusCode: 400, Body: "bad"}).Error(), "400")
}
