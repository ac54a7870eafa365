package storage

import (
	"context"
	"fmt"
	"testing"
)

func BenchmarkUpsertDocument(b *testing.B) {
	s, err := NewSQLiteStorage(":memory:")
	if err != nil {
		b.Fatal(err)
	}
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	doc, chunks, embeddings := testDocument("bench.pdf", 50, "v1")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.UpsertDocument(ctx, doc, chunks, embeddings); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSerializeVector(b *testing.B) {
	for _, dim := range []int{384, 768, 1536} {
		vec := make([]float32, dim)
		for i := range vec {
			vec[i] = float32(i) / float32(dim)
		}
		b.Run(fmt.Sprintf("dim=%d", dim), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if got := deserializeVector(serializeVector(vec)); len(got) != dim {
					b.Fatalf("got %d values, want %d", len(got), dim)
				}
			}
		})
	}
}
