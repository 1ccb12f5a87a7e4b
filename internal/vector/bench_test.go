package vector

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
)

func benchIndex(b *testing.B, n, dim int) *FlatIndex {
	b.Helper()
	idx, _ := NewFlatIndex(dim)
	ctx := context.Background()
	for i := 0; i < n; i++ {
		v := make([]float32, dim)
		v[0] = float32(i) / float32(n)
		v[i%dim] += 0.5
		_ = idx.Add(ctx, fmt.Sprintf("id%d", i), v)
	}
	return idx
}

func BenchmarkFlatIndexSearch(b *testing.B) {
	idx := benchIndex(b, 1000, 384)
	ctx := context.Background()
	query := make([]float32, 384)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, query, 3)
	}
}

func BenchmarkSave(b *testing.B) {
	idx := benchIndex(b, 1000, 384)
	path := filepath.Join(b.TempDir(), "feedback.idx")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := Save(path, idx); err != nil {
			b.Fatal(err)
		}
	}
}
