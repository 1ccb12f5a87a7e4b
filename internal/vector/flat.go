package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Nikhil-Zer0/PublicService-backend/pkg/utils"
)

// FlatIndex is an exact, append-only vector index using brute-force squared L2 search.
// The position of a vector in the index is its ordinal; ordinals start at 0 and are never reused.
type FlatIndex struct {
	dimensions int
	ids        []string
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewFlatIndex creates an empty index for vectors of the given dimension.
func NewFlatIndex(dimensions int) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &FlatIndex{
		dimensions: dimensions,
		ids:        make([]string, 0),
		vectors:    make([][]float32, 0),
	}, nil
}

// Add appends vector at the next ordinal and maps that ordinal to id.
func (f *FlatIndex) Add(ctx context.Context, id string, vector []float32) error {
	if len(vector) != f.dimensions {
		return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vector), f.dimensions)
	}
	if !utils.Finite(vector) {
		return fmt.Errorf("%w: id %s", ErrNonFiniteVector, id)
	}
	vec := make([]float32, f.dimensions)
	copy(vec, vector)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, id)
	f.vectors = append(f.vectors, vec)
	return nil
}

// Search returns the k nearest vectors by squared L2 distance, nearest first.
// Equal distances are ordered by ascending ordinal. An empty index yields an empty result.
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(query), f.dimensions)
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, k)
	}
	if !utils.Finite(query) {
		return nil, fmt.Errorf("%w: query", ErrNonFiniteVector)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.vectors) == 0 {
		return []*VectorResult{}, nil
	}
	type scored struct {
		ordinal  int
		distance float64
	}
	scores := make([]scored, len(f.vectors))
	for i, vec := range f.vectors {
		scores[i] = scored{ordinal: i, distance: SquaredL2(query, vec)}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].distance != scores[j].distance {
			return scores[i].distance < scores[j].distance
		}
		return scores[i].ordinal < scores[j].ordinal
	})
	if k > len(scores) {
		k = len(scores)
	}
	results := make([]*VectorResult, 0, k)
	for _, s := range scores[:k] {
		id := f.ids[s.ordinal]
		if id == "" {
			continue
		}
		results = append(results, &VectorResult{ID: id, Ordinal: s.ordinal, Distance: s.distance})
	}
	return results, nil
}

// Snapshot returns copies of the identifier mapping and vectors, indexed by ordinal.
func (f *FlatIndex) Snapshot() ([]string, [][]float32) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ids := make([]string, len(f.ids))
	copy(ids, f.ids)
	vectors := make([][]float32, len(f.vectors))
	for i, v := range f.vectors {
		vec := make([]float32, len(v))
		copy(vec, v)
		vectors[i] = vec
	}
	return ids, vectors
}

// Dimensions returns the vector dimension.
func (f *FlatIndex) Dimensions() int {
	return f.dimensions
}

// Size returns the number of vectors ever added.
func (f *FlatIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}
