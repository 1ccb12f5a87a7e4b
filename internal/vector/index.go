// Package vector provides the feedback embedding index and its on-disk persistence.
package vector

import (
	"context"
	"errors"
)

var (
	// ErrDimensionMismatch is returned when a vector's length differs from the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrNonFiniteVector is returned when a vector holds NaN or an infinity.
	ErrNonFiniteVector = errors.New("vector has non-finite values")
	// ErrInvalidTopK is returned when a search asks for fewer than one result.
	ErrInvalidTopK = errors.New("top k must be at least 1")
	// ErrCorruptIndex is returned when a persisted index cannot be trusted.
	ErrCorruptIndex = errors.New("persisted index is corrupt")
	// ErrPersistBehind is returned when an entry was added in memory but could not be saved.
	ErrPersistBehind = errors.New("index persistence is behind")
	// ErrIndexLocked is returned when another process holds the index lock.
	ErrIndexLocked = errors.New("index is locked by another process")
)

// VectorIndex defines append-only vector storage and nearest-neighbor search.
type VectorIndex interface {
	Add(ctx context.Context, id string, vector []float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Dimensions() int
	Size() int
}

// VectorResult is a single nearest-neighbor hit. ID is the external identifier (record ID).
type VectorResult struct {
	ID       string  `json:"id"`
	Ordinal  int     `json:"ordinal"`
	Distance float64 `json:"distance"` // squared L2
}

// IDs returns the identifiers of results in order.
func IDs(results []*VectorResult) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
	}
	return ids
}
