// Package embedding turns feedback text into fixed-dimension vectors.
package embedding

import (
	"context"
	"errors"
	"fmt"
)

// ErrModelUnavailable is returned by every Embed call once the model has failed to load.
var ErrModelUnavailable = errors.New("embedding model unavailable")

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Provider names accepted in configuration.
const (
	ProviderONNX = "onnx"
	ProviderHash = "hash"
)

// NewLoader returns a Loader for the named provider. The model itself is not touched until
// the loader runs.
func NewLoader(provider string, cfg ONNXConfig) (Loader, error) {
	switch provider {
	case ProviderONNX, "":
		return func() (Embedder, error) {
			if cfg.ModelPath == "" {
				return nil, errors.New("embedding.model_path is not set")
			}
			return NewONNXEmbedder(cfg)
		}, nil
	case ProviderHash:
		return func() (Embedder, error) {
			return NewHashEmbedder(cfg.Dimensions), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: onnx, hash)", provider)
	}
}

// embedEach calls embed for each text in order.
func embedEach(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
