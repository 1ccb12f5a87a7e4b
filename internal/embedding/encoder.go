package embedding

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Loader constructs the underlying embedder. It is called at most once per Encoder.
type Loader func() (Embedder, error)

// Encoder is the process-wide embedding entry point. The model is loaded on first use and
// shared by all callers; a load failure is recorded and returned by every later call.
type Encoder struct {
	load       Loader
	dimensions int
	cache      *EmbeddingCache
	logger     *zap.Logger

	once     sync.Once
	embedder Embedder
	loadErr  error
}

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// WithLogger sets the logger used to report model loading.
func WithLogger(l *zap.Logger) EncoderOption {
	return func(e *Encoder) { e.logger = l }
}

// WithCacheSize enables an LRU cache of the given number of texts. Zero disables caching.
func WithCacheSize(n int) EncoderOption {
	return func(e *Encoder) {
		if n > 0 {
			e.cache = NewEmbeddingCache(n)
		} else {
			e.cache = nil
		}
	}
}

// NewEncoder returns an encoder producing vectors of the given dimension. Nothing is loaded
// until the first Embed or Warmup.
func NewEncoder(load Loader, dimensions int, opts ...EncoderOption) *Encoder {
	e := &Encoder{load: load, dimensions: dimensions, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Encoder) init() error {
	e.once.Do(func() {
		emb, err := e.load()
		switch {
		case err != nil:
			e.loadErr = fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		case emb.Dimensions() != e.dimensions:
			_ = emb.Close()
			e.loadErr = fmt.Errorf("%w: model produces %d dimensions, configured %d", ErrModelUnavailable, emb.Dimensions(), e.dimensions)
		default:
			e.embedder = emb
		}
		if e.loadErr != nil {
			e.logger.Error("embedding model failed to load", zap.Error(e.loadErr))
			return
		}
		e.logger.Info("embedding model loaded", zap.Int("dimensions", e.dimensions))
	})
	return e.loadErr
}

// Warmup loads the model now instead of on the first request.
func (e *Encoder) Warmup(ctx context.Context) error {
	return e.init()
}

// Embed returns the embedding of text. The returned slice is owned by the caller.
func (e *Encoder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.init(); err != nil {
		return nil, err
	}
	if e.cache != nil {
		if cached, ok := e.cache.Get(text); ok {
			return cached, nil
		}
	}
	emb, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed text: %w", err)
	}
	if len(emb) != e.dimensions {
		return nil, fmt.Errorf("embedder returned %d dimensions, expected %d", len(emb), e.dimensions)
	}
	if e.cache != nil {
		e.cache.Set(text, emb)
	}
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *Encoder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the configured embedding dimension.
func (e *Encoder) Dimensions() int {
	return e.dimensions
}

// Close releases the model if it was loaded.
func (e *Encoder) Close() error {
	if e.embedder == nil {
		return nil
	}
	return e.embedder.Close()
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
