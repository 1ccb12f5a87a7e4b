package embedding

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// EmbeddingCache keeps the embeddings of recently submitted feedback texts, least recently used
// evicted first. Vectors are copied in and out so callers may modify what they hold.
type EmbeddingCache struct {
	lru *lru.Cache[string, []float32]
}

// NewEmbeddingCache creates a cache holding up to capacity texts. Capacity below one holds one.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	c, err := lru.New[string, []float32](max(capacity, 1))
	if err != nil {
		// Only returned for a non-positive size.
		panic(err)
	}
	return &EmbeddingCache{lru: c}
}

// Get returns a copy of the embedding cached for text.
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	v, ok := c.lru.Get(text)
	if !ok {
		return nil, false
	}
	return cloneVector(v), true
}

// Set caches a copy of emb for text.
func (c *EmbeddingCache) Set(text string, emb []float32) {
	c.lru.Add(text, cloneVector(emb))
}

// Len returns the number of cached texts.
func (c *EmbeddingCache) Len() int {
	return c.lru.Len()
}
