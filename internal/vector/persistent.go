package vector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

// PersistentIndex couples a FlatIndex with its file on disk. Every Add is followed by a full
// save, and add+save sequences are serialized so ordinals and file contents never interleave.
// Searches run concurrently under the FlatIndex read lock.
type PersistentIndex struct {
	index   atomic.Pointer[FlatIndex]
	path    string
	lock    *flock.Flock
	writeMu sync.Mutex
	logger  *zap.Logger

	setAside     bool
	setAsidePath string
}

// PersistentOption configures a PersistentIndex.
type PersistentOption func(*PersistentIndex)

// WithLogger sets the logger used to report persistence failures.
func WithLogger(l *zap.Logger) PersistentOption {
	return func(p *PersistentIndex) { p.logger = l }
}

// WithCorruptSetAside makes OpenPersistent rename a corrupt index file to
// <path>.corrupt-<unix seconds> and start empty instead of failing. The rename happens only
// while the writer lock is held.
func WithCorruptSetAside() PersistentOption {
	return func(p *PersistentIndex) { p.setAside = true }
}

// OpenPersistent takes the single-writer lock for path and loads the index persisted there.
// An empty path gives a memory-only index. A corrupt file is returned as ErrCorruptIndex and
// must stop startup.
func OpenPersistent(path string, dimensions int, opts ...PersistentOption) (*PersistentIndex, error) {
	p := &PersistentIndex{path: path, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create index dir: %w", err)
		}
		p.lock = flock.New(path + ".lock")
		locked, err := p.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire index lock: %w", err)
		}
		if !locked {
			return nil, fmt.Errorf("%w: %s", ErrIndexLocked, path+".lock")
		}
	}
	var idx *FlatIndex
	var err error
	if path == "" {
		idx, err = NewFlatIndex(dimensions)
	} else {
		idx, err = Load(path, dimensions)
	}
	if err != nil && p.setAside && errors.Is(err, ErrCorruptIndex) {
		idx, err = p.moveAside(err, dimensions)
	}
	if err != nil {
		_ = p.unlock()
		return nil, err
	}
	p.index.Store(idx)
	p.logger.Info("vector index loaded",
		zap.String("path", path),
		zap.Int("dimensions", dimensions),
		zap.Int("size", idx.Size()))
	return p, nil
}

func (p *PersistentIndex) moveAside(cause error, dimensions int) (*FlatIndex, error) {
	aside := fmt.Sprintf("%s.corrupt-%d", p.path, time.Now().Unix())
	if err := os.Rename(p.path, aside); err != nil {
		return nil, fmt.Errorf("%w; moving it aside failed: %v", cause, err)
	}
	p.setAsidePath = aside
	p.logger.Warn("corrupt vector index moved aside",
		zap.String("path", p.path),
		zap.String("moved_to", aside),
		zap.Error(cause))
	return NewFlatIndex(dimensions)
}

// Add appends the vector under id and saves the index. When the save fails the entry remains
// searchable in memory and the returned error wraps ErrPersistBehind.
func (p *PersistentIndex) Add(ctx context.Context, id string, vector []float32) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	idx := p.index.Load()
	if err := idx.Add(ctx, id, vector); err != nil {
		return err
	}
	if err := Save(p.path, idx); err != nil {
		p.logger.Error("vector index save failed; in-memory index is ahead of disk",
			zap.String("path", p.path),
			zap.String("id", id),
			zap.Int("size", idx.Size()),
			zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPersistBehind, err)
	}
	return nil
}

// Search returns the k nearest entries to query.
func (p *PersistentIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	return p.index.Load().Search(ctx, query, k)
}

// Replace saves idx and makes it the live index. Used by reindexing.
func (p *PersistentIndex) Replace(idx *FlatIndex) error {
	if idx.Dimensions() != p.Dimensions() {
		return fmt.Errorf("%w: replacement has %d, index expects %d", ErrDimensionMismatch, idx.Dimensions(), p.Dimensions())
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if err := Save(p.path, idx); err != nil {
		return fmt.Errorf("save replacement index: %w", err)
	}
	p.index.Store(idx)
	return nil
}

// Flush saves the current index. It is a no-op for memory-only indexes.
func (p *PersistentIndex) Flush() error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return Save(p.path, p.index.Load())
}

// Snapshot returns copies of the identifier mapping and vectors.
func (p *PersistentIndex) Snapshot() ([]string, [][]float32) {
	return p.index.Load().Snapshot()
}

// Dimensions returns the vector dimension.
func (p *PersistentIndex) Dimensions() int {
	return p.index.Load().Dimensions()
}

// Size returns the number of indexed vectors.
func (p *PersistentIndex) Size() int {
	return p.index.Load().Size()
}

// SetAsidePath returns where a corrupt index file was moved when the index was opened, or ""
// if nothing was moved.
func (p *PersistentIndex) SetAsidePath() string {
	return p.setAsidePath
}

// Path returns the index file path.
func (p *PersistentIndex) Path() string {
	return p.path
}

// Close releases the single-writer lock.
func (p *PersistentIndex) Close() error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.unlock()
}

func (p *PersistentIndex) unlock() error {
	if p.lock == nil {
		return nil
	}
	err := p.lock.Unlock()
	p.lock = nil
	return err
}
