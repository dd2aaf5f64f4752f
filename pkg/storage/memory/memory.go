// Package memory provides in-memory implementations of the storage
// interfaces for testing and lightweight deployments. Data is lost when
// the process restarts. Optional LRU eviction limits memory usage of
// the experiment store.
package memory

import (
	"container/list"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/datakiln/datakiln/pkg/api"
	"github.com/datakiln/datakiln/pkg/storage"
)

const defaultListLimit = 50

// entry holds a stored experiment and its LRU position.
type entry struct {
	exp     *api.Experiment
	lruElem *list.Element
}

// Store is an in-memory ExperimentStore with optional LRU eviction.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	lruList *list.List // front = most recently used, back = least recently used
	maxSize int        // 0 = unlimited
}

// Ensure Store implements storage.ExperimentStore at compile time.
var _ storage.ExperimentStore = (*Store)(nil)

// New creates a new in-memory experiment store. If maxSize is 0, the
// store grows without limit. If maxSize > 0, the least recently used
// experiment is evicted when the limit is reached.
func New(maxSize int) *Store {
	return &Store{
		entries: make(map[string]*entry),
		lruList: list.New(),
		maxSize: maxSize,
	}
}

// SaveExperiment persists an experiment in memory.
func (s *Store) SaveExperiment(_ context.Context, exp *api.Experiment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[exp.ID]; exists {
		return storage.ErrConflict
	}

	// Evict if at capacity.
	if s.maxSize > 0 && len(s.entries) >= s.maxSize {
		s.evictOldest()
	}

	elem := s.lruList.PushFront(exp.ID)
	s.entries[exp.ID] = &entry{
		exp:     exp.Clone(),
		lruElem: elem,
	}

	return nil
}

// GetExperiment retrieves an experiment by ID. Returns ErrNotFound if
// it does not exist.
func (s *Store) GetExperiment(_ context.Context, id string) (*api.Experiment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	s.lruList.MoveToFront(e.lruElem)
	return e.exp.Clone(), nil
}

// UpdateExperiment replaces a stored experiment. Returns ErrNotFound if
// it does not exist.
func (s *Store) UpdateExperiment(_ context.Context, exp *api.Experiment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[exp.ID]
	if !ok {
		return storage.ErrNotFound
	}

	e.exp = exp.Clone()
	s.lruList.MoveToFront(e.lruElem)
	return nil
}

// ListExperiments returns experiments ordered by creation time, newest
// first, up to limit.
func (s *Store) ListExperiments(_ context.Context, limit int) ([]*api.Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = defaultListLimit
	}

	matches := make([]*api.Experiment, 0, len(s.entries))
	for _, e := range s.entries {
		matches = append(matches, e.exp)
	}

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID > matches[j].ID
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]*api.Experiment, len(matches))
	for i, exp := range matches {
		out[i] = exp.Clone()
	}
	return out, nil
}

// DeleteExperiment removes an experiment. Returns ErrNotFound if it
// does not exist.
func (s *Store) DeleteExperiment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return storage.ErrNotFound
	}

	s.lruList.Remove(e.lruElem)
	delete(s.entries, id)
	return nil
}

// HealthCheck always returns nil for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// evictOldest removes the least recently used entry.
// Must be called with s.mu held.
func (s *Store) evictOldest() {
	back := s.lruList.Back()
	if back == nil {
		return
	}

	id := back.Value.(string)
	s.lruList.Remove(back)
	delete(s.entries, id)
}

// blob is one stored file.
type blob struct {
	data     []byte
	modified time.Time
}

// BlobStore is an in-memory blob store keyed by validated storage keys.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string]blob
}

var _ storage.BlobStore = (*BlobStore)(nil)

// NewBlobStore creates an empty in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string]blob)}
}

// Put stores data under key, overwriting any previous content.
func (s *BlobStore) Put(_ context.Context, key string, data []byte) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	s.blobs[key] = blob{data: buf, modified: time.Now().UTC()}
	return nil
}

// Get returns the content stored under key, or ErrNotFound.
func (s *BlobStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}

	buf := make([]byte, len(b.data))
	copy(buf, b.data)
	return buf, nil
}

// Delete removes the blob under key, or returns ErrNotFound.
func (s *BlobStore) Delete(_ context.Context, key string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.blobs, key)
	return nil
}

// List returns info for every blob whose key starts with prefix,
// ordered by key.
func (s *BlobStore) List(_ context.Context, prefix string) ([]storage.BlobInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]storage.BlobInfo, 0, len(s.blobs))
	for key, b := range s.blobs {
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			continue
		}
		infos = append(infos, storage.BlobInfo{
			Key:      key,
			Size:     int64(len(b.data)),
			Modified: b.modified,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}
