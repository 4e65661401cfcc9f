package offline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists the whole queue as one list under a single key.
type Store interface {
	Load(ctx context.Context) ([]PendingTrip, error)
	Save(ctx context.Context, items []PendingTrip) error
}

// MemoryStore keeps the queue in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored queue.
func (s *MemoryStore) Load(_ context.Context) ([]PendingTrip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return decodeQueue(s.data)
}

// Save replaces the stored queue.
func (s *MemoryStore) Save(_ context.Context, items []PendingTrip) error {
	b, err := encodeQueue(items)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = b
	s.mu.Unlock()
	return nil
}

// FileStore keeps the queue as a JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a store writing to path. The file is created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the queue file. A missing file is an empty queue.
func (s *FileStore) Load(_ context.Context) ([]PendingTrip, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading queue file: %w", err)
	}
	return decodeQueue(b)
}

// Save writes the queue to a temporary file and renames it over the old one.
func (s *FileStore) Save(_ context.Context, items []PendingTrip) error {
	b, err := encodeQueue(items)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating queue dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".queue-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing queue file: %w", err)
	}
	return nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*FileStore)(nil)
)
