package widget

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/peterbourgon/diskv/v3"
)

// DiskvStorage keeps each key in its own file under a directory both the
// engine and the widget process can reach. Writes go through a temp file
// and rename so a reader never sees a torn value.
type DiskvStorage struct {
	d *diskv.Diskv
}

// NewDiskvStorage opens the shared directory.
func NewDiskvStorage(dir string) (*DiskvStorage, error) {
	if dir == "" {
		return nil, errors.New("widget: shared directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("widget: ensure shared directory: %w", err)
	}
	return &DiskvStorage{d: diskv.New(diskv.Options{
		BasePath:     dir,
		TempDir:      filepath.Join(dir, ".tmp"),
		Transform:    func(string) []string { return []string{} },
		CacheSizeMax: 0,
	})}, nil
}

func (s *DiskvStorage) SetString(key, value string) error {
	return s.d.WriteString(key, value)
}

func (s *DiskvStorage) GetString(key string) (string, error) {
	if !s.d.Has(key) {
		return "", ErrNoKey
	}
	b, err := s.d.Read(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoKey
		}
		return "", err
	}
	return string(b), nil
}

func (s *DiskvStorage) RemoveKey(key string) error {
	if !s.d.Has(key) {
		return nil
	}
	if err := s.d.Erase(key); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// MemoryStorage is an in-process SharedStorage.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStorage creates an empty store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) SetString(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) GetString(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNoKey
	}
	return v, nil
}

func (m *MemoryStorage) RemoveKey(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
