package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStorage is a Storage backed by one JSON file per key in a directory.
// Writes go through a temporary file and an atomic rename.
type FileStorage struct {
	dir string
}

// NewFileStorage creates a file-backed storage rooted at dir, creating the
// directory if needed.
func NewFileStorage(dir string) (*FileStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}
	return &FileStorage{dir: dir}, nil
}

// Get implements Storage.
func (f *FileStorage) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read storage key %q: %w", key, err)
	}
	return data, true, nil
}

// Set implements Storage.
func (f *FileStorage) Set(key string, value []byte) error {
	path := f.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return fmt.Errorf("failed to write storage key %q: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to commit storage key %q: %w", key, err)
	}
	return nil
}

// Remove implements Storage.
func (f *FileStorage) Remove(key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove storage key %q: %w", key, err)
	}
	return nil
}

// path maps a storage key to a file, replacing separators so keys stay
// inside the storage directory.
func (f *FileStorage) path(key string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(key)
	return filepath.Join(f.dir, safe+".json")
}
