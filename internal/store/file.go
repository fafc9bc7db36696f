package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

// File keeps every entry in one TOML document. It rewrites the whole file
// on each Write.
type File struct {
	path string
	mu   sync.Mutex
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read store: %w", err)
	}
	entries := map[string]string{}
	if err := toml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse store %s: %w", f.path, err)
	}
	return entries, nil
}

func (f *File) Read(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := entries[key]
	return v, ok, nil
}

func (f *File) Write(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		return err
	}
	entries[key] = value

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	data, err := toml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}

func (f *File) Close() error { return nil }
