// Package jsonfile persists the store document as a pretty-printed JSON file,
// replaced atomically on every save. This is the default backend.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chathub/internal/store"
)

type Backend struct {
	path string
}

// New returns a backend persisting to path; parent directories are created
// on first save.
func New(path string) *Backend {
	return &Backend{path: path}
}

func (b *Backend) Load(ctx context.Context) (*store.Document, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("jsonfile read %s: %w", b.path, err)
	}
	var doc store.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("jsonfile parse %s: %w", b.path, err)
	}
	return &doc, nil
}

func (b *Backend) Save(ctx context.Context, doc *store.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonfile encode: %w", err)
	}
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("jsonfile mkdir %s: %w", dir, err)
	}
	// Write-then-rename so a crash mid-save never leaves a torn document.
	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("jsonfile temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("jsonfile write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("jsonfile close: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("jsonfile rename: %w", err)
	}
	return nil
}

func (b *Backend) Close() error { return nil }
