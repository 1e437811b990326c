// Package memory holds the store document in process memory, round-tripping
// it through JSON so callers get the same snapshot semantics as the file
// backend. Used by tests and -dev mode.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chathub/internal/store"
)

type Backend struct {
	mu   sync.Mutex
	data []byte
}

func New() *Backend { return &Backend{} }

func (b *Backend) Load(ctx context.Context) (*store.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		return nil, nil
	}
	var doc store.Document
	if err := json.Unmarshal(b.data, &doc); err != nil {
		return nil, fmt.Errorf("memory parse: %w", err)
	}
	return &doc, nil
}

func (b *Backend) Save(ctx context.Context, doc *store.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("memory encode: %w", err)
	}
	b.mu.Lock()
	b.data = data
	b.mu.Unlock()
	return nil
}

func (b *Backend) Close() error { return nil }
