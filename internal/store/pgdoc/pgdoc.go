// Package pgdoc persists the store document as a single jsonb row in
// PostgreSQL. The document granularity matches the other backends, so the
// store's single-writer discipline carries over unchanged.
package pgdoc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chathub/internal/store"
)

const schema = `CREATE TABLE IF NOT EXISTS chat_document (
	id  int PRIMARY KEY,
	doc jsonb NOT NULL
)`

type Backend struct {
	pool *pgxpool.Pool
}

// New prepares the backing table and returns the backend. The pool is owned
// by the caller until Close.
func New(ctx context.Context, pool *pgxpool.Pool) (*Backend, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("pgdoc schema: %w", err)
	}
	return &Backend{pool: pool}, nil
}

func (b *Backend) Load(ctx context.Context) (*store.Document, error) {
	var data []byte
	err := b.pool.QueryRow(ctx, `SELECT doc FROM chat_document WHERE id = 1`).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("pgdoc load: %w", err)
	}
	var doc store.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("pgdoc parse: %w", err)
	}
	return &doc, nil
}

func (b *Backend) Save(ctx context.Context, doc *store.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("pgdoc encode: %w", err)
	}
	_, err = b.pool.Exec(ctx,
		`INSERT INTO chat_document (id, doc) VALUES (1, $1)
		 ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`,
		data,
	)
	if err != nil {
		return fmt.Errorf("pgdoc save: %w", err)
	}
	return nil
}

func (b *Backend) Close() error {
	b.pool.Close()
	return nil
}
