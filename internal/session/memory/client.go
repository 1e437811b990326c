package memory

import (
	"context"
	"sync"
	"time"

	"github.com/chathub/internal/session"
)

type item struct {
	username string
	exp      time.Time
}

type Client struct {
	mu     sync.RWMutex
	tokens map[string]item
}

func New() *Client {
	return &Client{tokens: make(map[string]item)}
}

func (c *Client) Close() error { return nil }

func (c *Client) Set(ctx context.Context, token, username string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[token] = item{username: username, exp: time.Now().Add(session.TokenTTL)}
	return nil
}

func (c *Client) Get(ctx context.Context, token string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.tokens[token]
	if !ok || time.Now().After(v.exp) {
		return "", nil
	}
	return v.username, nil
}

func (c *Client) Delete(ctx context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, token)
	return nil
}
