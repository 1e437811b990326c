// Package presence tracks the live association between connection ids and
// usernames. It is derived state owned by the server for the process
// lifetime; the store remains the source of truth for users themselves.
package presence

import "sync"

type Registry struct {
	mu     sync.RWMutex
	byConn map[string]string
	byUser map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[string]string),
		byUser: make(map[string]string),
	}
}

// SetOnline binds connID to username. A prior connection for the same
// username is superseded (last-login-wins): it is neither discoverable via
// ConnectionFor nor authenticated via Username afterwards. The old
// connection is not closed here. A connection that was bound to a different
// username releases that identity first, keeping both maps one-to-one.
func (r *Registry) SetOnline(connID, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byConn[connID]; ok && prev != username {
		if r.byUser[prev] == connID {
			delete(r.byUser, prev)
		}
	}
	if old, ok := r.byUser[username]; ok && old != connID {
		delete(r.byConn, old)
	}
	r.byConn[connID] = username
	r.byUser[username] = connID
}

// Remove drops the presence entry for connID and returns the username it
// carried. Idempotent: removing an absent connection is a no-op.
func (r *Registry) Remove(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	username, ok := r.byConn[connID]
	if !ok {
		return "", false
	}
	delete(r.byConn, connID)
	if r.byUser[username] == connID {
		delete(r.byUser, username)
	}
	return username, true
}

// Username returns the username bound to connID, if any.
func (r *Registry) Username(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byConn[connID]
	return u, ok
}

// ConnectionFor returns the live connection id for username, if any.
func (r *Registry) ConnectionFor(username string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUser[username]
	return c, ok
}

// OnlineUsernames returns the usernames with a live connection.
func (r *Registry) OnlineUsernames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byUser))
	for u := range r.byUser {
		names = append(names, u)
	}
	return names
}

// IsOnline reports whether username has a live connection.
func (r *Registry) IsOnline(username string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUser[username]
	return ok
}
