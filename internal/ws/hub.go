package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chathub/internal/logger"
	"github.com/chathub/internal/model"
	"github.com/chathub/internal/observability"
	"github.com/chathub/internal/presence"
	"github.com/chathub/internal/store"
)

// PushNotifier delivers a web push to a user's registered subscriptions.
// A nil notifier disables push.
type PushNotifier interface {
	Notify(ctx context.Context, username, title, body string)
}

// Hub owns all live WebSocket connections and routes chat events
// between them. Every persisted side effect goes through the store,
// which serializes mutations; presence is derived state owned by the
// registry and reset on restart.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client // keyed by connection id

	store    *store.Store
	presence *presence.Registry
	push     PushNotifier

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(st *store.Store, reg *presence.Registry, push PushNotifier) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		store:      st,
		presence:   reg,
		push:       push,
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
	}
}

// Run processes register/unregister until ctx is cancelled, then closes
// every remaining connection and waits for their pumps.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		}
	}
}

// Done is closed once Run has fully drained.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) Register(c *Client)   { h.register <- c }
func (h *Hub) Unregister(c *Client) { h.unregister <- c }

func (h *Hub) shutdown() {
	// Collect all clients under the lock, do NOT perform I/O under mutex.
	h.mu.Lock()
	all := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		all = append(all, c)
	}
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	// Close connections outside the lock (network I/O).
	for _, c := range all {
		c.Close()
	}
	for _, c := range all {
		c.Wait()
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c.connID] = c
	h.mu.Unlock()
	observability.IncWSActive()
	logger.Infof("ws connected conn=%s", c.connID)
}

// removeClient drops the connection, clears its presence entry and, if
// the connection was authenticated, broadcasts the refreshed online
// list. Idempotent: a second unregister for the same client is a no-op.
func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.connID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.connID)
	h.mu.Unlock()

	// Network I/O outside the lock.
	c.Close()
	observability.DecWSActive()

	username, wasAuthed := h.presence.Remove(c.connID)
	if wasAuthed {
		logger.Infof("ws disconnected conn=%s user=%s", c.connID, username)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.broadcastOnline(ctx)
	} else {
		logger.Infof("ws disconnected conn=%s", c.connID)
	}
}

// HandleEvent dispatches one inbound event. Payloads are decoded per
// event type; a shape mismatch or an unauthenticated sender drops the
// event with a log line, never an error back over the wire.
func (h *Hub) HandleEvent(ctx context.Context, c *Client, env Envelope) {
	observability.IncWSEvent(string(env.Event))
	switch env.Event {
	case EventUserLogin:
		var p LoginPayload
		if !decode(c, env, &p) {
			return
		}
		h.handleLogin(ctx, c, p)
	case EventFriendRequestSend:
		var p FriendRequestSendPayload
		if !decode(c, env, &p) {
			return
		}
		h.handleFriendRequestSend(ctx, c, p)
	case EventFriendRequestRespond:
		var p FriendRequestRespondPayload
		if !decode(c, env, &p) {
			return
		}
		h.handleFriendRequestRespond(ctx, c, p)
	case EventHistoryFetch:
		var p HistoryFetchPayload
		if !decode(c, env, &p) {
			return
		}
		h.handleHistoryFetch(ctx, c, p)
	case EventMessageSend:
		var p MessageSendPayload
		if !decode(c, env, &p) {
			return
		}
		h.handleMessageSend(ctx, c, p)
	case EventMessageReact:
		var p MessageReactPayload
		if !decode(c, env, &p) {
			return
		}
		h.handleMessageReact(ctx, c, p)
	case EventTypingStart:
		var p TypingPayload
		if !decode(c, env, &p) {
			return
		}
		h.handleTyping(ctx, c, p.To, true)
	case EventTypingStop:
		var p TypingPayload
		if !decode(c, env, &p) {
			return
		}
		h.handleTyping(ctx, c, p.To, false)
	default:
		logger.Errorf("ws unknown event %q conn=%s", env.Event, c.connID)
	}
}

func decode(c *Client, env Envelope, dst any) bool {
	if err := json.Unmarshal(env.Data, dst); err != nil {
		logger.Errorf("ws bad payload event=%s conn=%s: %v", env.Event, c.connID, err)
		return false
	}
	return true
}

// username resolves the authenticated username for a connection, or ""
// when the connection never completed user:login.
func (h *Hub) username(c *Client) string {
	name, _ := h.presence.Username(c.connID)
	return name
}

// --- send helpers ---

// sendToClient queues an event without blocking. A client whose buffer
// is full is considered too slow to keep up and gets evicted.
func (h *Hub) sendToClient(c *Client, out Outgoing) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- out:
	default:
		logger.Errorf("ws send buffer full, evicting conn=%s", c.connID)
		go h.Unregister(c)
	}
}

func (h *Hub) sendToConn(connID string, out Outgoing) {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if ok {
		h.sendToClient(c, out)
	}
}

// sendToUser delivers to the user's live connection, if any. Offline
// targets are skipped, never queued.
func (h *Hub) sendToUser(username string, out Outgoing) {
	connID, ok := h.presence.ConnectionFor(username)
	if !ok {
		return
	}
	h.sendToConn(connID, out)
}

func (h *Hub) broadcast(out Outgoing) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		h.sendToClient(c, out)
	}
}

func (h *Hub) broadcastExcept(connID string, out Outgoing) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		if c.connID != connID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range targets {
		h.sendToClient(c, out)
	}
}

// notify sends a web push when the notifier is configured. Used for
// recipients without a live connection.
func (h *Hub) notify(ctx context.Context, username, title, body string) {
	if h.push == nil {
		return
	}
	h.push.Notify(ctx, username, title, body)
}

// --- hooks for the REST side ---

// BroadcastUserUpdated tells every connected client that a profile
// changed (avatar, email rename and so on).
func (h *Hub) BroadcastUserUpdated(user model.UserPublic) {
	h.broadcast(Outgoing{Event: EventUserUpdated, Data: user})
}

// NotifyGroupCreated pushes group:created to each member currently
// online, so their client can add the group without a full resync.
func (h *Hub) NotifyGroupCreated(group *model.Group) {
	out := Outgoing{Event: EventGroupCreated, Data: group}
	for _, member := range group.Members {
		h.sendToUser(member, out)
	}
}

func newMessageID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
