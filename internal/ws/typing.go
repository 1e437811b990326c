package ws

import (
	"context"

	"github.com/chathub/internal/chatkey"
)

// handleTyping relays a typing indicator. Never persisted, never sent
// back to the typist. Direct indicators carry the typist's username as
// the chat id so the peer's client can match its open conversation.
func (h *Hub) handleTyping(ctx context.Context, c *Client, to string, isTyping bool) {
	username := h.username(c)
	if username == "" || to == "" {
		return
	}

	switch {
	case chatkey.IsGroup(to):
		group, err := h.store.Group(ctx, to)
		if err != nil || !group.HasMember(username) {
			return
		}
		out := Outgoing{Event: EventTypingUser, Data: TypingUserPayload{Username: username, IsTyping: isTyping, ChatID: to}}
		for _, member := range group.Members {
			if member != username {
				h.sendToUser(member, out)
			}
		}
	case to != chatkey.General:
		h.sendToUser(to, Outgoing{Event: EventTypingUser, Data: TypingUserPayload{Username: username, IsTyping: isTyping, ChatID: username}})
	default:
		h.broadcastExcept(c.connID, Outgoing{Event: EventTypingUser, Data: TypingUserPayload{Username: username, IsTyping: isTyping, ChatID: chatkey.General}})
	}
}
