package ws

import (
	"context"

	"github.com/chathub/internal/chatkey"
	"github.com/chathub/internal/logger"
)

// handleLogin binds the connection to an existing username and replays
// the login snapshot: full user directory, global online list, general
// history, the caller's own profile and their groups. A login for an
// unknown username is silently ignored. Logging in again from a new
// connection steals the identity from the old one (last login wins).
func (h *Hub) handleLogin(ctx context.Context, c *Client, p LoginPayload) {
	if p.Username == "" {
		return
	}
	user, err := h.store.FindUser(ctx, p.Username)
	if err != nil {
		logger.Infof("ws login ignored conn=%s user=%s: %v", c.connID, p.Username, err)
		return
	}

	h.presence.SetOnline(c.connID, user.Username)
	logger.Infof("ws login conn=%s user=%s", c.connID, user.Username)

	// Full directory first (the client's search index), then the live
	// online list to everyone, reflecting presence after registration.
	if dir, err := h.userDirectory(ctx); err == nil {
		h.sendToClient(c, Outgoing{Event: EventUsersList, Data: dir})
	} else {
		logger.Errorf("ws login directory user=%s: %v", user.Username, err)
	}
	h.broadcastOnline(ctx)

	if history, err := h.store.Messages(ctx, chatkey.General); err == nil {
		h.sendToClient(c, Outgoing{Event: EventMessagesHistory, Data: HistoryPayload{ChatID: chatkey.General, Messages: history}})
	} else {
		logger.Errorf("ws login history user=%s: %v", user.Username, err)
	}

	h.sendToClient(c, Outgoing{Event: EventUserData, Data: user.ToPublic()})

	if groups, err := h.store.GroupsForUser(ctx, user.Username); err == nil {
		h.sendToClient(c, Outgoing{Event: EventGroupsList, Data: groups})
	} else {
		logger.Errorf("ws login groups user=%s: %v", user.Username, err)
	}
}

// userDirectory returns every registered user annotated with live
// presence. lastSeen falls back to the account creation time.
func (h *Hub) userDirectory(ctx context.Context) ([]UserStatus, error) {
	users, err := h.store.AllUsers(ctx)
	if err != nil {
		return nil, err
	}
	dir := make([]UserStatus, 0, len(users))
	for i := range users {
		status := "offline"
		if h.presence.IsOnline(users[i].Username) {
			status = "online"
		}
		dir = append(dir, UserStatus{
			UserPublic: users[i].ToPublic(),
			Status:     status,
			LastSeen:   users[i].CreatedAt,
		})
	}
	return dir, nil
}

// broadcastOnline recomputes the online user list from presence and
// pushes it to every connection.
func (h *Hub) broadcastOnline(ctx context.Context) {
	names := h.presence.OnlineUsernames()
	online := make([]UserStatus, 0, len(names))
	for _, name := range names {
		user, err := h.store.FindUser(ctx, name)
		if err != nil {
			continue
		}
		online = append(online, UserStatus{
			UserPublic: user.ToPublic(),
			Status:     "online",
			LastSeen:   user.CreatedAt,
		})
	}
	h.broadcast(Outgoing{Event: EventUsersOnline, Data: online})
}
