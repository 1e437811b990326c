package ws

import (
	"context"
	"fmt"
	"time"

	"github.com/chathub/internal/chatkey"
	"github.com/chathub/internal/logger"
	"github.com/chathub/internal/model"
)

// handleHistoryFetch replays a channel's history to the requesting
// connection. The response echoes the chat id exactly as the client
// named it, not the storage key. Group history requires membership.
func (h *Hub) handleHistoryFetch(ctx context.Context, c *Client, p HistoryFetchPayload) {
	username := h.username(c)
	if username == "" || p.ChatID == "" {
		return
	}

	if chatkey.IsGroup(p.ChatID) {
		group, err := h.store.Group(ctx, p.ChatID)
		if err != nil || !group.HasMember(username) {
			logger.Infof("ws history denied chat=%s user=%s", p.ChatID, username)
			return
		}
	}

	key := chatkey.StorageKey(username, p.ChatID)
	messages, err := h.store.Messages(ctx, key)
	if err != nil {
		logger.Errorf("ws history chat=%s user=%s: %v", p.ChatID, username, err)
		return
	}
	h.sendToClient(c, Outgoing{Event: EventMessagesHistory, Data: HistoryPayload{ChatID: p.ChatID, Messages: messages}})
}

// handleMessageSend persists a message and fans it out. Each recipient
// sees the channel id from their own point of view: for direct chats
// the sender's copy carries chatId=<peer> and the peer's copy carries
// chatId=<sender>. Non-sender recipients also get an alert:new; the
// general channel never alerts. Recipients without a live connection
// get a best-effort web push instead.
func (h *Hub) handleMessageSend(ctx context.Context, c *Client, p MessageSendPayload) {
	username := h.username(c)
	if username == "" || p.Content == "" {
		return
	}
	sender, err := h.store.FindUser(ctx, username)
	if err != nil {
		return
	}

	msgType := p.Type
	if msgType == "" {
		msgType = model.MessageTypeText
	}
	msg := model.Message{
		ID:      newMessageID(),
		Content: p.Content,
		Sender: model.Sender{
			ID:       sender.ID,
			Username: sender.Username,
			Avatar:   sender.Avatar,
		},
		Timestamp: time.Now().UTC(),
		Type:      msgType,
		ReplyTo:   p.ReplyTo,
		Reactions: map[string][]string{},
		ReadBy:    []string{c.connID},
	}

	switch {
	case chatkey.IsGroup(p.To):
		h.sendGroupMessage(ctx, username, p.To, msg)
	case p.To != "" && p.To != chatkey.General:
		h.sendDirectMessage(ctx, c, username, p.To, msg)
	default:
		if err := h.store.AppendMessage(ctx, chatkey.General, msg); err != nil {
			logger.Errorf("ws send general user=%s: %v", username, err)
			return
		}
		h.broadcast(Outgoing{Event: EventMessageNew, Data: MessageNewPayload{ChatID: chatkey.General, Message: msg}})
	}
}

func (h *Hub) sendGroupMessage(ctx context.Context, username, groupID string, msg model.Message) {
	group, err := h.store.Group(ctx, groupID)
	if err != nil || !group.HasMember(username) {
		logger.Infof("ws send denied group=%s user=%s", groupID, username)
		return
	}
	if err := h.store.AppendMessage(ctx, groupID, msg); err != nil {
		logger.Errorf("ws send group=%s user=%s: %v", groupID, username, err)
		return
	}

	alert := AlertPayload{
		Title:   fmt.Sprintf("New message in %s", group.Name),
		Message: fmt.Sprintf("%s: %s", username, msg.Content),
		Type:    "message",
		From:    groupID,
	}
	for _, member := range group.Members {
		if !h.presence.IsOnline(member) {
			if member != username {
				h.notify(ctx, member, alert.Title, alert.Message)
			}
			continue
		}
		h.sendToUser(member, Outgoing{Event: EventMessageNew, Data: MessageNewPayload{ChatID: groupID, Message: msg}})
		if member != username {
			h.sendToUser(member, Outgoing{Event: EventAlertNew, Data: alert})
		}
	}
}

func (h *Hub) sendDirectMessage(ctx context.Context, c *Client, username, to string, msg model.Message) {
	if _, err := h.store.FindUser(ctx, to); err != nil {
		logger.Infof("ws send dropped, no such user=%s from=%s", to, username)
		return
	}
	key := chatkey.DirectKey(username, to)
	if err := h.store.AppendMessage(ctx, key, msg); err != nil {
		logger.Errorf("ws send direct key=%s user=%s: %v", key, username, err)
		return
	}

	h.sendToClient(c, Outgoing{Event: EventMessageNew, Data: MessageNewPayload{ChatID: to, Message: msg}})

	alertTitle := fmt.Sprintf("New message from %s", username)
	if h.presence.IsOnline(to) {
		h.sendToUser(to, Outgoing{Event: EventMessageNew, Data: MessageNewPayload{ChatID: username, Message: msg}})
		h.sendToUser(to, Outgoing{Event: EventAlertNew, Data: AlertPayload{
			Title:   alertTitle,
			Message: msg.Content,
			Type:    "message",
			From:    username,
		}})
	} else {
		h.notify(ctx, to, alertTitle, msg.Content)
	}
}

// handleMessageReact toggles a reaction and pushes the updated message
// to every online member of the channel, each seeing the channel id
// from their own point of view.
func (h *Hub) handleMessageReact(ctx context.Context, c *Client, p MessageReactPayload) {
	username := h.username(c)
	if username == "" || p.MessageID == "" || p.Emoji == "" || p.ChatID == "" {
		return
	}

	key := chatkey.StorageKey(username, p.ChatID)
	if chatkey.IsGroup(key) {
		group, err := h.store.Group(ctx, key)
		if err != nil || !group.HasMember(username) {
			logger.Infof("ws react denied group=%s user=%s", key, username)
			return
		}
	}
	updated, err := h.store.ToggleReaction(ctx, key, p.MessageID, p.Emoji, username)
	if err != nil {
		logger.Errorf("ws react key=%s msg=%s user=%s: %v", key, p.MessageID, username, err)
		return
	}

	switch {
	case key == chatkey.General:
		h.broadcast(Outgoing{Event: EventMessageUpdated, Data: MessageUpdatedPayload{ChatID: chatkey.General, Message: *updated}})
	case chatkey.IsGroup(key):
		group, err := h.store.Group(ctx, key)
		if err != nil {
			return
		}
		for _, member := range group.Members {
			h.sendToUser(member, Outgoing{Event: EventMessageUpdated, Data: MessageUpdatedPayload{ChatID: key, Message: *updated}})
		}
	default:
		// Direct chat: both parties addressed by the other's username.
		h.sendToUser(username, Outgoing{Event: EventMessageUpdated, Data: MessageUpdatedPayload{
			ChatID:  chatkey.ViewerChatID(key, username),
			Message: *updated,
		}})
		peer := chatkey.ViewerChatID(key, username)
		h.sendToUser(peer, Outgoing{Event: EventMessageUpdated, Data: MessageUpdatedPayload{
			ChatID:  chatkey.ViewerChatID(key, peer),
			Message: *updated,
		}})
	}
}
