package ws

import (
	"context"
	"errors"
	"fmt"

	"github.com/chathub/internal/logger"
	"github.com/chathub/internal/store"
)

// handleFriendRequestSend persists a friend request and acks the sender
// with friend:request:sent. The recipient, when online, gets a
// friend:request:received notice plus their refreshed profile.
func (h *Hub) handleFriendRequestSend(ctx context.Context, c *Client, p FriendRequestSendPayload) {
	from := h.username(c)
	if from == "" || p.ToUser == "" {
		return
	}

	if err := h.store.SendFriendRequest(ctx, from, p.ToUser); err != nil {
		h.sendToClient(c, Outgoing{Event: EventFriendRequestSent, Data: FriendRequestSentPayload{
			Success: false,
			Message: requestFailureMessage(err),
		}})
		return
	}

	h.sendToClient(c, Outgoing{Event: EventFriendRequestSent, Data: FriendRequestSentPayload{
		Success: true,
		To:      p.ToUser,
	}})

	h.sendToUser(p.ToUser, Outgoing{Event: EventFriendRequestReceived, Data: FriendRequestReceivedPayload{
		From:    from,
		Message: fmt.Sprintf("You received a friend request from %s", from),
	}})
	if recipient, err := h.store.FindUser(ctx, p.ToUser); err == nil {
		h.sendToUser(p.ToUser, Outgoing{Event: EventUserData, Data: recipient.ToPublic()})
	}
}

// handleFriendRequestRespond accepts or rejects a pending request. The
// responder always gets their refreshed profile; on accept both sides
// get friend:added and the original requester (if online) also gets a
// friend:request:accepted notice plus their refreshed profile.
func (h *Hub) handleFriendRequestRespond(ctx context.Context, c *Client, p FriendRequestRespondPayload) {
	current := h.username(c)
	if current == "" || p.FromUser == "" {
		return
	}
	accept := p.Action == "accept"
	if !accept && p.Action != "reject" {
		logger.Errorf("ws friend respond: unknown action %q user=%s", p.Action, current)
		return
	}

	if err := h.store.ResolveFriendRequest(ctx, current, p.FromUser, accept); err != nil {
		logger.Errorf("ws friend respond user=%s from=%s: %v", current, p.FromUser, err)
		return
	}

	updatedCurrent, err := h.store.FindUser(ctx, current)
	if err != nil {
		return
	}
	h.sendToClient(c, Outgoing{Event: EventUserData, Data: updatedCurrent.ToPublic()})

	if !accept {
		return
	}

	if friend, err := h.store.FindUser(ctx, p.FromUser); err == nil {
		h.sendToClient(c, Outgoing{Event: EventFriendAdded, Data: FriendAddedPayload{Friend: friend.ToPublic()}})
		h.sendToUser(p.FromUser, Outgoing{Event: EventFriendRequestAccepted, Data: FriendRequestAcceptedPayload{
			By:      current,
			Message: fmt.Sprintf("%s accepted your friend request", current),
		}})
		h.sendToUser(p.FromUser, Outgoing{Event: EventFriendAdded, Data: FriendAddedPayload{Friend: updatedCurrent.ToPublic()}})
		h.sendToUser(p.FromUser, Outgoing{Event: EventUserData, Data: friend.ToPublic()})
	}
}

func requestFailureMessage(err error) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "user not found"
	case errors.Is(err, store.ErrAlreadyFriends):
		return "already friends"
	case errors.Is(err, store.ErrAlreadyRequested):
		return "request already sent"
	default:
		return "could not send request"
	}
}
