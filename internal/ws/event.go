package ws

import (
	"encoding/json"
	"time"

	"github.com/chathub/internal/model"
)

type EventType string

// Inbound events.
const (
	EventUserLogin            EventType = "user:login"
	EventFriendRequestSend    EventType = "friend:request:send"
	EventFriendRequestRespond EventType = "friend:request:respond"
	EventHistoryFetch         EventType = "chat:history:fetch"
	EventMessageSend          EventType = "message:send"
	EventMessageReact         EventType = "message:react"
	EventTypingStart          EventType = "typing:start"
	EventTypingStop           EventType = "typing:stop"
)

// Outbound events.
const (
	EventUsersList             EventType = "users:list"
	EventUsersOnline           EventType = "users:online"
	EventUserUpdated           EventType = "user:updated"
	EventUserData              EventType = "user:data"
	EventGroupsList            EventType = "groups:list"
	EventGroupCreated          EventType = "group:created"
	EventFriendRequestReceived EventType = "friend:request:received"
	EventFriendRequestAccepted EventType = "friend:request:accepted"
	EventFriendRequestSent     EventType = "friend:request:sent"
	EventFriendAdded           EventType = "friend:added"
	EventMessagesHistory       EventType = "messages:history"
	EventMessageNew            EventType = "message:new"
	EventMessageUpdated        EventType = "message:updated"
	EventTypingUser            EventType = "typing:user"
	EventAlertNew              EventType = "alert:new"
)

// Envelope is the wire frame for inbound events. Data is decoded per
// event type; a shape mismatch drops the event.
type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Outgoing is what the server sends to a client.
type Outgoing struct {
	Event EventType `json:"event"`
	Data  any       `json:"data"`
}

// --- Inbound payloads ---

type LoginPayload struct {
	Username string `json:"username"`
}

type FriendRequestSendPayload struct {
	ToUser string `json:"toUser"`
}

type FriendRequestRespondPayload struct {
	FromUser string `json:"fromUser"`
	Action   string `json:"action"` // "accept" | "reject"
}

type HistoryFetchPayload struct {
	ChatID string `json:"chatId"`
}

type MessageSendPayload struct {
	Content string            `json:"content"`
	Type    model.MessageType `json:"type"`
	ReplyTo string            `json:"replyTo"`
	To      string            `json:"to"`
}

type MessageReactPayload struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
	ChatID    string `json:"chatId"`
}

type TypingPayload struct {
	To string `json:"to"`
}

// --- Outbound payloads ---

// UserStatus is a directory entry: the public profile annotated with
// live presence. LastSeen mirrors the account creation time until real
// last-seen tracking exists.
type UserStatus struct {
	model.UserPublic
	Status   string    `json:"status"`
	LastSeen time.Time `json:"lastSeen"`
}

type HistoryPayload struct {
	ChatID   string          `json:"chatId"`
	Messages []model.Message `json:"messages"`
}

type MessageNewPayload struct {
	ChatID  string        `json:"chatId"`
	Message model.Message `json:"message"`
}

type MessageUpdatedPayload struct {
	ChatID  string        `json:"chatId"`
	Message model.Message `json:"message"`
}

type TypingUserPayload struct {
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
	ChatID   string `json:"chatId"`
}

type AlertPayload struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
	From    string `json:"from"`
}

type FriendRequestReceivedPayload struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

type FriendRequestAcceptedPayload struct {
	By      string `json:"by"`
	Message string `json:"message"`
}

type FriendRequestSentPayload struct {
	Success bool   `json:"success"`
	To      string `json:"to,omitempty"`
	Message string `json:"message,omitempty"`
}

type FriendAddedPayload struct {
	Friend model.UserPublic `json:"friend"`
}
