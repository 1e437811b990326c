package model

import "time"

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeGif   MessageType = "gif"
)

// Sender is a denormalized snapshot of the sending user at send time, not a
// live reference; later profile changes do not rewrite history.
type Sender struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// Message is a single chat message. Reactions maps an emoji token to the set
// of usernames who reacted with it; a username appears at most once per emoji.
type Message struct {
	ID        string              `json:"id"`
	Content   string              `json:"content"`
	Sender    Sender              `json:"sender"`
	Timestamp time.Time           `json:"timestamp"`
	Type      MessageType         `json:"type"`
	ReplyTo   string              `json:"replyTo,omitempty"`
	Reactions map[string][]string `json:"reactions"`
	ReadBy    []string            `json:"readBy"`
}
