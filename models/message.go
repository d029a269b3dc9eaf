package models

import "time"

// Message roles. The upstream completion API uses the same strings.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in a conversation's message list. Messages are
// immutable once created; their order within the list is the conversation
// order.
type Message struct {
	ID        string    `json:"id,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
