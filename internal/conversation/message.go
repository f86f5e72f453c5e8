package conversation

import "github.com/google/uuid"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a conversation. Content grows incrementally for an
// in-flight assistant message and is immutable once the turn completes.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewMessageID generates an ID for a locally created message.
func NewMessageID() string {
	return uuid.New().String()
}
