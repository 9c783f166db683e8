package chat

import "time"

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// MessageStatus tracks whether a user message received a reply.
type MessageStatus string

const (
	StatusPending  MessageStatus = "pending"
	StatusAnswered MessageStatus = "answered"
	StatusFailed   MessageStatus = "failed"
)

// Message persists individual turns of a session, ordered by CreatedAt.
type Message struct {
	ID        string        `json:"id"`
	SessionID string        `json:"sessionId"`
	UserID    string        `json:"userId"`
	Sender    Sender        `json:"sender"`
	Content   string        `json:"content"`
	Status    MessageStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
}
