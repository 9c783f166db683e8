// Package store persists sessions, messages and sentiment records.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/mindmate/backend/internal/model/chat"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrAlreadyScored   = errors.New("message already has a sentiment record")
	ErrNotUserMessage  = errors.New("only user messages can be scored")
)

// Store is the storage contract shared by the in-memory and SQL backends.
// Implementations must be safe for concurrent use.
type Store interface {
	// StartSession ends every active session of the user and inserts a new
	// active one as a single atomic step.
	StartSession(ctx context.Context, userID string, now time.Time) (chat.Session, error)
	// ActiveSession returns the user's active session; ok is false when none.
	ActiveSession(ctx context.Context, userID string) (session chat.Session, ok bool, err error)
	// EndActiveSessions closes the user's active sessions and reports how many.
	EndActiveSessions(ctx context.Context, userID string, now time.Time) (int, error)
	// ListSessions returns all sessions of the user, oldest first.
	ListSessions(ctx context.Context, userID string) ([]chat.Session, error)

	AppendMessage(ctx context.Context, msg chat.Message) (chat.Message, error)
	SetMessageStatus(ctx context.Context, messageID string, status chat.MessageStatus) error
	// ListMessages returns a session's messages in creation order. A positive
	// limit keeps only the most recent limit messages.
	ListMessages(ctx context.Context, sessionID string, limit int) ([]chat.Message, error)

	SaveSentiment(ctx context.Context, rec chat.SentimentRecord) error
	// ListScores returns every scored user message of the user in creation order.
	ListScores(ctx context.Context, userID string) ([]chat.ScoredMessage, error)

	// DeleteUserData removes all sessions, messages and sentiment records of the user.
	DeleteUserData(ctx context.Context, userID string) error

	Ping(ctx context.Context) error
	Close() error
}

// newID returns a time-ordered identifier so ties on creation time still sort
// in insertion order.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
