package chat

import (
	"time"

	"github.com/zhouzirui/mindmate/backend/internal/analysis/sentiment"
)

// SentimentRecord is the score attached to exactly one user message.
type SentimentRecord struct {
	MessageID string          `json:"messageId"`
	Score     float64         `json:"score"`
	Label     sentiment.Label `json:"label"`
}

// ScoredMessage pairs a sentiment score with the creation time of its message.
type ScoredMessage struct {
	MessageID string
	SessionID string
	Score     float64
	CreatedAt time.Time
}
