package chat

import "time"

// Session 用户的一段陪伴对话。每个用户同一时刻至多一个活跃会话。
type Session struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
	IsActive  bool       `json:"isActive"`
}

// Duration returns how long the session ran, measuring open sessions up to now.
func (s Session) Duration(now time.Time) time.Duration {
	end := now
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	if end.Before(s.StartedAt) {
		return 0
	}
	return end.Sub(s.StartedAt)
}
