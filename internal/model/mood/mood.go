package mood

import "time"

// Point 趋势图上的一个点，Index 在每个会话内从 1 开始。
type Point struct {
	Index     int       `json:"index"`
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionTrend is the ordered sentiment series of one session.
type SessionTrend struct {
	SessionID string    `json:"sessionId"`
	StartedAt time.Time `json:"startedAt"`
	Points    []Point   `json:"data"`
}

// Stats summarises a user's history for the dashboard.
type Stats struct {
	SessionsCompleted      int     `json:"sessionsCompleted"`
	TotalHours             float64 `json:"totalHours"`
	MoodImprovementPercent *int    `json:"moodImprovementPercent"`
}
