// Package mood derives trend series and dashboard statistics from stored
// sentiment scores.
package mood

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/zhouzirui/mindmate/backend/internal/apperr"
	"github.com/zhouzirui/mindmate/backend/internal/model/chat"
	"github.com/zhouzirui/mindmate/backend/internal/model/mood"
	"github.com/zhouzirui/mindmate/backend/internal/store"
)

// priorWindow is how many recent scores from other sessions form the baseline.
const priorWindow = 5

// Service aggregates mood history for a user.
type Service struct {
	store store.Store
	now   func() time.Time
}

// NewService builds the aggregator. A nil clock falls back to time.Now.
func NewService(st store.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: st, now: now}
}

// Trends returns every session oldest first with its scores indexed from 1.
func (s *Service) Trends(ctx context.Context, userID string) ([]mood.SessionTrend, error) {
	const op = "mood.Trends"
	if strings.TrimSpace(userID) == "" {
		return nil, apperr.Validation(op, "user id is required")
	}

	sessions, scores, err := s.load(ctx, userID)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}

	bySession := groupScores(scores)
	trends := make([]mood.SessionTrend, 0, len(sessions))
	for _, session := range sessions {
		points := make([]mood.Point, 0, len(bySession[session.ID]))
		for i, sc := range bySession[session.ID] {
			points = append(points, mood.Point{
				Index:     i + 1,
				Score:     sc.Score,
				Timestamp: sc.CreatedAt,
			})
		}
		trends = append(trends, mood.SessionTrend{
			SessionID: session.ID,
			StartedAt: session.StartedAt,
			Points:    points,
		})
	}
	return trends, nil
}

// Stats computes session count, cumulative hours and mood improvement.
func (s *Service) Stats(ctx context.Context, userID string) (mood.Stats, error) {
	const op = "mood.Stats"
	if strings.TrimSpace(userID) == "" {
		return mood.Stats{}, apperr.Validation(op, "user id is required")
	}

	sessions, scores, err := s.load(ctx, userID)
	if err != nil {
		return mood.Stats{}, apperr.Storage(op, err)
	}

	now := s.now()
	var total time.Duration
	for _, session := range sessions {
		total += session.Duration(now)
	}

	improvement := 0
	if len(sessions) > 0 {
		last := sessions[len(sessions)-1]
		lastAvg, priorAvg := baselineAverages(scores, last.ID)
		improvement = Improvement(lastAvg, priorAvg)
	}

	return mood.Stats{
		SessionsCompleted:      len(sessions),
		TotalHours:             roundHalfUp(total.Hours()*10) / 10,
		MoodImprovementPercent: &improvement,
	}, nil
}

// Average is a mean that may be absent when there was nothing to average.
type Average struct {
	Value float64
	Valid bool
}

func averageOf(values []float64) Average {
	if len(values) == 0 {
		return Average{}
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return Average{Value: sum / float64(len(values)), Valid: true}
}

// Improvement compares the latest session average with the prior baseline.
// A missing baseline counts as 0; a zero baseline or a missing latest
// average yields 0.
func Improvement(last, prior Average) int {
	switch {
	case last.Valid && prior.Valid && prior.Value != 0:
		return int(roundHalfUp(100 * (last.Value - prior.Value) / math.Abs(prior.Value)))
	case last.Valid && !prior.Valid:
		return int(roundHalfUp(100 * last.Value))
	default:
		return 0
	}
}

// baselineAverages splits scores into the latest session and the most recent
// priorWindow scores from every other session.
func baselineAverages(scores []chat.ScoredMessage, lastSessionID string) (last, prior Average) {
	var lastValues, priorValues []float64
	for i := len(scores) - 1; i >= 0; i-- {
		sc := scores[i]
		if sc.SessionID == lastSessionID {
			lastValues = append(lastValues, sc.Score)
			continue
		}
		if len(priorValues) < priorWindow {
			priorValues = append(priorValues, sc.Score)
		}
	}
	return averageOf(lastValues), averageOf(priorValues)
}

func (s *Service) load(ctx context.Context, userID string) ([]chat.Session, []chat.ScoredMessage, error) {
	sessions, err := s.store.ListSessions(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	scores, err := s.store.ListScores(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return sessions, scores, nil
}

func groupScores(scores []chat.ScoredMessage) map[string][]chat.ScoredMessage {
	grouped := make(map[string][]chat.ScoredMessage)
	for _, sc := range scores {
		grouped[sc.SessionID] = append(grouped[sc.SessionID], sc)
	}
	for _, list := range grouped {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		})
	}
	return grouped
}

// roundHalfUp rounds .5 toward positive infinity.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
