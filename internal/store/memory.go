package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zhouzirui/mindmate/backend/internal/model/chat"
)

// MemoryStore keeps everything in process memory, suitable for development
// and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	sessions   map[string]chat.Session
	byUser     map[string][]string // userID -> session ids in start order
	messages   map[string][]chat.Message
	messageIdx map[string]messageRef
	sentiments map[string]chat.SentimentRecord
}

type messageRef struct {
	sessionID string
	pos       int
}

// NewMemoryStore bootstraps an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:   make(map[string]chat.Session),
		byUser:     make(map[string][]string),
		messages:   make(map[string][]chat.Message),
		messageIdx: make(map[string]messageRef),
		sentiments: make(map[string]chat.SentimentRecord),
	}
}

func (s *MemoryStore) StartSession(_ context.Context, userID string, now time.Time) (chat.Session, error) {
	now = now.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.endActiveLocked(userID, now)

	session := chat.Session{
		ID:        newID(),
		UserID:    userID,
		StartedAt: now,
		IsActive:  true,
	}
	s.sessions[session.ID] = session
	s.byUser[userID] = append(s.byUser[userID], session.ID)
	s.messages[session.ID] = make([]chat.Message, 0, 16)
	return session, nil
}

func (s *MemoryStore) ActiveSession(_ context.Context, userID string) (chat.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byUser[userID]
	for i := len(ids) - 1; i >= 0; i-- {
		if session := s.sessions[ids[i]]; session.IsActive {
			return cloneSession(session), true, nil
		}
	}
	return chat.Session{}, false, nil
}

func (s *MemoryStore) EndActiveSessions(_ context.Context, userID string, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endActiveLocked(userID, now.UTC()), nil
}

func (s *MemoryStore) endActiveLocked(userID string, now time.Time) int {
	ended := 0
	for _, id := range s.byUser[userID] {
		session := s.sessions[id]
		if !session.IsActive {
			continue
		}
		endedAt := now
		session.IsActive = false
		session.EndedAt = &endedAt
		s.sessions[id] = session
		ended++
	}
	return ended
}

func (s *MemoryStore) ListSessions(_ context.Context, userID string) ([]chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byUser[userID]
	out := make([]chat.Session, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneSession(s.sessions[id]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

// AppendMessage appends a message to the session history.
func (s *MemoryStore) AppendMessage(_ context.Context, msg chat.Message) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[msg.SessionID]; !ok {
		return chat.Message{}, ErrSessionNotFound
	}

	msg = normalizeMessage(msg)
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], msg)
	s.messageIdx[msg.ID] = messageRef{sessionID: msg.SessionID, pos: len(s.messages[msg.SessionID]) - 1}
	return msg, nil
}

func (s *MemoryStore) SetMessageStatus(_ context.Context, messageID string, status chat.MessageStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := s.messageIdx[messageID]
	if !ok {
		return ErrMessageNotFound
	}
	s.messages[ref.sessionID][ref.pos].Status = status
	return nil
}

// ListMessages returns stored messages for the provided session.
func (s *MemoryStore) ListMessages(_ context.Context, sessionID string, limit int) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	start := 0
	if limit > 0 && len(messages) > limit {
		start = len(messages) - limit
	}

	copied := make([]chat.Message, len(messages)-start)
	copy(copied, messages[start:])
	return copied, nil
}

func (s *MemoryStore) SaveSentiment(_ context.Context, rec chat.SentimentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := s.messageIdx[rec.MessageID]
	if !ok {
		return ErrMessageNotFound
	}
	if s.messages[ref.sessionID][ref.pos].Sender != chat.SenderUser {
		return ErrNotUserMessage
	}
	if _, exists := s.sentiments[rec.MessageID]; exists {
		return ErrAlreadyScored
	}
	s.sentiments[rec.MessageID] = rec
	return nil
}

func (s *MemoryStore) ListScores(_ context.Context, userID string) ([]chat.ScoredMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []chat.ScoredMessage
	for _, sessionID := range s.byUser[userID] {
		for _, msg := range s.messages[sessionID] {
			rec, ok := s.sentiments[msg.ID]
			if !ok || msg.UserID != userID {
				continue
			}
			out = append(out, chat.ScoredMessage{
				MessageID: msg.ID,
				SessionID: sessionID,
				Score:     rec.Score,
				CreatedAt: msg.CreatedAt,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].MessageID < out[j].MessageID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) DeleteUserData(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sessionID := range s.byUser[userID] {
		for _, msg := range s.messages[sessionID] {
			delete(s.sentiments, msg.ID)
			delete(s.messageIdx, msg.ID)
		}
		delete(s.messages, sessionID)
		delete(s.sessions, sessionID)
	}
	delete(s.byUser, userID)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

func normalizeMessage(msg chat.Message) chat.Message {
	if msg.ID == "" {
		msg.ID = newID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	msg.CreatedAt = msg.CreatedAt.UTC()
	if msg.Status == "" {
		msg.Status = chat.StatusAnswered
	}
	return msg
}

func cloneSession(s chat.Session) chat.Session {
	if s.EndedAt != nil {
		endedAt := *s.EndedAt
		s.EndedAt = &endedAt
	}
	return s
}
