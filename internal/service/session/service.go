// Package session implements the per-user session lifecycle.
package session

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/mindmate/backend/internal/apperr"
	"github.com/zhouzirui/mindmate/backend/internal/model/chat"
	"github.com/zhouzirui/mindmate/backend/internal/store"
)

// Service manages the NoActiveSession / ActiveSession state of each user.
type Service struct {
	store  store.Store
	locks  *KeyedMutex
	logger *zap.Logger
	now    func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocks shares a lock table with other per-user services.
func WithLocks(locks *KeyedMutex) Option {
	return func(s *Service) {
		if locks != nil {
			s.locks = locks
		}
	}
}

// NewService wires the session manager over the given store.
func NewService(st store.Store, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:  st,
		locks:  NewKeyedMutex(),
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Locks exposes the per-user lock table so the orchestrator can serialise
// against the same keys.
func (s *Service) Locks() *KeyedMutex {
	return s.locks
}

// Start ends any active session and opens a fresh one.
func (s *Service) Start(ctx context.Context, userID string) (chat.Session, error) {
	const op = "session.Start"
	if err := requireUser(op, userID); err != nil {
		return chat.Session{}, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	session, err := s.store.StartSession(ctx, userID, s.now())
	if err != nil {
		return chat.Session{}, apperr.Storage(op, err)
	}
	s.logger.Info("session started", zap.String("user_id", userID), zap.String("session_id", session.ID))
	return session, nil
}

// GetOrCreateActive returns the active session, creating one when none exists.
func (s *Service) GetOrCreateActive(ctx context.Context, userID string) (chat.Session, error) {
	const op = "session.GetOrCreateActive"
	if err := requireUser(op, userID); err != nil {
		return chat.Session{}, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	return s.getOrCreateLocked(ctx, op, userID)
}

// GetOrCreateActiveLocked is GetOrCreateActive for callers already holding
// the user's lock from Locks().
func (s *Service) GetOrCreateActiveLocked(ctx context.Context, userID string) (chat.Session, error) {
	const op = "session.GetOrCreateActive"
	if err := requireUser(op, userID); err != nil {
		return chat.Session{}, err
	}
	return s.getOrCreateLocked(ctx, op, userID)
}

func (s *Service) getOrCreateLocked(ctx context.Context, op, userID string) (chat.Session, error) {
	session, ok, err := s.store.ActiveSession(ctx, userID)
	if err != nil {
		return chat.Session{}, apperr.Storage(op, err)
	}
	if ok {
		return session, nil
	}

	session, err = s.store.StartSession(ctx, userID, s.now())
	if err != nil {
		return chat.Session{}, apperr.Storage(op, err)
	}
	s.logger.Info("session created lazily", zap.String("user_id", userID), zap.String("session_id", session.ID))
	return session, nil
}

// Active reports the current active session without creating one.
func (s *Service) Active(ctx context.Context, userID string) (chat.Session, bool, error) {
	const op = "session.Active"
	if err := requireUser(op, userID); err != nil {
		return chat.Session{}, false, err
	}
	session, ok, err := s.store.ActiveSession(ctx, userID)
	if err != nil {
		return chat.Session{}, false, apperr.Storage(op, err)
	}
	return session, ok, nil
}

// End closes the active session. Ending with nothing active is a no-op.
func (s *Service) End(ctx context.Context, userID string) error {
	const op = "session.End"
	if err := requireUser(op, userID); err != nil {
		return err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	ended, err := s.store.EndActiveSessions(ctx, userID, s.now())
	if err != nil {
		return apperr.Storage(op, err)
	}
	if ended > 0 {
		s.logger.Info("session ended", zap.String("user_id", userID), zap.Int("ended", ended))
	}
	return nil
}

// Reset deletes every session, message and sentiment record of the user.
func (s *Service) Reset(ctx context.Context, userID string) error {
	const op = "session.Reset"
	if err := requireUser(op, userID); err != nil {
		return err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	if err := s.store.DeleteUserData(ctx, userID); err != nil {
		return apperr.Storage(op, err)
	}
	s.logger.Info("session data reset", zap.String("user_id", userID))
	return nil
}

func requireUser(op, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperr.Validation(op, "user id is required")
	}
	return nil
}
