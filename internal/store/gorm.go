package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/zhouzirui/mindmate/backend/internal/model/chat"
)

type sessionRow struct {
	ID        string     `gorm:"type:varchar(36);primaryKey"`
	UserID    string     `gorm:"type:varchar(64);not null;index"`
	StartedAt time.Time  `gorm:"not null;index"`
	EndedAt   *time.Time `gorm:"default:null"`
	IsActive  bool       `gorm:"not null"`
}

func (sessionRow) TableName() string { return "sessions" }

type messageRow struct {
	ID         string    `gorm:"type:varchar(36);primaryKey"`
	SessionID  string    `gorm:"type:varchar(36);not null;index"`
	UserID     string    `gorm:"type:varchar(64);not null;index"`
	SenderType string    `gorm:"type:varchar(16);not null"`
	Message    string    `gorm:"type:text;not null"`
	Status     string    `gorm:"type:varchar(16);not null"`
	CreatedAt  time.Time `gorm:"not null;index"`
}

func (messageRow) TableName() string { return "chat_messages" }

type sentimentRow struct {
	MessageID      string  `gorm:"type:varchar(36);primaryKey"`
	SentimentScore float64 `gorm:"not null"`
	SentimentLabel string  `gorm:"type:varchar(16);not null"`
}

func (sentimentRow) TableName() string { return "chat_sentiments" }

// 同一用户最多一个活跃会话，由数据库兜底
const oneActiveIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_active ON sessions (user_id) WHERE is_active`

// Options configures the SQL connection pool.
type Options struct {
	Driver       string // postgres | sqlite
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	LogLevel     gormlogger.LogLevel
}

// GormStore is the relational Store backed by gorm.
type GormStore struct {
	db *gorm.DB
}

// Open connects to the configured database and migrates the schema.
func Open(opts Options) (*GormStore, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case "postgres":
		dialector = postgres.Open(opts.DSN)
	case "sqlite":
		dialector = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	level := opts.LogLevel
	if level == 0 {
		level = gormlogger.Silent
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  gormlogger.Default.LogMode(level),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql handle: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}

	store, err := NewGormStore(db)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return store, nil
}

// NewGormStore wraps an existing gorm handle and migrates the schema.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&sessionRow{}, &messageRow{}, &sentimentRow{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec(oneActiveIndex).Error; err != nil {
		return nil, fmt.Errorf("create active session index: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) StartSession(ctx context.Context, userID string, now time.Time) (chat.Session, error) {
	now = now.UTC()
	row := sessionRow{
		ID:        newID(),
		UserID:    userID,
		StartedAt: now,
		IsActive:  true,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := closeActive(tx, userID, now).Error; err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return chat.Session{}, err
	}
	return row.toModel(), nil
}

func (s *GormStore) ActiveSession(ctx context.Context, userID string) (chat.Session, bool, error) {
	var rows []sessionRow
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("started_at DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return chat.Session{}, false, err
	}
	if len(rows) == 0 {
		return chat.Session{}, false, nil
	}
	return rows[0].toModel(), true, nil
}

func (s *GormStore) EndActiveSessions(ctx context.Context, userID string, now time.Time) (int, error) {
	var ended int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := closeActive(tx, userID, now.UTC())
		ended = res.RowsAffected
		return res.Error
	})
	return int(ended), err
}

func closeActive(tx *gorm.DB, userID string, now time.Time) *gorm.DB {
	return tx.Model(&sessionRow{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Updates(map[string]any{"is_active": false, "ended_at": now})
}

func (s *GormStore) ListSessions(ctx context.Context, userID string) ([]chat.Session, error) {
	var rows []sessionRow
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]chat.Session, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}

func (s *GormStore) AppendMessage(ctx context.Context, msg chat.Message) (chat.Message, error) {
	msg = normalizeMessage(msg)
	row := messageRow{
		ID:         msg.ID,
		SessionID:  msg.SessionID,
		UserID:     msg.UserID,
		SenderType: string(msg.Sender),
		Message:    msg.Content,
		Status:     string(msg.Status),
		CreatedAt:  msg.CreatedAt,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireSession(tx, msg.SessionID); err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return chat.Message{}, err
	}
	return msg, nil
}

func (s *GormStore) SetMessageStatus(ctx context.Context, messageID string, status chat.MessageStatus) error {
	res := s.db.WithContext(ctx).
		Model(&messageRow{}).
		Where("id = ?", messageID).
		Update("status", string(status))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (s *GormStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]chat.Message, error) {
	db := s.db.WithContext(ctx)
	if err := requireSession(db, sessionID); err != nil {
		return nil, err
	}

	var rows []messageRow
	query := db.Where("session_id = ?", sessionID).Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]chat.Message, len(rows))
	for i, row := range rows {
		out[len(rows)-1-i] = row.toModel()
	}
	return out, nil
}

func (s *GormStore) SaveSentiment(ctx context.Context, rec chat.SentimentRecord) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var msg messageRow
		err := tx.Where("id = ?", rec.MessageID).Take(&msg).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		if err != nil {
			return err
		}
		if msg.SenderType != string(chat.SenderUser) {
			return ErrNotUserMessage
		}

		var existing int64
		if err := tx.Model(&sentimentRow{}).Where("message_id = ?", rec.MessageID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyScored
		}

		return tx.Create(&sentimentRow{
			MessageID:      rec.MessageID,
			SentimentScore: rec.Score,
			SentimentLabel: string(rec.Label),
		}).Error
	})
}

type scoreRow struct {
	MessageID      string    `gorm:"column:message_id"`
	SessionID      string    `gorm:"column:session_id"`
	SentimentScore float64   `gorm:"column:sentiment_score"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (s *GormStore) ListScores(ctx context.Context, userID string) ([]chat.ScoredMessage, error) {
	var rows []scoreRow
	err := s.db.WithContext(ctx).
		Table("chat_sentiments AS cs").
		Select("cs.message_id, m.session_id, cs.sentiment_score, m.created_at").
		Joins("JOIN chat_messages AS m ON m.id = cs.message_id").
		Where("m.user_id = ?", userID).
		Order("m.created_at ASC, m.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]chat.ScoredMessage, 0, len(rows))
	for _, row := range rows {
		out = append(out, chat.ScoredMessage{
			MessageID: row.MessageID,
			SessionID: row.SessionID,
			Score:     row.SentimentScore,
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return out, nil
}

// DeleteUserData removes children before parents.
func (s *GormStore) DeleteUserData(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userMessages := tx.Model(&messageRow{}).Select("id").Where("user_id = ?", userID)
		if err := tx.Where("message_id IN (?)", userMessages).Delete(&sentimentRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&messageRow{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&sessionRow{}).Error
	})
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func requireSession(tx *gorm.DB, sessionID string) error {
	var count int64
	if err := tx.Model(&sessionRow{}).Where("id = ?", sessionID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r sessionRow) toModel() chat.Session {
	session := chat.Session{
		ID:        r.ID,
		UserID:    r.UserID,
		StartedAt: r.StartedAt.UTC(),
		IsActive:  r.IsActive,
	}
	if r.EndedAt != nil {
		endedAt := r.EndedAt.UTC()
		session.EndedAt = &endedAt
	}
	return session
}

func (r messageRow) toModel() chat.Message {
	return chat.Message{
		ID:        r.ID,
		SessionID: r.SessionID,
		UserID:    r.UserID,
		Sender:    chat.Sender(r.SenderType),
		Content:   r.Message,
		Status:    chat.MessageStatus(r.Status),
		CreatedAt: r.CreatedAt.UTC(),
	}
}
