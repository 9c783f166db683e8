package chat

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/mindmate/backend/internal/analysis/emotion"
	"github.com/zhouzirui/mindmate/backend/internal/analysis/sentiment"
	"github.com/zhouzirui/mindmate/backend/internal/apperr"
	"github.com/zhouzirui/mindmate/backend/internal/model/chat"
	"github.com/zhouzirui/mindmate/backend/internal/service/ai"
	"github.com/zhouzirui/mindmate/backend/internal/service/session"
	speechsvc "github.com/zhouzirui/mindmate/backend/internal/service/speech"
	"github.com/zhouzirui/mindmate/backend/internal/store"
)

const defaultReplyTimeout = 30 * time.Second

// TurnInput is one user utterance.
type TurnInput struct {
	Message    string
	WantSpeech bool
}

// SpeechPayload carries base64 audio of the reply.
type SpeechPayload struct {
	Format   string `json:"format"`
	Data     string `json:"data"`
	Language string `json:"-"`
}

// TurnResult is returned for a completed turn. Sentiment describes the user's
// message; assistant replies are never scored.
type TurnResult struct {
	Reply         string
	Sentiment     chat.SentimentRecord
	Speech        *SpeechPayload
	SessionID     string
	UserMessageID string
}

// Service 编排一次对话轮次：会话、持久化、情感评分、回复生成、可选语音。
type Service struct {
	store         store.Store
	sessions      *session.Service
	generator     ai.Generator
	synthesizer   speechsvc.Synthesizer
	logger        *zap.Logger
	now           func() time.Time
	historyWindow int
	replyTimeout  time.Duration
}

type Option func(*Service)

// WithSynthesizer enables speech for turns that ask for it.
func WithSynthesizer(s speechsvc.Synthesizer) Option {
	return func(svc *Service) { svc.synthesizer = s }
}

// WithHistoryWindow keeps only the last n messages as context; 0 replays all.
func WithHistoryWindow(n int) Option {
	return func(svc *Service) {
		if n >= 0 {
			svc.historyWindow = n
		}
	}
}

// WithReplyTimeout bounds the reply generation call.
func WithReplyTimeout(d time.Duration) Option {
	return func(svc *Service) {
		if d > 0 {
			svc.replyTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(svc *Service) {
		if now != nil {
			svc.now = now
		}
	}
}

// NewService wires the orchestrator.
func NewService(st store.Store, sessions *session.Service, generator ai.Generator, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &Service{
		store:        st,
		sessions:     sessions,
		generator:    generator,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
		replyTimeout: defaultReplyTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// SpeechEnabled reports whether a synthesizer is configured.
func (s *Service) SpeechEnabled() bool {
	return s.synthesizer != nil
}

type preparedTurn struct {
	session     chat.Session
	userMessage chat.Message
	sentiment   chat.SentimentRecord
	history     []chat.Message
}

// Turn runs one conversational turn. Writes made before a failed reply stay
// in place: the user message is kept and marked failed.
func (s *Service) Turn(ctx context.Context, userID string, in TurnInput) (TurnResult, error) {
	const op = "chat.Turn"
	text := strings.TrimSpace(in.Message)
	if text == "" {
		return TurnResult{}, apperr.Validation(op, "message is required")
	}
	if strings.TrimSpace(userID) == "" {
		return TurnResult{}, apperr.Validation(op, "user id is required")
	}

	prepared, err := s.prepare(ctx, op, userID, text)
	if err != nil {
		return TurnResult{}, err
	}

	log := s.logger.With(
		zap.String("user_id", userID),
		zap.String("session_id", prepared.session.ID),
		zap.String("message_id", prepared.userMessage.ID),
	)

	replyCtx, cancel := context.WithTimeout(ctx, s.replyTimeout)
	reply, genErr := s.generator.GenerateReply(replyCtx, prepared.history, text)
	cancel()
	if genErr != nil {
		// 请求可能已被取消，状态回写不跟随请求上下文。
		if err := s.store.SetMessageStatus(context.WithoutCancel(ctx), prepared.userMessage.ID, chat.StatusFailed); err != nil {
			log.Error("failed to mark message as failed", zap.Error(err))
		}
		log.Warn("reply generation failed", zap.Error(genErr))
		return TurnResult{}, apperr.Capability(op, genErr)
	}

	if err := s.store.SetMessageStatus(ctx, prepared.userMessage.ID, chat.StatusAnswered); err != nil {
		return TurnResult{}, apperr.Storage(op, err)
	}
	if _, err := s.store.AppendMessage(ctx, chat.Message{
		SessionID: prepared.session.ID,
		UserID:    userID,
		Sender:    chat.SenderAssistant,
		Content:   reply,
		Status:    chat.StatusAnswered,
		CreatedAt: s.now(),
	}); err != nil {
		return TurnResult{}, apperr.Storage(op, err)
	}

	result := TurnResult{
		Reply:         reply,
		Sentiment:     prepared.sentiment,
		SessionID:     prepared.session.ID,
		UserMessageID: prepared.userMessage.ID,
	}
	if in.WantSpeech {
		result.Speech = s.synthesize(ctx, log, text, reply)
	}

	log.Info("turn completed",
		zap.Float64("score", prepared.sentiment.Score),
		zap.String("label", string(prepared.sentiment.Label)),
		zap.Int("history", len(prepared.history)),
		zap.Bool("speech", result.Speech != nil),
	)
	return result, nil
}

// prepare covers the steps that run under the user's lock: resolve the
// session, persist and score the message, read the history.
func (s *Service) prepare(ctx context.Context, op, userID, text string) (preparedTurn, error) {
	unlock := s.sessions.Locks().Lock(userID)
	defer unlock()

	active, err := s.sessions.GetOrCreateActiveLocked(ctx, userID)
	if err != nil {
		return preparedTurn{}, err
	}

	userMessage, err := s.store.AppendMessage(ctx, chat.Message{
		SessionID: active.ID,
		UserID:    userID,
		Sender:    chat.SenderUser,
		Content:   text,
		Status:    chat.StatusPending,
		CreatedAt: s.now(),
	})
	if err != nil {
		return preparedTurn{}, apperr.Storage(op, err)
	}

	scored := sentiment.Analyze(text)
	record := chat.SentimentRecord{
		MessageID: userMessage.ID,
		Score:     scored.Score,
		Label:     scored.Label,
	}
	if err := s.store.SaveSentiment(ctx, record); err != nil {
		return preparedTurn{}, apperr.Storage(op, err)
	}

	history, err := s.store.ListMessages(ctx, active.ID, s.historyWindow)
	if err != nil {
		return preparedTurn{}, apperr.Storage(op, err)
	}

	return preparedTurn{
		session:     active,
		userMessage: userMessage,
		sentiment:   record,
		history:     history,
	}, nil
}

// synthesize 语音失败只记录日志，本轮照常返回文字回复
func (s *Service) synthesize(ctx context.Context, log *zap.Logger, userText, reply string) *SpeechPayload {
	if s.synthesizer == nil {
		return nil
	}

	language := speechsvc.DetectLanguage(reply)
	audio, err := s.synthesizer.Synthesize(ctx, speechsvc.Input{
		Text:         reply,
		LanguageHint: language,
		Tone:         emotion.Analyze(userText, reply),
	})
	if err != nil {
		log.Warn("speech synthesis failed, replying without audio", zap.Error(err))
		return nil
	}
	if audio == nil || len(audio.AudioData) == 0 {
		log.Warn("speech synthesis returned no audio")
		return nil
	}

	format := audio.Format
	if format == "" {
		format = "mp3"
	}
	return &SpeechPayload{
		Format:   format,
		Data:     base64.StdEncoding.EncodeToString(audio.AudioData),
		Language: language,
	}
}

// Transcript returns the ordered messages of the active session, empty when
// the user has none.
func (s *Service) Transcript(ctx context.Context, userID string) (chat.Session, bool, []chat.Message, error) {
	const op = "chat.Transcript"
	active, ok, err := s.sessions.Active(ctx, userID)
	if err != nil {
		return chat.Session{}, false, nil, err
	}
	if !ok {
		return chat.Session{}, false, []chat.Message{}, nil
	}

	messages, err := s.store.ListMessages(ctx, active.ID, 0)
	if err != nil {
		return chat.Session{}, false, nil, apperr.Storage(op, err)
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	return active, true, messages, nil
}
