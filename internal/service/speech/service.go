package speech

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/mindmate/backend/internal/analysis/emotion"
	"github.com/zhouzirui/mindmate/backend/internal/model/speech"
)

// Input is one synthesis call. LanguageHint may be empty, in which case the
// language is detected from Text.
type Input struct {
	Text         string
	LanguageHint string
	Tone         emotion.Decision
}

// Synthesizer turns reply text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, in Input) (*speech.TTSResponse, error)
}

// Service 语音合成服务，负责语言识别与音色选择。
type Service struct {
	cfg    speech.Config
	client *TTSClient
	logger *zap.Logger
}

// NewService creates the speech service over the Volcengine TTS client.
func NewService(cfg speech.Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:    cfg,
		client: NewTTSClient(cfg, logger),
		logger: logger,
	}
}

// Synthesize picks the language from the hint, or detects it from the text
// when the hint is unknown, and synthesizes with that language's voice.
func (s *Service) Synthesize(ctx context.Context, in Input) (*speech.TTSResponse, error) {
	language := NormalizeLanguage(in.LanguageHint)
	if language == "" {
		language = DetectLanguage(in.Text)
	}
	voice := s.cfg.VoiceFor(language)

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	req := &speech.TTSRequest{
		Text:     in.Text,
		Voice:    voice,
		Language: language,
		Format:   s.cfg.Format,
	}
	if ok, label, scale := ComputeEmotionParameters(voice, in.Tone); ok {
		req.Emotion, req.EmotionScale = label, scale
	}

	started := time.Now()
	resp, err := s.client.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("speech synthesized",
		zap.String("language", language),
		zap.String("voice", resp.Voice),
		zap.String("emotion", req.Emotion),
		zap.Int("bytes", len(resp.AudioData)),
		zap.Duration("elapsed", time.Since(started)))
	return resp, nil
}

// VoiceFor exposes the configured voice for a language.
func (s *Service) VoiceFor(language string) string {
	return s.cfg.VoiceFor(language)
}
