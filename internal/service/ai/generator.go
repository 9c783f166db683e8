package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/zhouzirui/mindmate/backend/internal/config"
	"github.com/zhouzirui/mindmate/backend/internal/model/chat"
	"github.com/zhouzirui/mindmate/backend/internal/model/persona"
)

// ErrEmptyReply is returned when a provider answers with no text.
var ErrEmptyReply = errors.New("model returned an empty reply")

// Generator produces the companion's reply for a conversation.
type Generator interface {
	GenerateReply(ctx context.Context, history []chat.Message, latest string) (string, error)
}

// New builds the generator for the configured provider.
func New(ctx context.Context, cfg config.AIConfig, p persona.Persona, logger *zap.Logger) (Generator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	provider := cfg.ResolvedProvider()
	switch provider {
	case "ark":
		chatModel, err := cfg.NewChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		return NewChainGenerator(ctx, chatModel, p, logger)
	case "openai":
		return NewOpenAIGenerator(OpenAIConfig{
			APIKey:      cfg.OpenAIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.OpenAIModel,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			MaxTokens:   cfg.MaxTokens,
		}, p, logger)
	case "gemini":
		return NewGeminiGenerator(ctx, GeminiConfig{
			APIKey:      cfg.GeminiKey,
			Model:       cfg.GeminiModel,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			MaxTokens:   cfg.MaxTokens,
		}, p, logger)
	case "echo":
		logger.Warn("no AI credentials configured, falling back to the offline echo generator")
		return NewEchoGenerator(p), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", provider)
	}
}

// priorTurns drops the trailing user message when it is the message being
// answered, so providers do not see it twice.
func priorTurns(history []chat.Message, latest string) []chat.Message {
	if n := len(history); n > 0 {
		last := history[n-1]
		if last.Sender == chat.SenderUser && strings.TrimSpace(last.Content) == strings.TrimSpace(latest) {
			return history[:n-1]
		}
	}
	return history
}

func cleanReply(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}
