package ai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/zhouzirui/mindmate/backend/internal/model/chat"
	"github.com/zhouzirui/mindmate/backend/internal/model/persona"
)

// OpenAIConfig configures an OpenAI-compatible chat completion endpoint.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// OpenAIGenerator generates replies with the chat completions API.
type OpenAIGenerator struct {
	client  *openai.Client
	cfg     OpenAIConfig
	persona persona.Persona
	logger  *zap.Logger
}

// NewOpenAIGenerator creates the generator; BaseURL allows compatible gateways.
func NewOpenAIGenerator(cfg OpenAIConfig, p persona.Persona, logger *zap.Logger) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIGenerator{
		client:  openai.NewClientWithConfig(clientConfig),
		cfg:     cfg,
		persona: p,
		logger:  logger,
	}, nil
}

// GenerateReply implements Generator.
func (g *OpenAIGenerator) GenerateReply(ctx context.Context, history []chat.Message, latest string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    g.cfg.Model,
		Messages: g.buildMessages(history, latest),
	}
	if g.cfg.Temperature != nil {
		req.Temperature = float32(*g.cfg.Temperature)
	}
	if g.cfg.TopP != nil {
		req.TopP = float32(*g.cfg.TopP)
	}
	if g.cfg.MaxTokens != nil {
		req.MaxTokens = *g.cfg.MaxTokens
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}

	reply, err := cleanReply(resp.Choices[0].Message.Content)
	if err != nil {
		return "", err
	}
	g.logger.Debug("openai reply generated", zap.String("model", resp.Model), zap.Int("total_tokens", resp.Usage.TotalTokens))
	return reply, nil
}

func (g *OpenAIGenerator) buildMessages(history []chat.Message, latest string) []openai.ChatCompletionMessage {
	turns := priorTurns(history, latest)
	messages := make([]openai.ChatCompletionMessage, 0, len(turns)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: g.persona.SystemPrompt,
	})
	for _, msg := range turns {
		role := openai.ChatMessageRoleUser
		if msg.Sender == chat.SenderAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: latest,
	})
}
