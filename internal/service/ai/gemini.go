package ai

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/zhouzirui/mindmate/backend/internal/model/chat"
	"github.com/zhouzirui/mindmate/backend/internal/model/persona"
)

// GeminiConfig configures the Gemini API generator.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// GeminiGenerator generates replies with the Gemini API.
type GeminiGenerator struct {
	client  *genai.Client
	cfg     GeminiConfig
	persona persona.Persona
	logger  *zap.Logger
}

// NewGeminiGenerator creates a Gemini client bound to an API key.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig, p persona.Persona, logger *zap.Logger) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiGenerator{client: client, cfg: cfg, persona: p, logger: logger}, nil
}

// GenerateReply implements Generator.
func (g *GeminiGenerator) GenerateReply(ctx context.Context, history []chat.Message, latest string) (string, error) {
	res, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, toGeminiContents(history, latest), g.generationConfig())
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return cleanReply(res.Text())
}

// generationConfig 默认值沿用陪伴人设的调参：偏暖、简短。
func (g *GeminiGenerator) generationConfig() *genai.GenerateContentConfig {
	temp := float32(0.8)
	if g.cfg.Temperature != nil {
		temp = float32(*g.cfg.Temperature)
	}
	topP := float32(0.9)
	if g.cfg.TopP != nil {
		topP = float32(*g.cfg.TopP)
	}
	topK := float32(40)
	maxTokens := int32(256)
	if g.cfg.MaxTokens != nil {
		maxTokens = int32(*g.cfg.MaxTokens)
	}

	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(g.persona.SystemPrompt, genai.RoleUser),
		Temperature:       &temp,
		TopP:              &topP,
		TopK:              &topK,
		MaxOutputTokens:   maxTokens,
	}
}

func toGeminiContents(history []chat.Message, latest string) []*genai.Content {
	turns := priorTurns(history, latest)
	contents := make([]*genai.Content, 0, len(turns)+1)
	for _, msg := range turns {
		var role genai.Role = genai.RoleUser
		if msg.Sender == chat.SenderAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	return append(contents, genai.NewContentFromText(latest, genai.RoleUser))
}
