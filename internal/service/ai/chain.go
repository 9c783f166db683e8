package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/mindmate/backend/internal/model/chat"
	"github.com/zhouzirui/mindmate/backend/internal/model/persona"
)

// ChainGenerator runs the reply through an eino prompt + chat model chain.
type ChainGenerator struct {
	persona persona.Persona
	chain   compose.Runnable[map[string]any, *schema.Message]
	logger  *zap.Logger
}

// NewChainGenerator compiles the chat chain around the given model.
func NewChainGenerator(ctx context.Context, chatModel model.BaseChatModel, p persona.Persona, logger *zap.Logger) (*ChainGenerator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &ChainGenerator{persona: p, chain: runnable, logger: logger}, nil
}

// GenerateReply implements Generator.
func (g *ChainGenerator) GenerateReply(ctx context.Context, history []chat.Message, latest string) (string, error) {
	input := map[string]any{
		"system":  g.persona.SystemPrompt,
		"history": toSchemaMessages(priorTurns(history, latest)),
		"query":   latest,
	}

	response, err := g.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}

	reply, err := cleanReply(response.Content)
	if err != nil {
		return "", err
	}
	g.logger.Debug("chain reply generated", zap.Int("history", len(history)), zap.Int("length", len(reply)))
	return reply, nil
}

func toSchemaMessages(messages []chat.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	out := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Sender {
		case chat.SenderUser:
			out = append(out, schema.UserMessage(msg.Content))
		case chat.SenderAssistant:
			out = append(out, schema.AssistantMessage(msg.Content, nil))
		}
	}
	return out
}
