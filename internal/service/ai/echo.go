package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/zhouzirui/mindmate/backend/internal/model/chat"
	"github.com/zhouzirui/mindmate/backend/internal/model/persona"
)

// EchoGenerator answers without a model so the service runs offline.
type EchoGenerator struct {
	persona persona.Persona
}

func NewEchoGenerator(p persona.Persona) *EchoGenerator {
	return &EchoGenerator{persona: p}
}

// GenerateReply greets on the first turn and reflects the message afterwards.
func (g *EchoGenerator) GenerateReply(_ context.Context, history []chat.Message, latest string) (string, error) {
	latest = strings.TrimSpace(latest)
	if latest == "" {
		return "", ErrEmptyReply
	}
	if len(priorTurns(history, latest)) == 0 && g.persona.OpeningLine != "" {
		return g.persona.OpeningLine, nil
	}
	return fmt.Sprintf("I hear you. You said: %q. Do you want to tell me more about it?", latest), nil
}
