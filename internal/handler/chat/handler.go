package chat

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/mindmate/backend/internal/apperr"
	"github.com/zhouzirui/mindmate/backend/internal/middleware"
	chatService "github.com/zhouzirui/mindmate/backend/internal/service/chat"
	"github.com/zhouzirui/mindmate/backend/pkg/utils"
)

// Handler 对话轮次的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/talk", h.handleTalk)
}

type sentimentPayload struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

type talkResponse struct {
	AIResponse string                     `json:"aiResponse"`
	Sentiment  sentimentPayload           `json:"sentiment"`
	TTS        *chatService.SpeechPayload `json:"tts"`
}

// handleTalk 处理一轮对话，?tts=1 时附带语音
func (h *Handler) handleTalk(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.RespondAppError(w, apperr.Validation("talk", "user id is required"))
		return
	}

	var payload struct {
		Message string `json:"message"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondAppError(w, err)
		return
	}

	result, err := h.chatSvc.Turn(r.Context(), userID, chatService.TurnInput{
		Message:    payload.Message,
		WantSpeech: wantsSpeech(r),
	})
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, talkResponse{
		AIResponse: result.Reply,
		Sentiment: sentimentPayload{
			Score: result.Sentiment.Score,
			Label: string(result.Sentiment.Label),
		},
		TTS: result.Speech,
	})
}

func wantsSpeech(r *http.Request) bool {
	switch r.URL.Query().Get("tts") {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
