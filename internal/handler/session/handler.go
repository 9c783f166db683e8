package session

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/mindmate/backend/internal/apperr"
	"github.com/zhouzirui/mindmate/backend/internal/middleware"
	chatService "github.com/zhouzirui/mindmate/backend/internal/service/chat"
	moodService "github.com/zhouzirui/mindmate/backend/internal/service/mood"
	sessionService "github.com/zhouzirui/mindmate/backend/internal/service/session"
	"github.com/zhouzirui/mindmate/backend/pkg/utils"
)

// Handler 会话生命周期的HTTP处理器
type Handler struct {
	sessions *sessionService.Service
	mood     *moodService.Service
	chat     *chatService.Service
}

// New 创建会话处理器
func New(sessions *sessionService.Service, mood *moodService.Service, chat *chatService.Service) *Handler {
	return &Handler{sessions: sessions, mood: mood, chat: chat}
}

// RegisterRoutes 注册 /session 路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/session", func(r chi.Router) {
		r.Post("/start", h.handleStart)
		r.Post("/end", h.handleEnd)
		r.Post("/reset", h.handleReset)
		r.Get("/stats", h.handleStats)
		r.Get("/active", h.handleActive)
	})
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	session, err := h.sessions.Start(r.Context(), userID)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"session": session})
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.sessions.End(r.Context(), userID); err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Session ended"})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.sessions.Reset(r.Context(), userID); err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Session data reset successfully"})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	stats, err := h.mood.Stats(r.Context(), userID)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, stats)
}

// handleActive 返回当前活跃会话及其消息，用于前端恢复对话
func (h *Handler) handleActive(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	session, found, messages, err := h.chat.Transcript(r.Context(), userID)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	payload := map[string]any{"session": nil, "messages": messages}
	if found {
		payload["session"] = session
	}
	utils.RespondJSON(w, http.StatusOK, payload)
}

func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.RespondAppError(w, apperr.Validation("session", "user id is required"))
		return "", false
	}
	return userID, true
}
