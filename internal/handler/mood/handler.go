package mood

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/mindmate/backend/internal/apperr"
	"github.com/zhouzirui/mindmate/backend/internal/middleware"
	moodService "github.com/zhouzirui/mindmate/backend/internal/service/mood"
	"github.com/zhouzirui/mindmate/backend/pkg/utils"
)

// Handler serves mood trends.
type Handler struct {
	mood *moodService.Service
}

func New(mood *moodService.Service) *Handler {
	return &Handler{mood: mood}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/mood-trends/{userID}", h.handleTrends)
}

// handleTrends 只允许查询自己的趋势，读取前先校验身份
func (h *Handler) handleTrends(w http.ResponseWriter, r *http.Request) {
	requested := chi.URLParam(r, "userID")
	userID, ok := middleware.UserID(r.Context())
	if !ok || requested != userID {
		utils.RespondAppError(w, apperr.Authorization("mood.Trends", "Unauthorized"))
		return
	}

	trends, err := h.mood.Trends(r.Context(), userID)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"sessions": trends})
}
