package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/mindmate/backend/internal/handler/chat"
	"github.com/zhouzirui/mindmate/backend/internal/handler/mood"
	"github.com/zhouzirui/mindmate/backend/internal/handler/session"
	middlewarePkg "github.com/zhouzirui/mindmate/backend/internal/middleware"
	chatService "github.com/zhouzirui/mindmate/backend/internal/service/chat"
	moodService "github.com/zhouzirui/mindmate/backend/internal/service/mood"
	sessionService "github.com/zhouzirui/mindmate/backend/internal/service/session"
	"github.com/zhouzirui/mindmate/backend/pkg/utils"
)

const healthTimeout = 2 * time.Second

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies 路由依赖的核心服务
type Dependencies struct {
	Storage  Pinger
	Sessions *sessionService.Service
	Chat     *chatService.Service
	Mood     *moodService.Service
	// Auth 校验身份并写入用户ID，通常是 middleware.Auth
	Auth   func(http.Handler) http.Handler
	Logger *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	sessionHandler := session.New(deps.Sessions, deps.Mood, deps.Chat)
	chatHandler := chat.New(deps.Chat)
	moodHandler := mood.New(deps.Mood)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", handleHealth(deps))

		api.Group(func(protected chi.Router) {
			if deps.Auth != nil {
				protected.Use(deps.Auth)
			}
			sessionHandler.RegisterRoutes(protected)
			chatHandler.RegisterRoutes(protected)
			moodHandler.RegisterRoutes(protected)
		})
	})

	return r
}

func handleHealth(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]any{
			"status": "ok",
			"speech": deps.Chat != nil && deps.Chat.SpeechEnabled(),
		}

		if deps.Storage != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := deps.Storage.Ping(ctx); err != nil {
				status["status"] = "degraded"
				status["storage"] = err.Error()
				utils.RespondJSON(w, http.StatusServiceUnavailable, status)
				return
			}
		}

		utils.RespondJSON(w, http.StatusOK, status)
	}
}
