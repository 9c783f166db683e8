package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/zhouzirui/mindmate/backend/internal/config"
	"github.com/zhouzirui/mindmate/backend/internal/handler"
	"github.com/zhouzirui/mindmate/backend/internal/logging"
	"github.com/zhouzirui/mindmate/backend/internal/middleware"
	"github.com/zhouzirui/mindmate/backend/internal/model/persona"
	"github.com/zhouzirui/mindmate/backend/internal/service/ai"
	"github.com/zhouzirui/mindmate/backend/internal/service/chat"
	"github.com/zhouzirui/mindmate/backend/internal/service/mood"
	"github.com/zhouzirui/mindmate/backend/internal/service/session"
	"github.com/zhouzirui/mindmate/backend/internal/service/speech"
	"github.com/zhouzirui/mindmate/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Auth.Secret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	st, err := openStore(cfg)
	if err != nil {
		logger.Fatal("failed to open storage", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("failed to close storage", zap.Error(err))
		}
	}()
	logger.Info("storage ready", zap.String("driver", cfg.Database.Driver))

	companion := persona.Companion()
	generator, err := ai.New(ctx, cfg.AI, companion, logger)
	if err != nil {
		logger.Fatal("failed to initialize AI generator", zap.String("provider", cfg.AI.ResolvedProvider()), zap.Error(err))
	}
	logger.Info("AI generator initialized", zap.String("provider", cfg.AI.ResolvedProvider()))

	sessionSvc := session.NewService(st, logger)
	chatOpts := []chat.Option{
		chat.WithHistoryWindow(cfg.AI.HistoryWindow),
		chat.WithReplyTimeout(cfg.AI.ReplyTimeout),
	}

	if cfg.Speech.Enabled {
		speechSvc := speech.NewService(cfg.Speech.Model(), logger)
		chatOpts = append(chatOpts, chat.WithSynthesizer(speechSvc))
		logger.Info("speech service initialized", zap.String("voice", speechSvc.VoiceFor("en")))
	} else {
		logger.Info("语音服务凭证未配置，跳过语音功能初始化")
	}

	chatSvc := chat.NewService(st, sessionSvc, generator, logger, chatOpts...)
	moodSvc := mood.NewService(st, nil)

	var jwtOpts []jwt.ParserOption
	if cfg.Auth.Issuer != "" {
		jwtOpts = append(jwtOpts, jwt.WithIssuer(cfg.Auth.Issuer))
	}

	router := handler.NewRouter(handler.Dependencies{
		Storage:  st,
		Sessions: sessionSvc,
		Chat:     chatSvc,
		Mood:     moodSvc,
		Auth:     middleware.Auth(cfg.Auth.Secret, jwtOpts...),
		Logger:   logger,
	})

	startServer(ctx, cfg.Server, router, logger)
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.Database.Driver == "memory" {
		return store.NewMemoryStore(), nil
	}

	level := gormlogger.Warn
	if cfg.Log.Level == "debug" {
		level = gormlogger.Info
	}
	gormStore, err := store.Open(store.Options{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		LogLevel:     level,
	})
	if err != nil {
		return nil, err
	}
	return gormStore, nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("MindMate backend listening", zap.String("addr", addr))
	if err := runServer(ctx, srv, serverCfg.ShutdownTimeout); err != nil {
		logger.Error("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
