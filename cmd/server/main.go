package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoahotran/stdtrack/adapters/event"
	httpAdapter "github.com/khoahotran/stdtrack/adapters/http"
	"github.com/khoahotran/stdtrack/adapters/llm"
	"github.com/khoahotran/stdtrack/adapters/media_storage"
	"github.com/khoahotran/stdtrack/adapters/persistence"
	"github.com/khoahotran/stdtrack/adapters/realtime"
	"github.com/khoahotran/stdtrack/internal/application/service"
	authUC "github.com/khoahotran/stdtrack/internal/application/usecase/auth"
	chatUC "github.com/khoahotran/stdtrack/internal/application/usecase/chat"
	exportUC "github.com/khoahotran/stdtrack/internal/application/usecase/export"
	profileUC "github.com/khoahotran/stdtrack/internal/application/usecase/profile"
	roadmapUC "github.com/khoahotran/stdtrack/internal/application/usecase/roadmap"
	"github.com/khoahotran/stdtrack/internal/application/usecase/workspace"
	"github.com/khoahotran/stdtrack/internal/config"
	"github.com/khoahotran/stdtrack/pkg/auth"
	"github.com/khoahotran/stdtrack/pkg/logger"
	"github.com/khoahotran/stdtrack/pkg/tracing"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("cannot load config: " + err.Error())
	}

	log := logger.NewZapLogger(cfg.App.Env)
	defer func() { _ = log.Sync() }()
	log.Info("Starting StdTrack API Server...", zap.String("env", cfg.App.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.NewTracerProvider(cfg, log, "stdtrack-api")
	if err != nil {
		log.Warn("Tracing unavailable", zap.Error(err))
	}
	if tp != nil {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	// Infrastructure
	dbPool, err := persistence.NewPostgresPool(cfg, log)
	if err != nil {
		log.Fatal("Cannot connect Postgres", err)
	}
	defer dbPool.Close()

	redisClient, err := persistence.NewRedisClient(cfg, log)
	if err != nil {
		log.Fatal("Cannot connect Redis", err)
	}
	defer redisClient.Close()

	var events service.EventPublisher = event.NopPublisher{}
	if kafkaClient, err := event.NewKafkaProducerClient(cfg, log); err != nil {
		log.Warn("Roadmap events disabled", zap.Error(err))
	} else {
		defer kafkaClient.Close()
		events = kafkaClient
	}

	generator, closeLLM := llm.NewGenerationService(ctx, cfg, log)
	defer func() { _ = closeLLM() }()

	uploader, err := media_storage.NewCloudinaryAdapter(cfg, log)
	if err != nil {
		log.Warn("Roadmap export disabled", zap.Error(err))
		uploader = nil
	}

	// Repositories
	userRepo := persistence.NewPostgresUserRepo(dbPool, log)
	profileRepo := persistence.NewPostgresProfileRepo(dbPool, log)
	roadmapRepo := persistence.NewPostgresRoadmapRepo(dbPool, log)
	chatStore := persistence.NewPostgresChatRepo(dbPool, log)
	threads := realtime.NewRedisHub(chatStore, redisClient, log)

	// Services
	jwtSvc := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenLifespan)
	guard := realtime.NewRedisInflightGuard(redisClient)

	// Use Cases
	authUseCase := authUC.NewAuthUseCase(userRepo, jwtSvc, log)
	profileUseCase := profileUC.NewProfileUseCase(profileRepo, log)
	generateUseCase := roadmapUC.NewGenerateUseCase(generator, cfg.LLM.BatchTemperature, log)
	registry := workspace.NewRegistry(roadmapRepo, threads, profileUseCase, generateUseCase, events, log)
	submitUseCase := chatUC.NewSubmitUseCase(threads, roadmapRepo, generator, guard, chatUC.SubmitConfig{
		HistoryWindow: cfg.Chat.HistoryWindow,
		InflightTTL:   cfg.Chat.InflightTTL,
		Temperature:   cfg.LLM.ChatTemperature,
	}, log)
	manageUseCase := chatUC.NewManageUseCase(threads, log)
	exportUseCase := exportUC.NewExportUseCase(roadmapRepo, threads, uploader, log)
	feedUseCase := roadmapUC.NewProgressFeedUseCase(roadmapRepo, cfg.App.PublicURL, log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpAdapter.NewRouter(httpAdapter.Handlers{
		Auth:    httpAdapter.NewAuthHandler(authUseCase, registry, log),
		Profile: httpAdapter.NewProfileHandler(registry, log),
		Roadmap: httpAdapter.NewRoadmapHandler(registry, exportUseCase, log),
		Chat:    httpAdapter.NewChatHandler(submitUseCase, manageUseCase, threads, log),
		Feed:    httpAdapter.NewFeedHandler(feedUseCase, log),
	}, jwtSvc, cfg.App.AllowOrigins, log)

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server running", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Cannot run server", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", err)
	}
}
