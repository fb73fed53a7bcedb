package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/khoahotran/stdtrack/adapters/event"
	"github.com/khoahotran/stdtrack/adapters/persistence"
	"github.com/khoahotran/stdtrack/adapters/realtime"
	"github.com/khoahotran/stdtrack/internal/application/service"
	chatUC "github.com/khoahotran/stdtrack/internal/application/usecase/chat"
	"github.com/khoahotran/stdtrack/internal/config"
	"github.com/khoahotran/stdtrack/pkg/logger"
	"github.com/khoahotran/stdtrack/pkg/tracing"
)

const consumerGroup = "roadmap-cleanup-group"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("cannot load config: " + err.Error())
	}

	log := logger.NewZapLogger(cfg.App.Env)
	defer func() { _ = log.Sync() }()
	log.Info("Starting StdTrack Worker...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.NewTracerProvider(cfg, log, "stdtrack-worker")
	if err != nil {
		log.Warn("Tracing unavailable", zap.Error(err))
	}
	if tp != nil {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

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

	if len(cfg.Kafka.Brokers) == 0 {
		log.Fatal("Kafka brokers not configured", nil)
	}

	// The server already cleared on delete. Clearing again here catches a
	// reply persisted after the delete. Going through the hub lets open
	// thread views see the emptied lists.
	threads := realtime.NewRedisHub(persistence.NewPostgresChatRepo(dbPool, log), redisClient, log)
	manageUseCase := chatUC.NewManageUseCase(threads, log)

	consumer := event.NewRoadmapConsumer(cfg, consumerGroup, log)
	defer consumer.Close()

	err = consumer.Run(ctx, func(ctx context.Context, e service.RoadmapEvent) error {
		if e.EventType != service.RoadmapDeleted {
			return nil
		}
		log.Info("Clearing threads of deleted roadmap",
			zap.String("roadmap_id", e.RoadmapID),
			zap.String("owner_id", e.OwnerID.String()))
		return manageUseCase.ClearRoadmap(ctx, e.OwnerID, e.RoadmapID)
	})
	if err != nil {
		log.Error("Worker stopped", err)
	}
	log.Info("Worker stopped")
}
