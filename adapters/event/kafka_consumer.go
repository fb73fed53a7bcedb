package event

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/khoahotran/stdtrack/internal/application/service"
	"github.com/khoahotran/stdtrack/internal/config"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

type RoadmapEventHandler func(ctx context.Context, e service.RoadmapEvent) error

const (
	defaultHandleAttempts = 3
	defaultHandleBackoff  = 500 * time.Millisecond
)

type RoadmapConsumer struct {
	reader   *kafka.Reader
	logger   logger.Logger
	attempts int
	backoff  time.Duration
}

func NewRoadmapConsumer(cfg config.Config, groupID string, log logger.Logger) *RoadmapConsumer {
	return &RoadmapConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    TopicRoadmapEvents,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		logger:   log.With(zap.String("topic", TopicRoadmapEvents), zap.String("group", groupID)),
		attempts: defaultHandleAttempts,
		backoff:  defaultHandleBackoff,
	}
}

// Run reads until ctx ends. Undecodable messages are committed and skipped.
// A failing handler is retried with doubling backoff; once the attempts run
// out the message is logged and committed so the partition keeps moving.
func (c *RoadmapConsumer) Run(ctx context.Context, handle RoadmapEventHandler) error {
	c.logger.Info("Worker listening")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			c.logger.Error("Failed to read message from Kafka", err)
			continue
		}

		var e service.RoadmapEvent
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			c.logger.Warn("Failed to unmarshal event. Skipping.", zap.Error(err))
			c.commit(ctx, msg)
			continue
		}

		l := c.logger.With(zap.String("event_type", string(e.EventType)), zap.String("roadmap_id", e.RoadmapID))
		if err := c.handleWithRetry(ctx, e, handle); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.Error("Failed to process event. Skipping.", err)
		}
		c.commit(ctx, msg)
	}
}

func (c *RoadmapConsumer) handleWithRetry(ctx context.Context, e service.RoadmapEvent, handle RoadmapEventHandler) error {
	wait := c.backoff
	var err error
	for attempt := 1; ; attempt++ {
		if err = handle(ctx, e); err == nil {
			return nil
		}
		if attempt >= c.attempts {
			return err
		}
		c.logger.Warn("Event handler failed. Retrying.",
			zap.Int("attempt", attempt), zap.Duration("backoff", wait), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
}

func (c *RoadmapConsumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("Failed to commit message", err)
	}
}

func (c *RoadmapConsumer) Close() error {
	return c.reader.Close()
}
