package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/khoahotran/stdtrack/internal/application/service"
	"github.com/khoahotran/stdtrack/internal/config"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

const (
	TopicRoadmapEvents = "roadmap.events"
)

type KafkaProducerClient struct {
	RoadmapEventsWriter *kafka.Writer
	logger              logger.Logger
}

var _ service.EventPublisher = (*KafkaProducerClient)(nil)

func NewKafkaProducerClient(cfg config.Config, log logger.Logger) (*KafkaProducerClient, error) {
	brokers := cfg.Kafka.Brokers
	if len(brokers) == 0 {
		return nil, fmt.Errorf("config Kafka brokers not found")
	}

	roadmapWriter := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  TopicRoadmapEvents,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}

	log.Info("Initialize Kafka Producers successfully.", zap.Strings("brokers", brokers))

	return &KafkaProducerClient{
		RoadmapEventsWriter: roadmapWriter,
		logger:              log,
	}, nil
}

// PublishRoadmapEvent keys messages by owner so one user's events stay in
// order on a single partition.
func (c *KafkaProducerClient) PublishRoadmapEvent(ctx context.Context, e service.RoadmapEvent) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal roadmap event: %w", err)
	}
	err = c.RoadmapEventsWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.OwnerID.String()),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("write roadmap event: %w", err)
	}
	c.logger.Debug("Roadmap event published",
		zap.String("event_type", string(e.EventType)),
		zap.String("roadmap_id", e.RoadmapID))
	return nil
}

func (c *KafkaProducerClient) Close() {
	if c.RoadmapEventsWriter != nil {
		if err := c.RoadmapEventsWriter.Close(); err != nil {
			c.logger.Error("Failed to close roadmap events writer", err)
		}
	}
	c.logger.Info("Closed Kafka Producers")
}

// NopPublisher drops events; used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishRoadmapEvent(context.Context, service.RoadmapEvent) error { return nil }
