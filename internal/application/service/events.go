package service

import (
	"context"

	"github.com/google/uuid"
)

type RoadmapEventType string

const (
	RoadmapCreated RoadmapEventType = "created"
	RoadmapRenamed RoadmapEventType = "renamed"
	RoadmapDeleted RoadmapEventType = "deleted"
)

type RoadmapEvent struct {
	EventType RoadmapEventType `json:"event_type"`
	RoadmapID string           `json:"roadmap_id"`
	OwnerID   uuid.UUID        `json:"owner_id"`
	Mode      string           `json:"mode,omitempty"`
}

type EventPublisher interface {
	PublishRoadmapEvent(ctx context.Context, e RoadmapEvent) error
}
