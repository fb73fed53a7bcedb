package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/khoahotran/stdtrack/internal/application/service"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

func newTestConsumer(attempts int) *RoadmapConsumer {
	return &RoadmapConsumer{logger: logger.NewNop(), attempts: attempts, backoff: time.Millisecond}
}

func TestHandleWithRetry_RecoversFromTransientFailure(t *testing.T) {
	c := newTestConsumer(3)
	calls := 0
	err := c.handleWithRetry(context.Background(), service.RoadmapEvent{RoadmapID: "r1"}, func(context.Context, service.RoadmapEvent) error {
		calls++
		if calls < 3 {
			return errors.New("redis unavailable")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestHandleWithRetry_GivesUpAfterAttempts(t *testing.T) {
	c := newTestConsumer(2)
	boom := errors.New("boom")
	calls := 0
	err := c.handleWithRetry(context.Background(), service.RoadmapEvent{}, func(context.Context, service.RoadmapEvent) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestHandleWithRetry_StopsWithContext(t *testing.T) {
	c := newTestConsumer(5)
	c.backoff = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := c.handleWithRetry(ctx, service.RoadmapEvent{}, func(context.Context, service.RoadmapEvent) error {
		calls++
		cancel()
		return errors.New("boom")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
