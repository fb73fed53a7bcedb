// Package realtime adds live thread snapshots on top of a durable chat
// store using Redis pub/sub, so every API instance sees every change.
package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/khoahotran/stdtrack/internal/domain/chat"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

const channelPrefix = "chat:thread:"

type redisHub struct {
	chat.Store
	rdb    *redis.Client
	logger logger.Logger
}

// NewRedisHub wraps store. Mutations publish a change notice on the
// thread's channel; subscribers reload the list from store on each notice.
func NewRedisHub(store chat.Store, rdb *redis.Client, log logger.Logger) chat.Repository {
	return &redisHub{Store: store, rdb: rdb, logger: log.With(zap.String("component", "RedisChatHub"))}
}

func channelFor(key chat.ThreadKey) string {
	return channelPrefix + key.String()
}

func (h *redisHub) notify(ctx context.Context, key chat.ThreadKey) {
	if err := h.rdb.Publish(ctx, channelFor(key), "changed").Err(); err != nil {
		h.logger.Warn("Failed to publish thread change",
			zap.String("thread", key.String()), zap.Error(err))
	}
}

func (h *redisHub) Append(ctx context.Context, key chat.ThreadKey, msg chat.Message) (*chat.Message, error) {
	stored, err := h.Store.Append(ctx, key, msg)
	if err != nil {
		return nil, err
	}
	h.notify(ctx, key)
	return stored, nil
}

func (h *redisHub) Delete(ctx context.Context, key chat.ThreadKey, messageID uuid.UUID) error {
	if err := h.Store.Delete(ctx, key, messageID); err != nil {
		return err
	}
	h.notify(ctx, key)
	return nil
}

func (h *redisHub) Clear(ctx context.Context, key chat.ThreadKey) error {
	if err := h.Store.Clear(ctx, key); err != nil {
		return err
	}
	h.notify(ctx, key)
	return nil
}

func (h *redisHub) ClearResult(ctx context.Context, ownerID uuid.UUID, resultID string) ([]string, error) {
	threads, err := h.Store.ClearResult(ctx, ownerID, resultID)
	if err != nil {
		return nil, err
	}
	for _, threadID := range threads {
		if err := h.rdb.Publish(ctx, channelPrefix+ownerID.String()+"/"+threadID, "changed").Err(); err != nil {
			h.logger.Warn("Failed to publish thread change", zap.String("thread", threadID), zap.Error(err))
		}
	}
	return threads, nil
}

func (h *redisHub) Subscribe(ctx context.Context, key chat.ThreadKey, onSnapshot chat.SnapshotFunc) (chat.Unsubscribe, error) {
	if onSnapshot == nil {
		return nil, fmt.Errorf("onSnapshot callback required")
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := h.rdb.Subscribe(subCtx, channelFor(key))
	if _, err := sub.Receive(subCtx); err != nil {
		cancel()
		_ = sub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	// Listen before the initial load so no change between the two is lost.
	initial, err := h.Store.List(subCtx, key)
	if err != nil {
		cancel()
		_ = sub.Close()
		return nil, err
	}
	onSnapshot(initial)

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				msgs, err := h.Store.List(subCtx, key)
				if err != nil {
					if subCtx.Err() == nil {
						h.logger.Error("Failed to reload thread", err, zap.String("thread", key.String()))
					}
					continue
				}
				onSnapshot(msgs)
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}
