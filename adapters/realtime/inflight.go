package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/khoahotran/stdtrack/internal/application/service"
)

const inflightPrefix = "chat:inflight:"

// releaseScript deletes the key only while it still holds our token, so a
// holder whose TTL lapsed cannot free a newer holder's claim.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisInflightGuard struct {
	rdb *redis.Client
}

func NewRedisInflightGuard(rdb *redis.Client) service.InflightGuard {
	return &redisInflightGuard{rdb: rdb}
}

func (g *redisInflightGuard) TryAcquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := g.rdb.SetNX(ctx, inflightPrefix+key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire inflight key: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, g.rdb, []string{inflightPrefix + key}, token).Err()
	}
	return release, true, nil
}
