package service

import (
	"context"
	"time"
)

// InflightGuard admits one holder per key at a time.
type InflightGuard interface {
	// TryAcquire returns ok=false when key is already held. ttl bounds how
	// long a crashed holder can block the key.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}
