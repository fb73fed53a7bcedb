package memory

import (
	"context"
	"sync"
	"time"

	"github.com/khoahotran/stdtrack/internal/application/service"
)

// InflightGuard is a process-local service.InflightGuard.
type InflightGuard struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

var _ service.InflightGuard = (*InflightGuard)(nil)

func NewInflightGuard() *InflightGuard {
	return &InflightGuard{held: make(map[string]time.Time), now: time.Now}
}

func (g *InflightGuard) TryAcquire(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if exp, ok := g.held[key]; ok && (exp.IsZero() || now.Before(exp)) {
		return nil, false, nil
	}
	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	g.held[key] = exp

	var once sync.Once
	release := func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			if g.held[key] == exp {
				delete(g.held, key)
			}
		})
	}
	return release, true, nil
}
