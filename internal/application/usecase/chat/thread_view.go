package chat

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/khoahotran/stdtrack/internal/domain/chat"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

// ThreadView mirrors one thread at a time. Opening a key releases the
// previous subscription first, and each snapshot replaces the local list.
type ThreadView struct {
	repo     chat.Repository
	logger   logger.Logger
	onChange func(key chat.ThreadKey, msgs []chat.Message)

	mu    sync.Mutex
	key   chat.ThreadKey
	msgs  []chat.Message
	unsub chat.Unsubscribe
	gen   uint64
}

// NewThreadView calls onChange, if set, with every accepted snapshot.
func NewThreadView(repo chat.Repository, log logger.Logger, onChange func(chat.ThreadKey, []chat.Message)) *ThreadView {
	return &ThreadView{repo: repo, logger: log, onChange: onChange}
}

func (v *ThreadView) Open(ctx context.Context, key chat.ThreadKey) error {
	v.mu.Lock()
	prev := v.unsub
	v.unsub = nil
	v.gen++
	gen := v.gen
	v.key = key
	v.msgs = nil
	v.mu.Unlock()

	if prev != nil {
		prev()
	}

	unsub, err := v.repo.Subscribe(ctx, key, func(msgs []chat.Message) {
		v.apply(gen, key, msgs)
	})
	if err != nil {
		v.logger.Error("Failed to subscribe to thread", err, zap.String("thread", key.String()))
		return err
	}

	v.mu.Lock()
	if v.gen != gen {
		v.mu.Unlock()
		unsub()
		return nil
	}
	v.unsub = unsub
	v.mu.Unlock()
	return nil
}

func (v *ThreadView) apply(gen uint64, key chat.ThreadKey, msgs []chat.Message) {
	sorted := make([]chat.Message, len(msgs))
	copy(sorted, msgs)
	chat.SortByTimestamp(sorted)

	v.mu.Lock()
	if v.gen != gen {
		v.mu.Unlock()
		return
	}
	v.msgs = sorted
	v.mu.Unlock()

	if v.onChange != nil {
		v.onChange(key, sorted)
	}
}

func (v *ThreadView) Close() {
	v.mu.Lock()
	prev := v.unsub
	v.unsub = nil
	v.gen++
	v.msgs = nil
	v.key = chat.ThreadKey{}
	v.mu.Unlock()

	if prev != nil {
		prev()
	}
}

func (v *ThreadView) Key() chat.ThreadKey {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.key
}

func (v *ThreadView) Messages() []chat.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]chat.Message, len(v.msgs))
	copy(out, v.msgs)
	return out
}
