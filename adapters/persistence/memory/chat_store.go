// Package memory holds process-local implementations of the domain stores.
// They back the tests and single-node development runs.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/khoahotran/stdtrack/internal/domain/chat"
	"github.com/khoahotran/stdtrack/pkg/apperror"
)

// subscriber serializes its own deliveries. Each delivery re-reads the
// thread, so a subscriber never sees an older list after a newer one.
type subscriber struct {
	id   uint64
	fn   chat.SnapshotFunc
	mu   sync.Mutex
	stop chan struct{}
}

// ChatStore keeps messages per thread in insertion order and pushes a full
// snapshot to every subscriber of a thread after each change.
type ChatStore struct {
	mu      sync.Mutex
	threads map[string][]chat.Message
	results map[string]map[string]struct{}
	subs    map[string][]*subscriber
	nextSub uint64
}

var _ chat.Repository = (*ChatStore)(nil)

func NewChatStore() *ChatStore {
	return &ChatStore{
		threads: make(map[string][]chat.Message),
		results: make(map[string]map[string]struct{}),
		subs:    make(map[string][]*subscriber),
	}
}

func resultKey(ownerID uuid.UUID, resultID string) string {
	return ownerID.String() + "/" + resultID
}

func (s *ChatStore) Append(_ context.Context, key chat.ThreadKey, msg chat.Message) (*chat.Message, error) {
	if err := key.Validate(); err != nil {
		return nil, apperror.NewInvalidInput("thread key requires owner and roadmap", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperror.NewInternal("failed to generate message id", err)
	}
	msg.ID = id

	s.mu.Lock()
	k := key.String()
	s.threads[k] = append(s.threads[k], msg)
	rk := resultKey(key.OwnerID, key.ResultID)
	if s.results[rk] == nil {
		s.results[rk] = make(map[string]struct{})
	}
	s.results[rk][key.ID()] = struct{}{}
	notify := s.snapshotLocked(k)
	s.mu.Unlock()

	notify()
	return &msg, nil
}

func (s *ChatStore) Delete(_ context.Context, key chat.ThreadKey, messageID uuid.UUID) error {
	s.mu.Lock()
	k := key.String()
	msgs := s.threads[k]
	idx := -1
	for i, m := range msgs {
		if m.ID == messageID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return apperror.NewNotFound("chat message", messageID.String())
	}
	s.threads[k] = append(msgs[:idx:idx], msgs[idx+1:]...)
	notify := s.snapshotLocked(k)
	s.mu.Unlock()

	notify()
	return nil
}

func (s *ChatStore) Clear(_ context.Context, key chat.ThreadKey) error {
	s.mu.Lock()
	k := key.String()
	delete(s.threads, k)
	if ids := s.results[resultKey(key.OwnerID, key.ResultID)]; ids != nil {
		delete(ids, key.ID())
	}
	notify := s.snapshotLocked(k)
	s.mu.Unlock()

	notify()
	return nil
}

func (s *ChatStore) ClearResult(_ context.Context, ownerID uuid.UUID, resultID string) ([]string, error) {
	s.mu.Lock()
	rk := resultKey(ownerID, resultID)
	cleared := make([]string, 0, len(s.results[rk]))
	var notifies []func()
	for threadID := range s.results[rk] {
		k := ownerID.String() + "/" + threadID
		if len(s.threads[k]) > 0 {
			cleared = append(cleared, threadID)
		}
		delete(s.threads, k)
		notifies = append(notifies, s.snapshotLocked(k))
	}
	delete(s.results, rk)
	s.mu.Unlock()

	for _, n := range notifies {
		n()
	}
	return cleared, nil
}

func (s *ChatStore) List(_ context.Context, key chat.ThreadKey) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMessages(s.threads[key.String()]), nil
}

func (s *ChatStore) Subscribe(ctx context.Context, key chat.ThreadKey, onSnapshot chat.SnapshotFunc) (chat.Unsubscribe, error) {
	if onSnapshot == nil {
		return nil, apperror.NewInvalidInput("snapshot callback required", nil)
	}

	stop := make(chan struct{})
	s.mu.Lock()
	k := key.String()
	s.nextSub++
	id := s.nextSub
	sub := &subscriber{id: id, fn: onSnapshot, stop: stop}
	s.subs[k] = append(s.subs[k], sub)
	s.mu.Unlock()

	s.deliver(k, sub)

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			close(stop)
			s.mu.Lock()
			defer s.mu.Unlock()
			subs := s.subs[k]
			for i, sub := range subs {
				if sub.id == id {
					s.subs[k] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
			if len(s.subs[k]) == 0 {
				delete(s.subs, k)
			}
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-stop:
		}
	}()

	return unsubscribe, nil
}

// snapshotLocked captures the subscribers of k. The returned func delivers
// outside the store lock so callbacks may read the store.
func (s *ChatStore) snapshotLocked(k string) func() {
	subs := append([]*subscriber(nil), s.subs[k]...)
	if len(subs) == 0 {
		return func() {}
	}
	return func() {
		for _, sub := range subs {
			s.deliver(k, sub)
		}
	}
}

// deliver reads the list while holding the subscriber's lock, so concurrent
// writers cannot hand it snapshots out of order. Callbacks must not write to
// the thread they observe.
func (s *ChatStore) deliver(k string, sub *subscriber) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	select {
	case <-sub.stop:
		return
	default:
	}
	s.mu.Lock()
	msgs := cloneMessages(s.threads[k])
	s.mu.Unlock()
	sub.fn(msgs)
}

func cloneMessages(msgs []chat.Message) []chat.Message {
	out := make([]chat.Message, len(msgs))
	copy(out, msgs)
	return out
}
