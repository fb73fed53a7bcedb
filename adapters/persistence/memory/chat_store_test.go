package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/stdtrack/internal/domain/chat"
	"github.com/khoahotran/stdtrack/pkg/apperror"
)

func appendText(t *testing.T, s *ChatStore, key chat.ThreadKey, role chat.Role, text string, ts int64) *chat.Message {
	t.Helper()
	m, err := s.Append(context.Background(), key, chat.Message{Role: role, Text: text, Timestamp: ts})
	require.NoError(t, err)
	return m
}

func TestChatStore_AppendAssignsIDs(t *testing.T) {
	s := NewChatStore()
	key := chat.NewThreadKey(uuid.New(), "r1", "")

	a := appendText(t, s, key, chat.RoleUser, "hi", 1)
	b := appendText(t, s, key, chat.RoleAssistant, "hello", 2)

	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.NotEqual(t, a.ID, b.ID)

	msgs, err := s.List(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Text)
}

func TestChatStore_AppendRejectsIncompleteKey(t *testing.T) {
	s := NewChatStore()
	_, err := s.Append(context.Background(), chat.NewThreadKey(uuid.Nil, "r1", ""), chat.Message{Text: "x"})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestChatStore_ClearLeavesSiblings(t *testing.T) {
	s := NewChatStore()
	owner := uuid.New()
	roadmapKey := chat.NewThreadKey(owner, "r1", "")
	itemKey := chat.NewThreadKey(owner, "r1", "Go Basics")
	otherUser := chat.NewThreadKey(uuid.New(), "r1", "")

	appendText(t, s, roadmapKey, chat.RoleUser, "a", 1)
	appendText(t, s, itemKey, chat.RoleUser, "b", 2)
	appendText(t, s, otherUser, chat.RoleUser, "c", 3)

	require.NoError(t, s.Clear(context.Background(), itemKey))

	cleared, _ := s.List(context.Background(), itemKey)
	assert.Empty(t, cleared)
	sibling, _ := s.List(context.Background(), roadmapKey)
	assert.Len(t, sibling, 1)
	other, _ := s.List(context.Background(), otherUser)
	assert.Len(t, other, 1)
}

func TestChatStore_DeleteRemovesExactlyOne(t *testing.T) {
	s := NewChatStore()
	key := chat.NewThreadKey(uuid.New(), "r1", "MIT")
	first := appendText(t, s, key, chat.RoleUser, "q1", 1)
	second := appendText(t, s, key, chat.RoleAssistant, "a1", 2)
	third := appendText(t, s, key, chat.RoleUser, "q2", 3)

	require.NoError(t, s.Delete(context.Background(), key, second.ID))

	msgs, _ := s.List(context.Background(), key)
	require.Len(t, msgs, 2)
	assert.Equal(t, first.ID, msgs[0].ID)
	assert.Equal(t, third.ID, msgs[1].ID)

	err := s.Delete(context.Background(), key, second.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestChatStore_ClearResult(t *testing.T) {
	s := NewChatStore()
	owner := uuid.New()
	appendText(t, s, chat.NewThreadKey(owner, "r1", ""), chat.RoleUser, "a", 1)
	appendText(t, s, chat.NewThreadKey(owner, "r1", "Harvard"), chat.RoleUser, "b", 2)
	keep := chat.NewThreadKey(owner, "r2", "")
	appendText(t, s, keep, chat.RoleUser, "c", 3)

	ids, err := s.ClearResult(context.Background(), owner, "r1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"r1", "r1_Harvard"}, ids)

	kept, _ := s.List(context.Background(), keep)
	assert.Len(t, kept, 1)
}

func TestChatStore_SubscribeDeliversSnapshots(t *testing.T) {
	s := NewChatStore()
	key := chat.NewThreadKey(uuid.New(), "r1", "")
	appendText(t, s, key, chat.RoleUser, "before", 1)

	var mu sync.Mutex
	var sizes []int
	unsub, err := s.Subscribe(context.Background(), key, func(msgs []chat.Message) {
		mu.Lock()
		sizes = append(sizes, len(msgs))
		mu.Unlock()
	})
	require.NoError(t, err)

	m := appendText(t, s, key, chat.RoleAssistant, "after", 2)
	require.NoError(t, s.Delete(context.Background(), key, m.ID))

	unsub()
	unsub()
	appendText(t, s, key, chat.RoleUser, "ignored", 3)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 1}, sizes)
}

func TestChatStore_SubscribeEndsWithContext(t *testing.T) {
	s := NewChatStore()
	key := chat.NewThreadKey(uuid.New(), "r1", "")
	ctx, cancel := context.WithCancel(context.Background())

	_, err := s.Subscribe(ctx, key, func([]chat.Message) {})
	require.NoError(t, err)
	cancel()

	assert.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.subs) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestInflightGuard(t *testing.T) {
	g := NewInflightGuard()
	now := time.Unix(1000, 0)
	g.now = func() time.Time { return now }

	release, ok, err := g.TryAcquire(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, _ = g.TryAcquire(context.Background(), "k", time.Minute)
	assert.False(t, ok)

	release()
	_, ok, _ = g.TryAcquire(context.Background(), "k", time.Minute)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = g.TryAcquire(context.Background(), "k", time.Minute)
	assert.True(t, ok, "expired holder must not block")
}

func TestChatStore_SubscribeDeliversInOrderUnderConcurrentWrites(t *testing.T) {
	s := NewChatStore()
	key := chat.NewThreadKey(uuid.New(), "r1", "")

	var mu sync.Mutex
	var sizes []int
	unsub, err := s.Subscribe(context.Background(), key, func(msgs []chat.Message) {
		mu.Lock()
		sizes = append(sizes, len(msgs))
		mu.Unlock()
	})
	require.NoError(t, err)
	defer unsub()

	const writers, perWriter = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := s.Append(context.Background(), key, chat.Message{Role: chat.RoleUser, Text: "m", Timestamp: int64(w*perWriter + i)})
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, sizes)
	for i := 1; i < len(sizes); i++ {
		assert.GreaterOrEqual(t, sizes[i], sizes[i-1], "snapshot %d went backwards", i)
	}
	assert.Equal(t, writers*perWriter, sizes[len(sizes)-1])
}
