package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

var (
	ErrMessageNotFound = errors.New("chat message not found")
	ErrInvalidKey      = errors.New("invalid thread key")
)

// ThreadKey addresses one conversation. A thread is not stored on its own:
// it is the set of messages sharing a key.
//
// Item is the display label of the selected recommendation, so two items
// with the same name or title share one thread.
type ThreadKey struct {
	OwnerID  uuid.UUID
	ResultID string
	Item     string
}

func NewThreadKey(ownerID uuid.UUID, resultID, item string) ThreadKey {
	return ThreadKey{
		OwnerID:  ownerID,
		ResultID: strings.TrimSpace(resultID),
		Item:     strings.TrimSpace(item),
	}
}

// ID is the per-user thread identifier: the result id for a roadmap-level
// thread, {resultID}_{item} otherwise.
func (k ThreadKey) ID() string {
	if k.Item == "" {
		return k.ResultID
	}
	return k.ResultID + "_" + k.Item
}

func (k ThreadKey) IsRoadmapLevel() bool { return k.Item == "" }

// String is unique across users.
func (k ThreadKey) String() string {
	return k.OwnerID.String() + "/" + k.ID()
}

func (k ThreadKey) Validate() error {
	if k.OwnerID == uuid.Nil || k.ResultID == "" {
		return ErrInvalidKey
	}
	return nil
}

type Message struct {
	ID        uuid.UUID `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp int64     `json:"timestamp"`
}

func NewMessage(role Role, text string, at time.Time) Message {
	return Message{Role: role, Text: text, Timestamp: at.UnixMilli()}
}

// SortByTimestamp orders messages oldest first; ties keep id order so the
// result is stable across snapshots.
func SortByTimestamp(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].Timestamp != msgs[j].Timestamp {
			return msgs[i].Timestamp < msgs[j].Timestamp
		}
		return msgs[i].ID.String() < msgs[j].ID.String()
	})
}

// SnapshotFunc receives the full message list of a thread. Order is not
// guaranteed.
type SnapshotFunc func(msgs []Message)

// Unsubscribe releases a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// Store is the persistence half of a thread store.
type Store interface {
	// Append assigns the message id and returns the stored message.
	Append(ctx context.Context, key ThreadKey, msg Message) (*Message, error)
	Delete(ctx context.Context, key ThreadKey, messageID uuid.UUID) error
	Clear(ctx context.Context, key ThreadKey) error
	// ClearResult removes every thread of a roadmap, item threads included,
	// and returns the ids of the threads it emptied.
	ClearResult(ctx context.Context, ownerID uuid.UUID, resultID string) ([]string, error)
	List(ctx context.Context, key ThreadKey) ([]Message, error)
}

// Repository is a Store with live push of thread snapshots.
type Repository interface {
	Store
	// Subscribe calls onSnapshot once with the current list and again after
	// every change to the thread until the returned Unsubscribe is called
	// or ctx ends.
	Subscribe(ctx context.Context, key ThreadKey, onSnapshot SnapshotFunc) (Unsubscribe, error)
}
