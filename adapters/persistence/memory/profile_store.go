package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khoahotran/stdtrack/internal/domain/profile"
)

type ProfileStore struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]profile.UserProfile
}

var _ profile.Repository = (*ProfileStore)(nil)

func NewProfileStore() *ProfileStore {
	return &ProfileStore{profiles: make(map[uuid.UUID]profile.UserProfile)}
}

func (s *ProfileStore) GetByUserID(_ context.Context, ownerID uuid.UUID) (*profile.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[ownerID]
	if !ok {
		return nil, profile.ErrProfileNotFound
	}
	return &p, nil
}

func (s *ProfileStore) Merge(_ context.Context, ownerID uuid.UUID, patch profile.Patch) (*profile.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profiles[ownerID]
	patch.Apply(&p)
	p.UpdatedAt = time.Now().UTC()
	s.profiles[ownerID] = p
	return &p, nil
}
