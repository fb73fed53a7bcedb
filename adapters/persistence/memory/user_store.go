package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/khoahotran/stdtrack/internal/domain/user"
)

type UserStore struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]user.User
	byEmail map[string]uuid.UUID
}

var _ user.Repository = (*UserStore)(nil)

func NewUserStore() *UserStore {
	return &UserStore{byID: make(map[uuid.UUID]user.User), byEmail: make(map[string]uuid.UUID)}
}

func (s *UserStore) Create(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, taken := s.byEmail[email]; taken {
		return user.ErrEmailTaken
	}
	stored := *u
	stored.Email = email
	s.byID[u.ID] = stored
	s.byEmail[email] = u.ID
	return nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	u := s.byID[id]
	return &u, nil
}

func (s *UserStore) FindByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return &u, nil
}

func (s *UserStore) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	return s.update(id, func(u *user.User) { u.PasswordHash = passwordHash })
}

func (s *UserStore) UpdateDisplayName(_ context.Context, id uuid.UUID, name string) error {
	return s.update(id, func(u *user.User) { u.DisplayName = name })
}

func (s *UserStore) update(id uuid.UUID, fn func(u *user.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return user.ErrUserNotFound
	}
	fn(&u)
	s.byID[id] = u
	return nil
}
