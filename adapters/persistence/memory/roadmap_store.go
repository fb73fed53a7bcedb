package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/khoahotran/stdtrack/internal/domain/roadmap"
	"github.com/khoahotran/stdtrack/pkg/apperror"
)

// RoadmapStore keeps deep copies so callers never share state with it.
type RoadmapStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

var _ roadmap.Repository = (*RoadmapStore)(nil)

func NewRoadmapStore() *RoadmapStore {
	return &RoadmapStore{data: make(map[string][]byte)}
}

func roadmapKey(id string, ownerID uuid.UUID) string {
	return ownerID.String() + "/" + id
}

func (s *RoadmapStore) Save(_ context.Context, r *roadmap.AIResult) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return apperror.NewInternal("failed to marshal roadmap", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := roadmapKey(r.ID, r.OwnerID)
	if _, exists := s.data[k]; exists {
		return apperror.NewConflict("roadmap", "id", r.ID)
	}
	s.data[k] = raw
	return nil
}

func (s *RoadmapStore) FindByID(_ context.Context, id string, ownerID uuid.UUID) (*roadmap.AIResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(id, ownerID)
}

func (s *RoadmapStore) load(id string, ownerID uuid.UUID) (*roadmap.AIResult, error) {
	raw, ok := s.data[roadmapKey(id, ownerID)]
	if !ok {
		return nil, roadmap.ErrRoadmapNotFound
	}
	r := &roadmap.AIResult{}
	if err := json.Unmarshal(raw, r); err != nil {
		return nil, apperror.NewInternal("corrupt roadmap record", err)
	}
	r.OwnerID = ownerID
	return r, nil
}

func (s *RoadmapStore) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*roadmap.AIResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := ownerID.String() + "/"
	out := make([]*roadmap.AIResult, 0)
	for k := range s.data {
		if len(k) <= len(prefix) || k[:len(prefix)] != prefix {
			continue
		}
		r, err := s.load(k[len(prefix):], ownerID)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

func (s *RoadmapStore) Rename(_ context.Context, id string, ownerID uuid.UUID, title string) error {
	return s.update(id, ownerID, func(r *roadmap.AIResult) { r.Title = title })
}

func (s *RoadmapStore) AppendLog(_ context.Context, id string, ownerID uuid.UUID, log roadmap.DailyLog) error {
	return s.update(id, ownerID, func(r *roadmap.AIResult) { r.Logs = append(r.Logs, log) })
}

func (s *RoadmapStore) Delete(_ context.Context, id string, ownerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := roadmapKey(id, ownerID)
	if _, ok := s.data[k]; !ok {
		return apperror.NewNotFound("roadmap", id)
	}
	delete(s.data, k)
	return nil
}

func (s *RoadmapStore) update(id string, ownerID uuid.UUID, fn func(r *roadmap.AIResult)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.load(id, ownerID)
	if err != nil {
		return apperror.NewNotFound("roadmap", id)
	}
	fn(r)
	raw, err := json.Marshal(r)
	if err != nil {
		return apperror.NewInternal("failed to marshal roadmap", err)
	}
	s.data[roadmapKey(id, ownerID)] = raw
	return nil
}
