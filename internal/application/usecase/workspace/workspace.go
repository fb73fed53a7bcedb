// Package workspace keeps, per signed-in user, the roadmap collection and
// the current selection the client is working with.
package workspace

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/khoahotran/stdtrack/internal/application/service"
	profileUC "github.com/khoahotran/stdtrack/internal/application/usecase/profile"
	roadmapUC "github.com/khoahotran/stdtrack/internal/application/usecase/roadmap"
	"github.com/khoahotran/stdtrack/internal/domain/chat"
	"github.com/khoahotran/stdtrack/internal/domain/profile"
	"github.com/khoahotran/stdtrack/internal/domain/roadmap"
	"github.com/khoahotran/stdtrack/pkg/apperror"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

var tracer = otel.Tracer("workspace_usecase")

type Generator interface {
	Execute(ctx context.Context, input roadmapUC.GenerateInput) (*roadmap.AIResult, error)
}

type deps struct {
	roadmaps  roadmap.Repository
	threads   chat.Store
	profiles  *profileUC.ProfileUseCase
	generator Generator
	events    service.EventPublisher
	logger    logger.Logger
	now       func() time.Time
}

// Registry hands out one Workspace per user, loading it on first use.
type Registry struct {
	deps

	mu     sync.Mutex
	spaces map[uuid.UUID]*Workspace
}

func NewRegistry(
	roadmaps roadmap.Repository,
	threads chat.Store,
	profiles *profileUC.ProfileUseCase,
	generator Generator,
	events service.EventPublisher,
	log logger.Logger,
) *Registry {
	return &Registry{
		deps: deps{
			roadmaps:  roadmaps,
			threads:   threads,
			profiles:  profiles,
			generator: generator,
			events:    events,
			logger:    log,
			now:       time.Now,
		},
		spaces: make(map[uuid.UUID]*Workspace),
	}
}

func (r *Registry) Open(ctx context.Context, ownerID uuid.UUID) (*Workspace, error) {
	if ownerID == uuid.Nil {
		return nil, apperror.NewUnauthorized("missing owner", nil)
	}

	r.mu.Lock()
	ws, ok := r.spaces[ownerID]
	r.mu.Unlock()
	if ok {
		return ws, nil
	}

	ctx, span := tracer.Start(ctx, "OpenWorkspace")
	defer span.End()

	var (
		results []*roadmap.AIResult
		p       *profileUC.GetProfileOutput
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		results, err = r.roadmaps.ListByOwner(gctx, ownerID)
		return err
	})
	g.Go(func() error {
		var err error
		p, err = r.profiles.ExecuteGetProfile(gctx, profileUC.GetProfileInput{OwnerID: ownerID})
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	loaded := &Workspace{deps: &r.deps, owner: ownerID, results: results, profile: *p.Profile}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.spaces[ownerID]; ok {
		return existing, nil
	}
	r.spaces[ownerID] = loaded
	r.logger.Info("Workspace loaded", zap.String("owner_id", ownerID.String()), zap.Int("roadmaps", len(results)))
	return loaded, nil
}

// Close forgets the user's workspace, as on sign-out.
func (r *Registry) Close(ownerID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.spaces, ownerID)
}

type Workspace struct {
	*deps
	owner uuid.UUID

	mu      sync.Mutex
	results []*roadmap.AIResult
	current string
	profile profile.UserProfile
}

// ValidateForm applies the per-mode required fields of the normalized
// request form.
func ValidateForm(mode roadmap.Mode, form profile.UserProfile) error {
	if !mode.Valid() {
		return apperror.NewInvalidInput("unknown roadmap mode", roadmap.ErrInvalidMode)
	}
	switch mode {
	case roadmap.ModeSkill:
		if len(form.Interests) == 0 {
			return apperror.NewInvalidInput("Add the skill you want to learn!", nil)
		}
	case roadmap.ModeJob:
		if strings.TrimSpace(form.TargetJob) == "" {
			return apperror.NewInvalidInput("Please specify the target job!", nil)
		}
	}
	return nil
}

// Submit merges the form into the stored profile, then generates from the
// form alone so that stale profile fields never steer the roadmap. The new
// roadmap is persisted and becomes the current selection.
func (w *Workspace) Submit(ctx context.Context, mode roadmap.Mode, form profile.Patch) (*roadmap.AIResult, error) {
	ctx, span := tracer.Start(ctx, "Submit")
	defer span.End()

	form = form.Normalize()
	if err := ValidateForm(mode, form.Values); err != nil {
		return nil, err
	}

	merged, err := w.profiles.ExecuteUpdateProfile(ctx, profileUC.UpdateProfileInput{OwnerID: w.owner, Patch: form})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	w.mu.Lock()
	w.profile = *merged.Profile
	w.mu.Unlock()

	res, err := w.generator.Execute(ctx, roadmapUC.GenerateInput{OwnerID: w.owner, Mode: mode, Profile: form.Values})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := w.roadmaps.Save(ctx, res); err != nil {
		w.logger.Error("Failed to save roadmap", err, zap.String("roadmap_id", res.ID))
		span.RecordError(err)
		return nil, err
	}

	w.mu.Lock()
	w.results = append([]*roadmap.AIResult{res}, w.results...)
	w.current = res.ID
	w.mu.Unlock()

	w.publish(service.RoadmapEvent{EventType: service.RoadmapCreated, RoadmapID: res.ID, OwnerID: w.owner, Mode: string(mode)})
	return res, nil
}

func (w *Workspace) Select(id string) (*roadmap.AIResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	res := w.findLocked(id)
	if res == nil {
		return nil, apperror.NewNotFound("roadmap", id)
	}
	w.current = id
	return res, nil
}

func (w *Workspace) Current() (*roadmap.AIResult, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	res := w.findLocked(w.current)
	return res, res != nil
}

func (w *Workspace) Get(id string) (*roadmap.AIResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	res := w.findLocked(id)
	if res == nil {
		return nil, apperror.NewNotFound("roadmap", id)
	}
	return res, nil
}

// List returns the collection newest first.
func (w *Workspace) List() []*roadmap.AIResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*roadmap.AIResult(nil), w.results...)
}

func (w *Workspace) Profile() profile.UserProfile {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.profile
}

func (w *Workspace) UpdateProfile(ctx context.Context, patch profile.Patch) (*profile.UserProfile, error) {
	out, err := w.profiles.ExecuteUpdateProfile(ctx, profileUC.UpdateProfileInput{OwnerID: w.owner, Patch: patch})
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.profile = *out.Profile
	w.mu.Unlock()
	return out.Profile, nil
}

// Delete removes the roadmap and its chat threads. The deleted event lets
// other processes drop what they hold for it.
func (w *Workspace) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Delete")
	defer span.End()

	if err := w.roadmaps.Delete(ctx, id, w.owner); err != nil {
		span.RecordError(err)
		return err
	}

	w.mu.Lock()
	kept := w.results[:0:0]
	for _, r := range w.results {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	w.results = kept
	if w.current == id {
		w.current = ""
	}
	w.mu.Unlock()

	// The event still goes out when clearing fails; the worker clears again.
	_, err := w.threads.ClearResult(ctx, w.owner, id)
	w.publish(service.RoadmapEvent{EventType: service.RoadmapDeleted, RoadmapID: id, OwnerID: w.owner})
	if err != nil {
		w.logger.Error("Failed to clear roadmap threads", err, zap.String("roadmap_id", id))
		span.RecordError(err)
		return err
	}
	return nil
}

func (w *Workspace) Rename(ctx context.Context, id, title string) (*roadmap.AIResult, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.NewInvalidInput("title must not be empty", nil)
	}
	if err := w.roadmaps.Rename(ctx, id, w.owner, title); err != nil {
		return nil, err
	}

	res, err := w.refresh(ctx, id, func(r *roadmap.AIResult) { r.Title = title })
	if err != nil {
		return nil, err
	}
	w.publish(service.RoadmapEvent{EventType: service.RoadmapRenamed, RoadmapID: id, OwnerID: w.owner})
	return res, nil
}

func (w *Workspace) AppendLog(ctx context.Context, id, update string) (*roadmap.DailyLog, error) {
	update = strings.TrimSpace(update)
	if update == "" {
		return nil, apperror.NewInvalidInput("log update must not be empty", nil)
	}
	entry := roadmap.DailyLog{Date: w.now().UnixMilli(), Update: update}
	if err := w.roadmaps.AppendLog(ctx, id, w.owner, entry); err != nil {
		return nil, err
	}
	if _, err := w.refresh(ctx, id, func(r *roadmap.AIResult) { r.Logs = append(r.Logs, entry) }); err != nil {
		return nil, err
	}
	return &entry, nil
}

// refresh applies fn to the cached copy, or reloads the roadmap when the
// cache does not hold it.
func (w *Workspace) refresh(ctx context.Context, id string, fn func(r *roadmap.AIResult)) (*roadmap.AIResult, error) {
	w.mu.Lock()
	if res := w.findLocked(id); res != nil {
		updated := *res
		fn(&updated)
		w.replaceLocked(&updated)
		w.mu.Unlock()
		return &updated, nil
	}
	w.mu.Unlock()

	res, err := w.roadmaps.FindByID(ctx, id, w.owner)
	if err != nil {
		if errors.Is(err, roadmap.ErrRoadmapNotFound) {
			return nil, apperror.NewNotFound("roadmap", id)
		}
		return nil, err
	}
	w.mu.Lock()
	w.results = append([]*roadmap.AIResult{res}, w.results...)
	w.mu.Unlock()
	return res, nil
}

func (w *Workspace) findLocked(id string) *roadmap.AIResult {
	if id == "" {
		return nil
	}
	for _, r := range w.results {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (w *Workspace) replaceLocked(res *roadmap.AIResult) {
	for i, r := range w.results {
		if r.ID == res.ID {
			w.results[i] = res
			return
		}
	}
}

func (w *Workspace) publish(e service.RoadmapEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := w.events.PublishRoadmapEvent(ctx, e); err != nil {
			w.logger.Error("Sent event to Kafka failed", err,
				zap.String("event_type", string(e.EventType)), zap.String("roadmap_id", e.RoadmapID))
		}
	}()
}
