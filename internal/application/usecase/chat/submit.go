package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/stdtrack/internal/application/service"
	"github.com/khoahotran/stdtrack/internal/domain/chat"
	"github.com/khoahotran/stdtrack/internal/domain/profile"
	"github.com/khoahotran/stdtrack/internal/domain/roadmap"
	"github.com/khoahotran/stdtrack/pkg/apperror"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

// ErrRejected is returned, with no side effects, for an empty question, a
// key without owner or roadmap, or while a reply on the same thread is
// still streaming.
var ErrRejected = apperror.NewAppError(apperror.ErrConflict,
	"Submission ignored", "empty question, unknown thread or reply already in progress", nil)

const (
	DefaultHistoryWindow = 6
	DefaultInflightTTL   = 2 * time.Minute
)

var tracer = otel.Tracer("chat_usecase")

// BufferFunc receives the accumulated assistant text while a reply streams,
// and "" once the reply is persisted or abandoned.
type BufferFunc func(buffer string)

type SubmitConfig struct {
	HistoryWindow int
	InflightTTL   time.Duration
	Temperature   float32
}

type SubmitUseCase struct {
	store    chat.Store
	roadmaps roadmap.Repository
	llm      service.GenerationService
	guard    service.InflightGuard
	cfg      SubmitConfig
	logger   logger.Logger
	now      func() time.Time
}

func NewSubmitUseCase(
	store chat.Store,
	roadmaps roadmap.Repository,
	llm service.GenerationService,
	guard service.InflightGuard,
	cfg SubmitConfig,
	log logger.Logger,
) *SubmitUseCase {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}
	if cfg.InflightTTL <= 0 {
		cfg.InflightTTL = DefaultInflightTTL
	}
	return &SubmitUseCase{
		store:    store,
		roadmaps: roadmaps,
		llm:      llm,
		guard:    guard,
		cfg:      cfg,
		logger:   log,
		now:      time.Now,
	}
}

type SubmitInput struct {
	Key      chat.ThreadKey
	Question string
}

type SubmitOutput struct {
	UserMessage      *chat.Message
	AssistantMessage *chat.Message
}

func (uc *SubmitUseCase) Execute(ctx context.Context, input SubmitInput, onBuffer BufferFunc) (*SubmitOutput, error) {
	ctx, span := tracer.Start(ctx, "Submit")
	defer span.End()

	if onBuffer == nil {
		onBuffer = func(string) {}
	}
	question := strings.TrimSpace(input.Question)
	key := input.Key
	if question == "" || key.Validate() != nil {
		return nil, ErrRejected
	}
	span.SetAttributes(attribute.String("thread", key.String()))
	l := uc.logger.With(zap.String("thread", key.String()))

	release, ok, err := uc.guard.TryAcquire(ctx, key.String(), uc.cfg.InflightTTL)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.NewInternal("failed to check in-flight submission", err)
	}
	if !ok {
		l.Info("Submission ignored, reply already streaming")
		return nil, ErrRejected
	}
	defer release()

	chatCtx, err := uc.chatContext(ctx, key)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	history, err := uc.history(ctx, key)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	userMsg, err := uc.store.Append(ctx, key, chat.NewMessage(chat.RoleUser, question, uc.now()))
	if err != nil {
		l.Error("Failed to append user message", err)
		span.RecordError(err)
		return nil, err
	}

	reply, err := uc.stream(ctx, service.ChatRequest{
		Question:    question,
		History:     history,
		Context:     chatCtx,
		Temperature: uc.cfg.Temperature,
	}, onBuffer)
	if err != nil {
		onBuffer("")
		l.Warn("Chat reply failed, user message kept", zap.Error(err))
		span.RecordError(err)
		return &SubmitOutput{UserMessage: userMsg}, err
	}

	assistant := chat.NewMessage(chat.RoleAssistant, reply, uc.now())
	if assistant.Timestamp <= userMsg.Timestamp {
		assistant.Timestamp = userMsg.Timestamp + 1
	}
	// The reply is complete; persist it even if the caller has gone away.
	stored, err := uc.store.Append(context.WithoutCancel(ctx), key, assistant)
	onBuffer("")
	if err != nil {
		l.Error("Failed to append assistant message", err)
		span.RecordError(err)
		return &SubmitOutput{UserMessage: userMsg}, err
	}

	l.Info("Chat reply stored", zap.Int("length", len(reply)))
	return &SubmitOutput{UserMessage: userMsg, AssistantMessage: stored}, nil
}

func (uc *SubmitUseCase) stream(ctx context.Context, req service.ChatRequest, onBuffer BufferFunc) (string, error) {
	// Stops the producer if we return before the channel is drained.
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunks, err := uc.llm.StreamChat(streamCtx, req)
	if err != nil {
		return "", asBackendError("chat stream", err)
	}

	var buf strings.Builder
	for chunk := range chunks {
		if chunk.Err != nil {
			return "", asBackendError("chat stream", chunk.Err)
		}
		if chunk.Text == "" {
			continue
		}
		buf.WriteString(chunk.Text)
		onBuffer(buf.String())
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if buf.Len() == 0 {
		return "", apperror.NewGeneration("chat stream ended without text", nil)
	}
	return buf.String(), nil
}

func (uc *SubmitUseCase) history(ctx context.Context, key chat.ThreadKey) ([]service.HistoryTurn, error) {
	msgs, err := uc.store.List(ctx, key)
	if err != nil {
		return nil, err
	}
	chat.SortByTimestamp(msgs)
	if len(msgs) > uc.cfg.HistoryWindow {
		msgs = msgs[len(msgs)-uc.cfg.HistoryWindow:]
	}
	turns := make([]service.HistoryTurn, len(msgs))
	for i, m := range msgs {
		role := service.HistoryUser
		if m.Role == chat.RoleAssistant {
			role = service.HistoryModel
		}
		turns[i] = service.HistoryTurn{Role: role, Text: m.Text}
	}
	return turns, nil
}

func (uc *SubmitUseCase) chatContext(ctx context.Context, key chat.ThreadKey) (service.ChatContext, error) {
	res, err := uc.roadmaps.FindByID(ctx, key.ResultID, key.OwnerID)
	if err != nil {
		return service.ChatContext{}, err
	}

	detail := res.Title
	if detail == "" {
		detail = roadmap.DefaultTitleFor(res.Profile)
	}
	detail = "the roadmap " + detail
	if !key.IsRoadmapLevel() {
		item, err := res.FindItem(key.Item)
		if err != nil {
			return service.ChatContext{}, apperror.NewNotFound("roadmap item", key.Item)
		}
		detail = item.Label()
	}

	return service.ChatContext{
		SelectedDetail: detail,
		Summary:        res.Summary,
		ProfileExcerpt: profileExcerpt(res.Profile),
	}, nil
}

func profileExcerpt(p profile.UserProfile) string {
	var parts []string
	if p.Education != "" {
		parts = append(parts, "education: "+p.Education)
	}
	if p.Country != "" {
		parts = append(parts, "country: "+p.Country)
	}
	if len(p.Skills) > 0 {
		parts = append(parts, "skills: "+strings.Join(p.Skills, ", "))
	}
	if len(p.Interests) > 0 {
		parts = append(parts, "interests: "+strings.Join(p.Interests, ", "))
	}
	if p.TargetJob != "" {
		parts = append(parts, "target job: "+p.TargetJob)
	}
	return strings.Join(parts, "; ")
}

// asBackendError keeps typed errors from the adapters and wraps anything
// else as a transport failure.
func asBackendError(op string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperror.NewTransport(fmt.Sprintf("%s failed", op), err)
}
