package chat

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khoahotran/stdtrack/internal/domain/chat"
	"github.com/khoahotran/stdtrack/pkg/apperror"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

// ManageUseCase covers the thread operations that need no generation.
type ManageUseCase struct {
	store  chat.Store
	logger logger.Logger
}

func NewManageUseCase(store chat.Store, log logger.Logger) *ManageUseCase {
	return &ManageUseCase{store: store, logger: log}
}

func (uc *ManageUseCase) List(ctx context.Context, key chat.ThreadKey) ([]chat.Message, error) {
	if err := key.Validate(); err != nil {
		return nil, apperror.NewInvalidInput("thread key requires owner and roadmap", err)
	}
	msgs, err := uc.store.List(ctx, key)
	if err != nil {
		return nil, err
	}
	chat.SortByTimestamp(msgs)
	return msgs, nil
}

func (uc *ManageUseCase) DeleteMessage(ctx context.Context, key chat.ThreadKey, messageID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "DeleteMessage")
	defer span.End()

	if err := key.Validate(); err != nil {
		return apperror.NewInvalidInput("thread key requires owner and roadmap", err)
	}
	if err := uc.store.Delete(ctx, key, messageID); err != nil {
		span.RecordError(err)
		return err
	}
	uc.logger.Info("Chat message deleted",
		zap.String("thread", key.String()), zap.String("message_id", messageID.String()))
	return nil
}

func (uc *ManageUseCase) Clear(ctx context.Context, key chat.ThreadKey) error {
	ctx, span := tracer.Start(ctx, "Clear")
	defer span.End()

	if err := key.Validate(); err != nil {
		return apperror.NewInvalidInput("thread key requires owner and roadmap", err)
	}
	if err := uc.store.Clear(ctx, key); err != nil {
		span.RecordError(err)
		return err
	}
	uc.logger.Info("Chat thread cleared", zap.String("thread", key.String()))
	return nil
}

// ClearRoadmap drops every thread of a deleted roadmap.
func (uc *ManageUseCase) ClearRoadmap(ctx context.Context, ownerID uuid.UUID, resultID string) error {
	ctx, span := tracer.Start(ctx, "ClearRoadmap")
	defer span.End()

	threads, err := uc.store.ClearResult(ctx, ownerID, resultID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	uc.logger.Info("Roadmap threads cleared",
		zap.String("owner_id", ownerID.String()),
		zap.String("roadmap_id", resultID),
		zap.Int("threads", len(threads)))
	return nil
}
