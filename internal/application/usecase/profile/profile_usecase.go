package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/khoahotran/stdtrack/internal/domain/profile"
	"github.com/khoahotran/stdtrack/pkg/apperror"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

var tracer = otel.Tracer("profile_usecase")

type ProfileUseCase struct {
	profileRepo profile.Repository
	logger      logger.Logger
}

func NewProfileUseCase(repo profile.Repository, log logger.Logger) *ProfileUseCase {
	return &ProfileUseCase{
		profileRepo: repo,
		logger:      log,
	}
}

type GetProfileInput struct {
	OwnerID uuid.UUID
}

type GetProfileOutput struct {
	Profile *profile.UserProfile
}

// ExecuteGetProfile returns an empty profile for a user who never saved one.
func (uc *ProfileUseCase) ExecuteGetProfile(ctx context.Context, input GetProfileInput) (*GetProfileOutput, error) {
	ctx, span := tracer.Start(ctx, "GetProfile")
	defer span.End()

	p, err := uc.profileRepo.GetByUserID(ctx, input.OwnerID)
	if errors.Is(err, profile.ErrProfileNotFound) {
		return &GetProfileOutput{Profile: &profile.UserProfile{}}, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("get profile failed: %w", err)
	}
	return &GetProfileOutput{Profile: p}, nil
}

type UpdateProfileInput struct {
	OwnerID uuid.UUID
	Patch   profile.Patch
}

type UpdateProfileOutput struct {
	Profile *profile.UserProfile
}

func (uc *ProfileUseCase) ExecuteUpdateProfile(ctx context.Context, input UpdateProfileInput) (*UpdateProfileOutput, error) {
	ctx, span := tracer.Start(ctx, "UpdateProfile")
	defer span.End()

	patch := input.Patch.Normalize()
	if patch.Values.Age < 0 {
		return nil, apperror.NewInvalidInput("age must not be negative", nil)
	}

	merged, err := uc.profileRepo.Merge(ctx, input.OwnerID, patch)
	if err != nil {
		uc.logger.Error("Failed to merge profile", err, zap.String("owner_id", input.OwnerID.String()))
		span.RecordError(err)
		return nil, fmt.Errorf("update profile failed: %w", err)
	}
	return &UpdateProfileOutput{Profile: merged}, nil
}
