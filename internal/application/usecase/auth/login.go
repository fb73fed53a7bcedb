package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/khoahotran/stdtrack/internal/domain/user"
	"github.com/khoahotran/stdtrack/pkg/apperror"
	"github.com/khoahotran/stdtrack/pkg/auth"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

const MinPasswordLength = 6

var (
	ErrInvalidCredentials = apperror.NewUnauthorized("Email or password is incorrect", nil)
)

var tracer = otel.Tracer("auth_usecase")

// AuthUseCase issues tokens for password accounts.
type AuthUseCase struct {
	userRepo user.Repository
	jwtSvc   *auth.JWTService
	logger   logger.Logger
}

func NewAuthUseCase(repo user.Repository, jwtSvc *auth.JWTService, log logger.Logger) *AuthUseCase {
	return &AuthUseCase{
		userRepo: repo,
		jwtSvc:   jwtSvc,
		logger:   log,
	}
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginOutput struct {
	AccessToken string
	User        *user.User
}

func (uc *AuthUseCase) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	u, err := uc.userRepo.FindByEmail(ctx, strings.TrimSpace(input.Email))
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.CheckPasswordHash(input.Password, u.PasswordHash) {
		span.RecordError(ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	return uc.issue(ctx, u)
}

type SignUpInput struct {
	Email       string
	Password    string
	DisplayName string
}

func (uc *AuthUseCase) SignUp(ctx context.Context, input SignUpInput) (*LoginOutput, error) {
	ctx, span := tracer.Start(ctx, "SignUp")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.NewInvalidInput("email address is badly formatted", err)
	}
	if len(input.Password) < MinPasswordLength {
		return nil, apperror.NewInvalidInput("password should be at least 6 characters", nil)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, apperror.NewInternal("failed to hash password", err)
	}
	u := &user.User{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  strings.TrimSpace(input.DisplayName),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := uc.userRepo.Create(ctx, u); err != nil {
		span.RecordError(err)
		if errors.Is(err, user.ErrEmailTaken) {
			return nil, apperror.NewConflict("user", "email", email)
		}
		return nil, err
	}
	uc.logger.Info("User signed up", zap.String("user_id", u.ID.String()))
	return uc.issue(ctx, u)
}

type ChangePasswordInput struct {
	OwnerID         uuid.UUID
	CurrentPassword string
	NewPassword     string
}

// ChangePassword re-authenticates with the current password first.
func (uc *AuthUseCase) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	ctx, span := tracer.Start(ctx, "ChangePassword")
	defer span.End()

	if len(input.NewPassword) < MinPasswordLength {
		return apperror.NewInvalidInput("password should be at least 6 characters", nil)
	}
	u, err := uc.userRepo.FindByID(ctx, input.OwnerID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !auth.CheckPasswordHash(input.CurrentPassword, u.PasswordHash) {
		return apperror.NewUnauthorized("current password is incorrect", nil)
	}

	hash, err := auth.HashPassword(input.NewPassword)
	if err != nil {
		return apperror.NewInternal("failed to hash password", err)
	}
	if err := uc.userRepo.UpdatePassword(ctx, u.ID, hash); err != nil {
		span.RecordError(err)
		return err
	}
	uc.logger.Info("Password changed", zap.String("user_id", u.ID.String()))
	return nil
}

func (uc *AuthUseCase) CurrentUser(ctx context.Context, ownerID uuid.UUID) (*user.User, error) {
	u, err := uc.userRepo.FindByID(ctx, ownerID)
	if errors.Is(err, user.ErrUserNotFound) {
		return nil, apperror.NewUnauthorized("account no longer exists", err)
	}
	return u, err
}

func (uc *AuthUseCase) issue(ctx context.Context, u *user.User) (*LoginOutput, error) {
	token, err := uc.jwtSvc.GenerateToken(u.ID, u.Email)
	if err != nil {
		uc.logger.Error("Failed to generate token", err, zap.String("user_id", u.ID.String()))
		return nil, apperror.NewInternal("failed to generate token", err)
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("user_id", u.ID.String()))
	return &LoginOutput{AccessToken: token, User: u}, nil
}
