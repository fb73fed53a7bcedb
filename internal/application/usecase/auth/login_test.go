package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/stdtrack/adapters/persistence/memory"
	"github.com/khoahotran/stdtrack/pkg/apperror"
	"github.com/khoahotran/stdtrack/pkg/auth"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

func newAuth() (*AuthUseCase, *auth.JWTService) {
	jwtSvc := auth.NewJWTService("test-secret", 0)
	return NewAuthUseCase(memory.NewUserStore(), jwtSvc, logger.NewNop()), jwtSvc
}

func TestAuth_SignUpThenLogin(t *testing.T) {
	uc, jwtSvc := newAuth()
	ctx := context.Background()

	out, err := uc.SignUp(ctx, SignUpInput{Email: " Lan@Example.com ", Password: "secret1", DisplayName: "Lan"})
	require.NoError(t, err)
	claims, err := jwtSvc.ValidateToken(out.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, out.User.ID, claims.OwnerID)
	assert.Equal(t, "lan@example.com", claims.Email)

	login, err := uc.Login(ctx, LoginInput{Email: "lan@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, out.User.ID, login.User.ID)

	_, err = uc.Login(ctx, LoginInput{Email: "lan@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	_, err = uc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestAuth_SignUpValidation(t *testing.T) {
	uc, _ := newAuth()
	ctx := context.Background()

	_, err := uc.SignUp(ctx, SignUpInput{Email: "not-an-email", Password: "secret1"})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	_, err = uc.SignUp(ctx, SignUpInput{Email: "a@b.co", Password: "123"})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = uc.SignUp(ctx, SignUpInput{Email: "a@b.co", Password: "secret1"})
	require.NoError(t, err)
	_, err = uc.SignUp(ctx, SignUpInput{Email: "A@B.co", Password: "secret1"})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestAuth_ChangePasswordRequiresCurrent(t *testing.T) {
	uc, _ := newAuth()
	ctx := context.Background()
	out, err := uc.SignUp(ctx, SignUpInput{Email: "a@b.co", Password: "secret1"})
	require.NoError(t, err)

	err = uc.ChangePassword(ctx, ChangePasswordInput{OwnerID: out.User.ID, CurrentPassword: "nope", NewPassword: "secret2"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	require.NoError(t, uc.ChangePassword(ctx, ChangePasswordInput{OwnerID: out.User.ID, CurrentPassword: "secret1", NewPassword: "secret2"}))
	_, err = uc.Login(ctx, LoginInput{Email: "a@b.co", Password: "secret2"})
	assert.NoError(t, err)
}

func TestAuth_CurrentUser(t *testing.T) {
	uc, _ := newAuth()
	_, err := uc.CurrentUser(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}
