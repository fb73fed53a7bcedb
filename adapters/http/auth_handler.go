package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khoahotran/stdtrack/internal/application/usecase/auth"
	"github.com/khoahotran/stdtrack/internal/application/usecase/workspace"
	"github.com/khoahotran/stdtrack/pkg/apperror"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

type AuthHandler struct {
	authUseCase *auth.AuthUseCase
	workspaces  *workspace.Registry
	logger      logger.Logger
}

func NewAuthHandler(uc *auth.AuthUseCase, workspaces *workspace.Registry, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		authUseCase: uc,
		workspaces:  workspaces,
		logger:      log,
	}
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.NewInvalidInput("invalid JSON body", err))
		return
	}

	output, err := h.authUseCase.SignUp(c.Request.Context(), auth.SignUpInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{AccessToken: output.AccessToken, User: ToUserDTO(output.User)})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.NewInvalidInput("invalid JSON body", err))
		return
	}

	output, err := h.authUseCase.Login(c.Request.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{AccessToken: output.AccessToken, User: ToUserDTO(output.User)})
}

// Logout drops the server-side workspace. Tokens are stateless and simply
// expire.
func (h *AuthHandler) Logout(c *gin.Context) {
	ownerID, ok := mustOwner(c)
	if !ok {
		return
	}
	h.workspaces.Close(ownerID)
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) Me(c *gin.Context) {
	ownerID, ok := mustOwner(c)
	if !ok {
		return
	}
	u, err := h.authUseCase.CurrentUser(c.Request.Context(), ownerID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToUserDTO(u))
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	ownerID, ok := mustOwner(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.NewInvalidInput("invalid JSON body", err))
		return
	}

	err := h.authUseCase.ChangePassword(c.Request.Context(), auth.ChangePasswordInput{
		OwnerID:         ownerID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
