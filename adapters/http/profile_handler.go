package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khoahotran/stdtrack/internal/application/usecase/workspace"
	"github.com/khoahotran/stdtrack/internal/domain/profile"
	"github.com/khoahotran/stdtrack/pkg/apperror"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

type ProfileHandler struct {
	workspaces *workspace.Registry
	logger     logger.Logger
}

func NewProfileHandler(workspaces *workspace.Registry, log logger.Logger) *ProfileHandler {
	return &ProfileHandler{
		workspaces: workspaces,
		logger:     log,
	}
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	ws, ok := openWorkspace(c, h.workspaces)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ws.Profile())
}

// UpdateProfile merges the body into the stored profile. Absent keys keep
// their value; keys sent empty or null clear it.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	ws, ok := openWorkspace(c, h.workspaces)
	if !ok {
		return
	}

	var req profile.Patch
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.NewInvalidInput("invalid JSON body for profile update", err))
		return
	}

	merged, err := ws.UpdateProfile(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, merged)
}

func openWorkspace(c *gin.Context, registry *workspace.Registry) (*workspace.Workspace, bool) {
	ownerID, ok := mustOwner(c)
	if !ok {
		return nil, false
	}
	ws, err := registry.Open(c.Request.Context(), ownerID)
	if err != nil {
		_ = c.Error(err)
		return nil, false
	}
	return ws, true
}
