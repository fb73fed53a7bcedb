package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khoahotran/stdtrack/internal/application/usecase/export"
	"github.com/khoahotran/stdtrack/internal/application/usecase/workspace"
	"github.com/khoahotran/stdtrack/internal/domain/roadmap"
	"github.com/khoahotran/stdtrack/pkg/apperror"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

type RoadmapHandler struct {
	workspaces *workspace.Registry
	exporter   *export.ExportUseCase
	logger     logger.Logger
}

func NewRoadmapHandler(workspaces *workspace.Registry, exporter *export.ExportUseCase, log logger.Logger) *RoadmapHandler {
	return &RoadmapHandler{
		workspaces: workspaces,
		exporter:   exporter,
		logger:     log,
	}
}

func (h *RoadmapHandler) Workspace(c *gin.Context) {
	ws, ok := openWorkspace(c, h.workspaces)
	if !ok {
		return
	}
	list := ws.List()
	dto := WorkspaceDTO{Roadmaps: make([]RoadmapSummaryDTO, len(list)), Profile: ws.Profile()}
	for i, r := range list {
		dto.Roadmaps[i] = ToRoadmapSummaryDTO(r)
	}
	if cur, ok := ws.Current(); ok {
		dto.CurrentID = cur.ID
	}
	c.JSON(http.StatusOK, dto)
}

func (h *RoadmapHandler) Generate(c *gin.Context) {
	ws, ok := openWorkspace(c, h.workspaces)
	if !ok {
		return
	}
	var req GenerateRoadmapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.NewInvalidInput("invalid JSON body", err))
		return
	}
	mode, err := roadmap.ParseMode(req.Mode)
	if err != nil {
		_ = c.Error(apperror.NewInvalidInput("mode must be SKILL, UNIVERSITY, SCHOLARSHIP or JOB", err))
		return
	}

	res, err := ws.Submit(c.Request.Context(), mode, req.Profile)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *RoadmapHandler) Get(c *gin.Context) {
	ws, ok := openWorkspace(c, h.workspaces)
	if !ok {
		return
	}
	res, err := ws.Get(c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *RoadmapHandler) Select(c *gin.Context) {
	ws, ok := openWorkspace(c, h.workspaces)
	if !ok {
		return
	}
	res, err := ws.Select(c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *RoadmapHandler) Current(c *gin.Context) {
	ws, ok := openWorkspace(c, h.workspaces)
	if !ok {
		return
	}
	res, found := ws.Current()
	if !found {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *RoadmapHandler) Rename(c *gin.Context) {
	ws, ok := openWorkspace(c, h.workspaces)
	if !ok {
		return
	}
	var req RenameRoadmapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.NewInvalidInput("invalid JSON body", err))
		return
	}
	res, err := ws.Rename(c.Request.Context(), c.Param("id"), req.Title)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToRoadmapSummaryDTO(res))
}

func (h *RoadmapHandler) AppendLog(c *gin.Context) {
	ws, ok := openWorkspace(c, h.workspaces)
	if !ok {
		return
	}
	var req AppendLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.NewInvalidInput("invalid JSON body", err))
		return
	}
	entry, err := ws.AppendLog(c.Request.Context(), c.Param("id"), req.Update)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *RoadmapHandler) Delete(c *gin.Context) {
	ws, ok := openWorkspace(c, h.workspaces)
	if !ok {
		return
	}
	if err := ws.Delete(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RoadmapHandler) Export(c *gin.Context) {
	ownerID, ok := mustOwner(c)
	if !ok {
		return
	}
	out, err := h.exporter.Execute(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, ExportResponse{URL: out.URL, PublicID: out.PublicID})
}
