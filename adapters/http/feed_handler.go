package http

import (
	"github.com/gin-gonic/gin"

	roadmapUC "github.com/khoahotran/stdtrack/internal/application/usecase/roadmap"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

type FeedHandler struct {
	feedUseCase *roadmapUC.ProgressFeedUseCase
	logger      logger.Logger
}

func NewFeedHandler(uc *roadmapUC.ProgressFeedUseCase, log logger.Logger) *FeedHandler {
	return &FeedHandler{
		feedUseCase: uc,
		logger:      log,
	}
}

// ProgressFeed serves the roadmap's daily log as RSS. Feed readers pass
// the token as access_token.
func (h *FeedHandler) ProgressFeed(c *gin.Context) {
	ownerID, ok := mustOwner(c)
	if !ok {
		return
	}
	feed, err := h.feedUseCase.Execute(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	if err := feed.WriteRss(c.Writer); err != nil {
		h.logger.Error("Failed to write progress feed to response", err)
	}
}
