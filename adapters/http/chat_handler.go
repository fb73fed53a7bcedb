package http

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	chatUC "github.com/khoahotran/stdtrack/internal/application/usecase/chat"
	"github.com/khoahotran/stdtrack/internal/domain/chat"
	"github.com/khoahotran/stdtrack/pkg/apperror"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

const heartbeatInterval = 25 * time.Second

type ChatHandler struct {
	submitUseCase *chatUC.SubmitUseCase
	manageUseCase *chatUC.ManageUseCase
	threads       chat.Repository
	logger        logger.Logger
}

func NewChatHandler(submit *chatUC.SubmitUseCase, manage *chatUC.ManageUseCase, threads chat.Repository, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		submitUseCase: submit,
		manageUseCase: manage,
		threads:       threads,
		logger:        log,
	}
}

// threadKey reads the roadmap id from the path and the item label from the
// item query parameter; no item means the roadmap-level thread.
func threadKey(c *gin.Context, item string) (chat.ThreadKey, bool) {
	ownerID, ok := mustOwner(c)
	if !ok {
		return chat.ThreadKey{}, false
	}
	return chat.NewThreadKey(ownerID, c.Param("id"), item), true
}

func startSSE(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	key, ok := threadKey(c, c.Query("item"))
	if !ok {
		return
	}
	msgs, err := h.manageUseCase.List(c.Request.Context(), key)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ThreadDTO{ThreadID: key.ID(), Messages: msgs})
}

// Submit streams the growing reply as "buffer" events, then a "done" event
// with both stored messages. Failures before the first fragment are plain
// JSON errors; later ones arrive as an "error" event.
func (h *ChatHandler) Submit(c *gin.Context) {
	var req SubmitChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.NewInvalidInput("invalid JSON body", err))
		return
	}
	key, ok := threadKey(c, req.Item)
	if !ok {
		return
	}

	streaming := false
	onBuffer := func(buf string) {
		if buf == "" && !streaming {
			return
		}
		if !streaming {
			startSSE(c)
			streaming = true
		}
		c.SSEvent("buffer", BufferEvent{Text: buf})
		c.Writer.Flush()
	}

	out, err := h.submitUseCase.Execute(c.Request.Context(), chatUC.SubmitInput{Key: key, Question: req.Question}, onBuffer)
	if err != nil {
		if !streaming {
			_ = c.Error(err)
			return
		}
		appErr := toAppError(err)
		h.logger.Warn("Chat stream ended with error", zap.String("thread", key.String()), zap.Error(err))
		c.SSEvent("error", appErr.ToJSON())
		c.Writer.Flush()
		return
	}

	if !streaming {
		startSSE(c)
	}
	c.SSEvent("done", DoneEvent{UserMessage: out.UserMessage, AssistantMessage: out.AssistantMessage})
	c.Writer.Flush()
}

func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	key, ok := threadKey(c, c.Query("item"))
	if !ok {
		return
	}
	msgID, err := uuid.Parse(c.Param("messageId"))
	if err != nil {
		_ = c.Error(apperror.NewInvalidInput("message id must be a UUID", err))
		return
	}
	if err := h.manageUseCase.DeleteMessage(c.Request.Context(), key, msgID); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) ClearThread(c *gin.Context) {
	key, ok := threadKey(c, c.Query("item"))
	if !ok {
		return
	}
	if err := h.manageUseCase.Clear(c.Request.Context(), key); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Events pushes a "snapshot" event with the sorted message list on connect
// and after every change to the thread, until the client disconnects.
func (h *ChatHandler) Events(c *gin.Context) {
	key, ok := threadKey(c, c.Query("item"))
	if !ok {
		return
	}
	if err := key.Validate(); err != nil {
		_ = c.Error(apperror.NewInvalidInput("thread key requires owner and roadmap", err))
		return
	}

	// Only the newest snapshot matters; older ones are dropped.
	updates := make(chan []chat.Message, 1)
	view := chatUC.NewThreadView(h.threads, h.logger, func(_ chat.ThreadKey, msgs []chat.Message) {
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- msgs:
		default:
		}
	})

	ctx := c.Request.Context()
	if err := view.Open(ctx, key); err != nil {
		_ = c.Error(err)
		return
	}
	defer view.Close()

	startSSE(c)
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msgs := <-updates:
			c.SSEvent("snapshot", ThreadDTO{ThreadID: key.ID(), Messages: msgs})
			return true
		case <-heartbeat.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			return true
		}
	})
}
