package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khoahotran/stdtrack/internal/domain/chat"
	"github.com/khoahotran/stdtrack/internal/domain/profile"
	"github.com/khoahotran/stdtrack/internal/domain/roadmap"
	"github.com/khoahotran/stdtrack/internal/domain/user"
	"github.com/khoahotran/stdtrack/pkg/apperror"
	"github.com/khoahotran/stdtrack/pkg/auth"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

const (
	GinContextKeyOwnerID = "ownerID"
)

// AuthMiddleware accepts a bearer token, or an access_token query parameter
// for EventSource clients that cannot set headers.
func AuthMiddleware(jwtSvc *auth.JWTService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Invalid token format"})
				return
			}
		} else {
			tokenString = c.Query("access_token")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Authorization header is required"})
			return
		}

		claims, err := jwtSvc.ValidateToken(tokenString)
		if err != nil {
			log.Debug("Rejected token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Invalid or expired token"})
			return
		}

		c.Set(GinContextKeyOwnerID, claims.OwnerID)
		c.Next()
	}
}

// ErrorMiddleware renders the last handler error as {error, message}.
func ErrorMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		appErr := toAppError(err)
		status := apperror.ToHTTPStatus(appErr)

		fields := []zap.Field{zap.String("path", c.FullPath()), zap.Int("status", status)}
		if status >= http.StatusInternalServerError {
			log.Error("Request failed", err, fields...)
		} else {
			log.Warn("Request rejected", append(fields, zap.Error(err))...)
		}

		if c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(status, appErr.ToJSON())
	}
}

// toAppError maps domain sentinels onto the HTTP error taxonomy.
func toAppError(err error) *apperror.AppError {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, roadmap.ErrRoadmapNotFound):
		return apperror.NewAppError(apperror.ErrNotFound, "roadmap not found", err.Error(), err)
	case errors.Is(err, roadmap.ErrItemNotFound):
		return apperror.NewAppError(apperror.ErrNotFound, "roadmap item not found", err.Error(), err)
	case errors.Is(err, profile.ErrProfileNotFound):
		return apperror.NewAppError(apperror.ErrNotFound, "profile not found", err.Error(), err)
	case errors.Is(err, user.ErrUserNotFound):
		return apperror.NewAppError(apperror.ErrNotFound, "user not found", err.Error(), err)
	case errors.Is(err, user.ErrEmailTaken):
		return apperror.NewAppError(apperror.ErrConflict, "email already registered", err.Error(), err)
	case errors.Is(err, roadmap.ErrInvalidMode), errors.Is(err, roadmap.ErrPayloadMismatch), errors.Is(err, chat.ErrInvalidKey):
		return apperror.NewInvalidInput(err.Error(), err)
	case errors.Is(err, context.Canceled):
		return apperror.NewAppError(apperror.ErrInternal, "request cancelled", err.Error(), err)
	}
	return apperror.NewInternal("unexpected error", err)
}

func GetOwnerIDFromGinContext(c *gin.Context) (uuid.UUID, bool) {
	ownerID, ok := c.Get(GinContextKeyOwnerID)
	if !ok {
		return uuid.Nil, false
	}
	ownerIDUUID, ok := ownerID.(uuid.UUID)
	if !ok {
		return uuid.Nil, false
	}
	return ownerIDUUID, true
}

func mustOwner(c *gin.Context) (uuid.UUID, bool) {
	ownerID, ok := GetOwnerIDFromGinContext(c)
	if !ok {
		_ = c.Error(apperror.NewPermissionDenied("ownerID not found in context"))
	}
	return ownerID, ok
}
