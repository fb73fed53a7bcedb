package http

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/khoahotran/stdtrack/pkg/auth"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

type Handlers struct {
	Auth    *AuthHandler
	Profile *ProfileHandler
	Roadmap *RoadmapHandler
	Chat    *ChatHandler
	Feed    *FeedHandler
}

func NewRouter(h Handlers, jwtSvc *auth.JWTService, allowOrigins []string, log logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		otelgin.Middleware("stdtrack-api"),
		cors.New(cors.Config{
			AllowOrigins:     allowOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
			AllowCredentials: true,
		}),
		ErrorMiddleware(log),
	)

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })

		authGroup := api.Group("/auth")
		authGroup.POST("/signup", h.Auth.SignUp)
		authGroup.POST("/login", h.Auth.Login)

		private := api.Group("/")
		private.Use(AuthMiddleware(jwtSvc, log))
		{
			private.GET("/me", h.Auth.Me)
			private.POST("/auth/logout", h.Auth.Logout)
			private.PUT("/me/password", h.Auth.ChangePassword)

			private.GET("/profile", h.Profile.GetProfile)
			private.PATCH("/profile", h.Profile.UpdateProfile)

			private.GET("/workspace", h.Roadmap.Workspace)

			roadmaps := private.Group("/roadmaps")
			{
				roadmaps.POST("", h.Roadmap.Generate)
				roadmaps.GET("/current", h.Roadmap.Current)
				roadmaps.GET("/:id", h.Roadmap.Get)
				roadmaps.POST("/:id/select", h.Roadmap.Select)
				roadmaps.PATCH("/:id", h.Roadmap.Rename)
				roadmaps.DELETE("/:id", h.Roadmap.Delete)
				roadmaps.POST("/:id/logs", h.Roadmap.AppendLog)
				roadmaps.POST("/:id/export", h.Roadmap.Export)
				roadmaps.GET("/:id/feed", h.Feed.ProgressFeed)

				roadmaps.GET("/:id/threads", h.Chat.ListMessages)
				roadmaps.DELETE("/:id/threads", h.Chat.ClearThread)
				roadmaps.GET("/:id/threads/events", h.Chat.Events)
				roadmaps.POST("/:id/threads/messages", h.Chat.Submit)
				roadmaps.DELETE("/:id/threads/messages/:messageId", h.Chat.DeleteMessage)
			}
		}
	}

	return router
}
