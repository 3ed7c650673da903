package api

import (
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

// NewRouter assembles the gin engine with logging, metrics and auth.
func NewRouter(handler *Handler, jwtSecret string, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(ZapLoggingMiddleware(logger.Named("HTTP")))
	router.Use(gin.Recovery())

	prom := ginprometheus.NewPrometheus("storybook_api")
	prom.Use(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	authed := router.Group("/api")
	authed.Use(AuthMiddleware(jwtSecret, logger))
	{
		authed.POST("/stories", handler.CreateStory)
		authed.GET("/stories", handler.ListStories)
		authed.GET("/completed-count", handler.CompletedCount)
		authed.GET("/stories/:id", handler.GetStory)
		authed.POST("/stories/:id/resume", handler.ResumeStory)
		authed.POST("/stories/:id/foreground", handler.ForegroundStory)
		authed.POST("/characters/analyze-photo", handler.AnalyzePhoto)
	}

	return router
}
