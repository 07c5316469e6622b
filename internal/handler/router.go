package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yuxishi/aiusage/internal/logger"
)

// NewRouter wires every route onto a gin engine with recovery middleware.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/health", h.Health)
	r.GET("/metrics", h.Metrics)

	api := r.Group("/api")
	{
		api.GET("/usage", h.GetUsage)
		api.POST("/refresh", h.Refresh)
		api.GET("/history", h.GetHistory)
		api.GET("/history/latest", h.GetLatestHistory)
		api.GET("/export/json", h.ExportJSON)
		api.GET("/export/tsv", h.ExportTSV)
		api.GET("/export/html", h.ExportHTML)
	}

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
