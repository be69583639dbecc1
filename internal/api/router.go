package api

import (
	"DanceSync/internal/metrics"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册全部业务路由与 /metrics
func RegisterRoutes(r *gin.Engine, syncHandler *SyncHandler, eventHandler *EventHandler, m *metrics.Metrics) {
	r.Use(m.Middleware())

	r.POST("/sync/run", syncHandler.RunQueryHandler)
	r.POST("/sync/cities", syncHandler.RunCitiesHandler)

	r.GET("/api/events", eventHandler.ListEvents)
	r.GET("/api/events/:event_uuid", eventHandler.GetEvent)
	r.GET("/api/runs/:run_uuid", eventHandler.GetRun)

	r.GET("/metrics", gin.WrapH(m.Handler()))
}
