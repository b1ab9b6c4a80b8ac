package api

import (
	"github.com/gin-gonic/gin"
	"github.com/LENAX/med-pipeline/pkg/api/handler"
	"github.com/LENAX/med-pipeline/pkg/api/middleware"
	"github.com/LENAX/med-pipeline/pkg/core/engine"
)

// SetupRouter 设置路由
func SetupRouter(eng *engine.Engine, version string) *gin.Engine {
	// 设置gin模式
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// 全局中间件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS())

	// 创建handlers
	askHandler := handler.NewAskHandler(eng)
	pipelineHandler := handler.NewPipelineHandler(eng)
	eventsHandler := handler.NewEventsHandler(eng)
	healthHandler := handler.NewHealthHandler(version)

	// 健康检查路由（不带前缀）
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// 问答入口, 前端协作方依赖的唯一契约
	router.POST("/ask", askHandler.Ask)

	// 事件推送
	router.GET("/ws/events", eventsHandler.Stream)

	// API v1 路由组
	v1 := router.Group("/api/v1")
	{
		v1.POST("/ask", askHandler.Ask)
		v1.GET("/pipeline", pipelineHandler.Get)

		runs := v1.Group("/runs")
		{
			runs.GET("", pipelineHandler.ListRuns)
			runs.GET("/:id", pipelineHandler.GetRun)
			runs.GET("/:id/tasks", pipelineHandler.GetRunTasks)
		}
	}

	return router
}
