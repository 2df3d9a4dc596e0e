package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keijiban/backend/config"
	"keijiban/backend/internal/api/handler"
	"keijiban/backend/internal/api/middleware"
	"keijiban/backend/pkg/metrics"
	"keijiban/backend/pkg/response"
)

// PingFunc 健康检查时探测数据库
type PingFunc func(ctx context.Context) error

// Setup 初始化并返回 Gin 路由引擎
// hubWS 为 WebSocket 入口；limiter 为 nil 时写接口不限流
func Setup(cfg *config.Config, h *handler.Handler, hubWS gin.HandlerFunc, limiter middleware.Limiter, ping PingFunc, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger, "/health", "/metrics"))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, response.CodeNotFound, "接口不存在")
	})

	// ── 健康检查 / 监控 ──
	r.GET("/health", healthHandler(ping))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// ── 实时推送 Hub ──
	r.GET(cfg.Hub.Path, hubWS)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.SecurityHeaders())
	v1.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	{
		var writeLimit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
		if cfg.Server.RateLimit.Enabled {
			writeLimit = middleware.RateLimit(limiter, cfg.Server.RateLimit.Limit, cfg.Server.RateLimit.Window, logger)
		}

		// 紧急联络事项
		notices := v1.Group("/emergency-notices")
		{
			notices.GET("", h.Notice.ListNotices)
			notices.GET("/export", h.Export.ExportNotices)
			notices.GET("/department/:departmentId/active", h.Notice.GetActiveForDepartment)
			notices.GET("/departments/combined/active", h.Notice.GetCombinedActive)
			notices.POST("", writeLimit, h.Notice.CreateNotice)
			notices.PUT("/:id", writeLimit, h.Notice.UpdateNotice)
			notices.PATCH("/:id/toggle", writeLimit, h.Notice.ToggleNotice)
			notices.DELETE("/:id", writeLimit, h.Notice.DeleteNotice)
		}
	}

	return r
}

func healthHandler(ping PingFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
