package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/antoninfaure/occupancy-scraper/config"
	"github.com/antoninfaure/occupancy-scraper/internal/api/handler"
	"github.com/antoninfaure/occupancy-scraper/internal/api/middleware"
)

// Setup 初始化并返回 Gin 路由引擎；limiter 为 nil 时不限流
func Setup(cfg *config.Config, h *handler.Handler, limiter middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 学期模块
		semesters := v1.Group("/semesters")
		{
			semesters.GET("", h.Semester.ListSemesters)
			semesters.GET("/current", h.Semester.GetCurrentSemester)
		}

		// 同步模块
		sync := v1.Group("/sync")
		sync.Use(middleware.RateLimit(limiter, cfg.Server.RateLimit, cfg.Server.RateWindow))
		{
			sync.POST("/courses", h.Sync.SyncCourses)
			sync.POST("/schedules", h.Sync.SyncSchedules)
			sync.POST("/rooms", h.Sync.SyncRooms)
			sync.POST("/events", h.Sync.SyncEvents)
		}
	}

	return r
}
