package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/TencentBlueKing/bk-monitor-sub008/api/handler"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/database"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/service"
	"github.com/TencentBlueKing/bk-monitor-sub008/pkg/logger"
)

// Services 路由依赖的服务集合
type Services struct {
	DB             *gorm.DB
	Collector      *service.CollectorService
	Naming         *service.NamingService
	Status         *service.StatusService
	InstanceStatus *service.InstanceStatusService
	ClusterInfo    *service.ClusterInfoService
}

// SetupRouter 设置路由
func SetupRouter(mode string, svcs *Services) *gin.Engine {
	gin.SetMode(mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CORSMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware())

	collectorHandler := handler.NewCollectorHandler(svcs.Collector, svcs.Naming)
	statusHandler := handler.NewStatusHandler(svcs.DB, svcs.Status, svcs.InstanceStatus, svcs.ClusterInfo)
	debugHandler := handler.NewDebugHandler()

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":   "bk-monitor-sub008",
			"status": "running",
		})
	})
	r.GET("/healthz", func(c *gin.Context) {
		if err := database.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		collector := v1.Group("/databus/collectors")
		{
			collector.POST("", collectorHandler.CreateOrUpdate)
			collector.POST("/pre_check", collectorHandler.PreCheck)
			collector.POST("/fast_create", collectorHandler.FastCreate)
			collector.POST("/custom_create", collectorHandler.CustomCreate)
			collector.POST("/:collector_config_id/fast_update", collectorHandler.FastUpdate)
			collector.POST("/:collector_config_id/start", collectorHandler.Start)
			collector.POST("/:collector_config_id/stop", collectorHandler.Stop)
			collector.POST("/:collector_config_id/destroy", collectorHandler.Destroy)
			collector.POST("/:collector_config_id/retry", collectorHandler.Retry)
			collector.GET("/:collector_config_id/tail", collectorHandler.Tail)
			collector.GET("/:collector_config_id/task_status", statusHandler.TaskStatus)
		}

		status := v1.Group("/databus/status")
		{
			status.POST("/batch", statusHandler.BatchStatus)
			status.POST("/cluster_infos", statusHandler.ClusterInfos)
		}

		debug := v1.Group("/databus/debug")
		{
			debug.POST("/regex", debugHandler.RegexDebug)
		}
	}

	return r
}

// CORSMiddleware 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

// RequestIDMiddleware 请求ID中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

// LoggingMiddleware 日志中间件
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		logger.WithFields(map[string]interface{}{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   duration.String(),
			"client_ip":  c.ClientIP(),
		}).Info("HTTP Request")
	}
}
