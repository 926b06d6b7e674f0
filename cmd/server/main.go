package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TencentBlueKing/bk-monitor-sub008/api/router"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/config"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/database"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/remote"
	"github.com/TencentBlueKing/bk-monitor-sub008/internal/service"
	"github.com/TencentBlueKing/bk-monitor-sub008/pkg/cache"
	"github.com/TencentBlueKing/bk-monitor-sub008/pkg/logger"
)

func main() {
	// 加载配置
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.Infof("Starting bk-monitor collector orchestrator, mode=%s", cfg.Server.Mode)

	// 初始化数据库
	if err := database.InitSQLite(cfg.Database.SQLite); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()
	db := database.GetDB()

	// 集群信息缓存
	cache.Init(cfg.ClusterInfo.CacheTTL)

	// 远程客户端
	nodeMan := remote.NewNodeManClient(cfg.Remote)
	transfer := remote.NewTransferClient(cfg.Remote)
	cmdb := remote.NewCMDBClient(cfg.Remote)
	bkdata := remote.NewBkDataClient(cfg.Remote)
	itsm := remote.NewITSMClient(cfg.Remote)

	// 业务服务
	naming := service.NewNamingService(db, cfg.Naming)
	params := service.NewParamsBuilder(cfg.Subscription, cfg.Naming)
	subscription := service.NewSubscriptionService(db, nodeMan, cfg.Subscription.Concurrent)
	status := service.NewStatusService(db, nodeMan, subscription, cfg.Subscription)
	instanceStatus := service.NewInstanceStatusService(nodeMan, subscription)
	clusterInfo := service.NewClusterInfoService(transfer, cfg.ClusterInfo)
	collector := service.NewCollectorService(db, cfg, naming, params, subscription, transfer, cmdb, bkdata, itsm)

	// 设置路由
	r := router.SetupRouter(cfg.Server.Mode, &router.Services{
		DB:             db,
		Collector:      collector,
		Naming:         naming,
		Status:         status,
		InstanceStatus: instanceStatus,
		ClusterInfo:    clusterInfo,
	})

	// 创建HTTP服务器
	server := &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        r,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	// 启动服务器
	go func() {
		logger.Infof("Server starting on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server shutting down...")

	// 优雅关闭服务器
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	} else {
		logger.Info("Server shutdown complete")
	}
}
