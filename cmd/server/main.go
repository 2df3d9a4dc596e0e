package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"keijiban/backend/config"
	"keijiban/backend/internal/api/handler"
	"keijiban/backend/internal/api/middleware"
	"keijiban/backend/internal/api/router"
	"keijiban/backend/internal/hub"
	"keijiban/backend/internal/repository"
	"keijiban/backend/internal/service"
	"keijiban/backend/pkg/database"
	applogger "keijiban/backend/pkg/logger"
	"keijiban/backend/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（默认查找 ./config/config.yaml）")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log, "server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("hub_path", cfg.Hub.Path),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级为单实例推送与进程内限流）
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，推送仅限本实例", zap.Error(err))
			rdb = nil
		}
	}

	// 5. 实时推送 Hub 与发布器
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	noticeHub := hub.NewHub(logger)
	var publisher service.NoticePublisher = hub.NewLocalPublisher(noticeHub)
	var limiter middleware.Limiter
	if rdb != nil {
		relay := hub.NewRelayPublisher(noticeHub, rdb, cfg.Redis.Channel, logger)
		publisher = relay
		limiter = rdb
		go func() {
			if err := relay.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Redis 中继订阅已停止", zap.Error(err))
			}
		}()
	} else if cfg.Server.RateLimit.Enabled {
		limiter = middleware.NewLocalLimiter(10 * cfg.Server.RateLimit.Window)
		logger.Info("写接口使用进程内限流")
	}

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db, cfg.Database.QueryTimeout)
	broadcaster := service.NewBroadcaster(repo, publisher, cfg.Hub.BroadcastTimeout, logger)
	svc := service.NewService(repo, broadcaster, logger)
	h := handler.NewHandler(svc)

	// 7. 初始化路由
	engine := router.Setup(cfg, h, noticeHub.ServeWS(hub.OptionsFromConfig(&cfg.Hub)), limiter, sqlDB.PingContext, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 等待进行中的推送完成后再断开客户端
	broadcaster.Wait()
	noticeHub.Close()
	stopBackground()

	// 关闭数据库连接
	if err := sqlDB.Close(); err != nil {
		logger.Warn("关闭数据库连接失败", zap.Error(err))
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
