package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"keijiban/backend/config"
	"keijiban/backend/internal/board"
	applogger "keijiban/backend/pkg/logger"
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
	logger, err := applogger.NewLogger(&cfg.Log, "board")
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("看板启动中...",
		zap.String("api_base_url", cfg.Board.APIBaseURL),
		zap.String("hub_url", cfg.Board.HubURL),
		zap.Int("schedule_group_department_id", cfg.Board.ScheduleGroupDepartmentID),
		zap.Int("display_department_id", cfg.Board.DisplayDepartmentID),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. REST 客户端 + Hub 订阅 + 看板状态
	api := board.NewAPIClient(cfg.Board.APIBaseURL, cfg.Board.Timeout)
	hubClient := board.NewHubClient(cfg.Board.HubURL, board.NewRetryPolicy(), logger)
	b := board.NewBoard(&cfg.Board, api, hubClient.Updates(), logger)

	// 4. 运行直到收到关闭信号
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hubClient.Run(gctx) })
	g.Go(func() error { return b.Run(gctx) })

	if err := g.Wait(); err != nil {
		logger.Error("看板异常退出", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("看板已关闭")
}
