package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"keijiban/backend/internal/model"
	"keijiban/backend/internal/repository"
	"keijiban/backend/pkg/metrics"
)

// NoticePublisher 把有效联络事项全量推送给所有在线客户端
type NoticePublisher interface {
	PublishActiveNotices(ctx context.Context, notices []model.EmergencyNotice) error
}

// Broadcaster 联络事项变更后的推送触发器
type Broadcaster interface {
	// NotifyNoticesChanged 异步重新计算并推送；不阻塞、不返回错误
	NotifyNoticesChanged(reason string)
}

// ActiveNoticeBroadcaster 变更提交后重新读取全部有效联络事项并推送
type ActiveNoticeBroadcaster struct {
	repo      *repository.Repository
	publisher NoticePublisher
	timeout   time.Duration
	logger    *zap.Logger

	// 读取与推送在同一把锁内完成，后发起的推送总是基于更新的读取结果
	mu sync.Mutex
	wg sync.WaitGroup
}

// NewBroadcaster 创建 ActiveNoticeBroadcaster
func NewBroadcaster(repo *repository.Repository, publisher NoticePublisher, timeout time.Duration, logger *zap.Logger) *ActiveNoticeBroadcaster {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ActiveNoticeBroadcaster{
		repo:      repo,
		publisher: publisher,
		timeout:   timeout,
		logger:    logger,
	}
}

func (b *ActiveNoticeBroadcaster) NotifyNoticesChanged(reason string) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("推送联络事项时发生 panic", zap.Any("panic", r), zap.String("reason", reason))
			}
		}()
		b.broadcast(reason)
	}()
}

// Wait 等待进行中的推送结束（优雅关闭时使用）
func (b *ActiveNoticeBroadcaster) Wait() {
	b.wg.Wait()
}

func (b *ActiveNoticeBroadcaster) broadcast(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	notices, err := b.repo.Notice.ListActive(ctx)
	if err != nil {
		metrics.IncBroadcast("store_error")
		b.logger.Error("推送前读取有效联络事项失败", zap.String("reason", reason), zap.Error(err))
		return
	}
	if notices == nil {
		notices = []model.EmergencyNotice{}
	}
	fillCreatorNames(ctx, b.repo.Department, b.logger, notices)

	if err := b.publisher.PublishActiveNotices(ctx, notices); err != nil {
		metrics.IncBroadcast("publish_error")
		b.logger.Error("推送有效联络事项失败", zap.String("reason", reason), zap.Error(err))
		return
	}

	metrics.IncBroadcast("ok")
	b.logger.Info("已向所有客户端推送有效联络事项",
		zap.String("reason", reason),
		zap.Int("count", len(notices)),
	)
}
