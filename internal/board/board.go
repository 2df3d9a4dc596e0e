package board

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"keijiban/backend/config"
	"keijiban/backend/internal/dto"
	"keijiban/backend/internal/model"
)

// NoticeFetcher 拉取看板范围内的有效联络事项（由 APIClient 实现）
type NoticeFetcher interface {
	GetCombinedActive(ctx context.Context, scheduleGroupID, displayID int) (*dto.ActiveNoticesResponse, error)
}

// Board 看板客户端：初次拉取 → 跟随 Hub 推送 → 定时轮询兜底
type Board struct {
	cfg     *config.BoardConfig
	api     NoticeFetcher
	updates <-chan Update
	state   *ViewState
	logger  *zap.Logger
}

// NewBoard 创建 Board；updates 通常为 HubClient.Updates()
func NewBoard(cfg *config.BoardConfig, api NoticeFetcher, updates <-chan Update, logger *zap.Logger) *Board {
	return &Board{
		cfg:     cfg,
		api:     api,
		updates: updates,
		state:   NewViewState(cfg.ScheduleGroupDepartmentID, cfg.DisplayDepartmentID),
		logger:  logger,
	}
}

// State 看板显示状态
func (b *Board) State() *ViewState {
	return b.state
}

// Refresh 通过 REST 接口重新拉取并应用
func (b *Board) Refresh(ctx context.Context) error {
	timeout := b.cfg.Timeout
	if timeout <= 0 {
		timeout = defaultAPITimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := b.api.GetCombinedActive(ctx, b.cfg.ScheduleGroupDepartmentID, b.cfg.DisplayDepartmentID)
	if err != nil {
		return err
	}
	if len(resp.FailedScopes) > 0 {
		b.logger.Warn("部分部署的联络事项获取失败", zap.Ints("failed_scopes", resp.FailedScopes))
	}
	b.apply(resp.Notices, SourcePoll)
	return nil
}

// ═══════════════════════════════════════════════════════════
// Run — 阻塞直到 ctx 取消
// ═══════════════════════════════════════════════════════════

func (b *Board) Run(ctx context.Context) error {
	b.refreshLogged(ctx)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	schedule := fmt.Sprintf("@every %s", b.cfg.PollInterval)
	if _, err := c.AddFunc(schedule, func() { b.refreshLogged(ctx) }); err != nil {
		return fmt.Errorf("注册定时轮询失败: %w", err)
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	b.logger.Info("看板已启动",
		zap.Ints("scopes", b.state.Scopes()),
		zap.Duration("poll_interval", b.cfg.PollInterval),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-b.updates:
			if !ok {
				b.updates = nil
				continue
			}
			if u.Notices != nil {
				b.apply(u.Notices, SourcePush)
			}
			if u.Resync {
				b.refreshLogged(ctx)
			}
		}
	}
}

func (b *Board) refreshLogged(ctx context.Context) {
	if err := b.Refresh(ctx); err != nil && ctx.Err() == nil {
		b.logger.Warn("联络事项拉取失败，保留当前显示",
			zap.String("last_synced", b.state.SyncedAgo()),
			zap.Error(err),
		)
	}
}

func (b *Board) apply(notices []model.EmergencyNotice, source string) {
	if !b.state.Apply(notices, source) {
		return
	}
	snap := b.state.Snapshot()
	if snap.Emergency {
		b.logger.Info("紧急联络事项显示已更新",
			zap.String("source", source),
			zap.Int("count", len(snap.Notices)),
			zap.String("marquee", snap.Marquee),
			zap.Time("synced_at", snap.LastSynced.Truncate(time.Second)),
		)
		return
	}
	b.logger.Info("紧急联络事项已全部解除", zap.String("source", source))
}
