package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"keijiban/backend/internal/dto"
	"keijiban/backend/internal/model"
	"keijiban/backend/internal/repository"
	applogger "keijiban/backend/pkg/logger"
)

// NoticeAggregator 多部署范围的有效联络事项统合
type NoticeAggregator interface {
	// GetActiveForScopes 获取对任一部署可见的有效联络事项，按 ID 去重，
	// 重要度降序、创建时间降序排列。scopeIDs 为空时仅返回全部署联络事项。
	GetActiveForScopes(ctx context.Context, scopeIDs []int) (*dto.ActiveNoticesResponse, error)
}

type noticeAggregator struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewNoticeAggregator 创建 NoticeAggregator 实例
func NewNoticeAggregator(repo *repository.Repository, logger *zap.Logger) NoticeAggregator {
	return &noticeAggregator{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// GetActiveForScopes
// ═══════════════════════════════════════════════════════════
//
//   - 0 与负数视为“无范围”，重复 ID 只查询一次
//   - 各部署并发查询，全部完成后再合并
//   - 单个部署失败时跳过该部署；全部失败才返回 ErrNoticeStoreUnavailable

func (a *noticeAggregator) GetActiveForScopes(ctx context.Context, scopeIDs []int) (*dto.ActiveNoticesResponse, error) {
	scopes := model.NormalizeIDs(scopeIDs)
	if len(scopes) == 0 {
		// 部署 0：仅全部署联络事项
		scopes = model.IntArray{0}
	}

	results := make([][]model.EmergencyNotice, len(scopes))
	errs := make([]error, len(scopes))

	var g errgroup.Group
	for i, deptID := range scopes {
		i, deptID := i, deptID
		g.Go(func() error {
			results[i], errs[i] = a.repo.Notice.ListActiveForDepartment(ctx, deptID)
			return nil
		})
	}
	_ = g.Wait()

	var (
		merged  = make([]model.EmergencyNotice, 0)
		seen    = make(map[int]struct{})
		failed  []int
		lastErr error
	)
	for i, deptID := range scopes {
		if errs[i] != nil {
			applogger.For(ctx, a.logger).Warn("部署别联络事项获取失败，跳过该部署",
				zap.Int("department_id", deptID),
				zap.Error(errs[i]),
			)
			failed = append(failed, deptID)
			lastErr = errs[i]
			continue
		}
		for _, n := range results[i] {
			if !n.IsActive {
				continue
			}
			if _, dup := seen[n.ID]; dup {
				continue
			}
			seen[n.ID] = struct{}{}
			merged = append(merged, n)
		}
	}

	if len(failed) == len(scopes) {
		applogger.For(ctx, a.logger).Error("所有部署的联络事项获取均失败",
			zap.Ints("department_ids", scopes),
			zap.Error(lastErr),
		)
		return dto.EmptyActiveNotices(), fmt.Errorf("%w: %w", ErrNoticeStoreUnavailable, lastErr)
	}

	model.SortNotices(merged)
	fillCreatorNames(ctx, a.repo.Department, a.logger, merged)

	resp := &dto.ActiveNoticesResponse{
		Notices:         merged,
		CombinedContent: model.CombineContent(merged),
	}
	for _, id := range failed {
		if id > 0 {
			resp.FailedScopes = append(resp.FailedScopes, id)
		}
	}
	return resp, nil
}
