package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"keijiban/backend/internal/dto"
	"keijiban/backend/internal/model"
	"keijiban/backend/internal/repository"
	applogger "keijiban/backend/pkg/logger"
)

// RecentNoticeLimit 一览接口返回的最大条数
const RecentNoticeLimit = 30

// NoticeService 紧急联络事项业务接口
type NoticeService interface {
	// List 最近 30 条（含无效），创建时间降序、有效优先
	List(ctx context.Context) ([]model.EmergencyNotice, error)
	GetActiveForDepartment(ctx context.Context, departmentID int) (*dto.ActiveNoticesResponse, error)
	GetCombinedActive(ctx context.Context, q *dto.CombinedActiveQuery) (*dto.ActiveNoticesResponse, error)
	Create(ctx context.Context, req *dto.CreateNoticeRequest) (*model.EmergencyNotice, error)
	Update(ctx context.Context, id int, req *dto.UpdateNoticeRequest) (*model.EmergencyNotice, error)
	Toggle(ctx context.Context, id int, req *dto.ToggleNoticeRequest) error
	Delete(ctx context.Context, id int) error
}

type noticeService struct {
	repo        *repository.Repository
	aggregator  NoticeAggregator
	broadcaster Broadcaster
	logger      *zap.Logger
}

// NewNoticeService 创建 NoticeService 实例
func NewNoticeService(repo *repository.Repository, aggregator NoticeAggregator, broadcaster Broadcaster, logger *zap.Logger) NoticeService {
	return &noticeService{
		repo:        repo,
		aggregator:  aggregator,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// ────────────────────── 查询 ──────────────────────

func (s *noticeService) List(ctx context.Context) ([]model.EmergencyNotice, error) {
	notices, err := s.repo.Notice.ListRecent(ctx, RecentNoticeLimit)
	if err != nil {
		applogger.For(ctx, s.logger).Error("查询联络事项一览失败", zap.Error(err))
		return nil, err
	}
	if notices == nil {
		notices = []model.EmergencyNotice{}
	}
	fillCreatorNames(ctx, s.repo.Department, s.logger, notices)
	return notices, nil
}

func (s *noticeService) GetActiveForDepartment(ctx context.Context, departmentID int) (*dto.ActiveNoticesResponse, error) {
	return s.aggregator.GetActiveForScopes(ctx, []int{departmentID})
}

func (s *noticeService) GetCombinedActive(ctx context.Context, q *dto.CombinedActiveQuery) (*dto.ActiveNoticesResponse, error) {
	return s.aggregator.GetActiveForScopes(ctx, q.ScopeIDs())
}

// ────────────────────── Create ──────────────────────

func (s *noticeService) Create(ctx context.Context, req *dto.CreateNoticeRequest) (*model.EmergencyNotice, error) {
	targets, err := validateNotice(req.Priority, req.NoticeType, req.NoticeContent, req.TargetDepartments)
	if err != nil {
		return nil, err
	}

	notice := &model.EmergencyNotice{
		Priority:      req.Priority,
		NoticeType:    strings.TrimSpace(req.NoticeType),
		NoticeContent: strings.TrimSpace(req.NoticeContent),
		IsActive:      true,
	}
	if req.CreatedByDepartmentID > 0 {
		creator := req.CreatedByDepartmentID
		notice.CreatedByDepartmentID = &creator
	}

	id, err := s.repo.Notice.Create(ctx, notice, targets)
	if err != nil {
		applogger.For(ctx, s.logger).Error("创建联络事项失败", zap.String("notice_type", notice.NoticeType), zap.Error(err))
		return nil, err
	}

	s.broadcaster.NotifyNoticesChanged("create")

	return s.reload(ctx, id, notice, targets), nil
}

// ────────────────────── Update ──────────────────────

func (s *noticeService) Update(ctx context.Context, id int, req *dto.UpdateNoticeRequest) (*model.EmergencyNotice, error) {
	if id != req.ID {
		return nil, ErrNoticeIDMismatch
	}
	targets, err := validateNotice(req.Priority, req.NoticeType, req.NoticeContent, req.TargetDepartments)
	if err != nil {
		return nil, err
	}

	notice := &model.EmergencyNotice{
		ID:            id,
		Priority:      req.Priority,
		NoticeType:    strings.TrimSpace(req.NoticeType),
		NoticeContent: strings.TrimSpace(req.NoticeContent),
		IsActive:      req.IsActive,
	}

	found, err := s.repo.Notice.Update(ctx, notice, targets)
	if err != nil {
		applogger.For(ctx, s.logger).Error("更新联络事项失败", zap.Int("id", id), zap.Error(err))
		return nil, err
	}
	if !found {
		return nil, ErrNoticeNotFound
	}

	s.broadcaster.NotifyNoticesChanged("update")

	return s.reload(ctx, id, notice, targets), nil
}

// ────────────────────── Toggle ──────────────────────

// Toggle 切换为相同状态同样视为成功并触发推送
func (s *noticeService) Toggle(ctx context.Context, id int, req *dto.ToggleNoticeRequest) error {
	if id != req.ID {
		return ErrNoticeIDMismatch
	}

	found, err := s.repo.Notice.SetActive(ctx, id, req.IsActive)
	if err != nil {
		applogger.For(ctx, s.logger).Error("切换联络事项状态失败", zap.Int("id", id), zap.Bool("is_active", req.IsActive), zap.Error(err))
		return err
	}
	if !found {
		return ErrNoticeNotFound
	}

	s.broadcaster.NotifyNoticesChanged("toggle")
	return nil
}

// ────────────────────── Delete ──────────────────────

func (s *noticeService) Delete(ctx context.Context, id int) error {
	found, err := s.repo.Notice.Delete(ctx, id)
	if err != nil {
		applogger.For(ctx, s.logger).Error("删除联络事项失败", zap.Int("id", id), zap.Error(err))
		return err
	}
	if !found {
		return ErrNoticeNotFound
	}

	s.broadcaster.NotifyNoticesChanged("delete")
	return nil
}

// ── 内部辅助方法 ──

// reload 写入后重新读取；读取失败时退回内存中的数据
func (s *noticeService) reload(ctx context.Context, id int, fallback *model.EmergencyNotice, targets []int) *model.EmergencyNotice {
	notice, err := s.repo.Notice.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			applogger.For(ctx, s.logger).Warn("写入后重新读取联络事项失败", zap.Int("id", id), zap.Error(err))
		}
		fallback.ID = id
		fallback.IsAllDepartments = len(targets) == 0
		fallback.TargetDepartments = model.IntArray(targets)
		notice = fallback
	}

	list := []model.EmergencyNotice{*notice}
	fillCreatorNames(ctx, s.repo.Department, s.logger, list)
	return &list[0]
}

// validateNotice 校验必填项并规范化目标部署（去重、升序）
func validateNotice(p model.Priority, noticeType, content string, targets []int) ([]int, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: 重要度无效", ErrNoticeInvalid)
	}
	if strings.TrimSpace(noticeType) == "" {
		return nil, fmt.Errorf("%w: 种别不能为空", ErrNoticeInvalid)
	}
	if len([]rune(strings.TrimSpace(noticeType))) > 50 {
		return nil, fmt.Errorf("%w: 种别不能超过 50 个字符", ErrNoticeInvalid)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: 联络内容不能为空", ErrNoticeInvalid)
	}
	for _, id := range targets {
		if id <= 0 {
			return nil, fmt.Errorf("%w: 目标部署ID无效 (%d)", ErrNoticeInvalid, id)
		}
	}
	return model.NormalizeIDs(targets), nil
}
