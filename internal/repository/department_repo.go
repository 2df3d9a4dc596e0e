package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"keijiban/backend/internal/model"
)

// DepartmentRepository 部署数据访问接口（只读）
type DepartmentRepository interface {
	// NamesByID 返回有效部署的 ID → 名称映射
	NamesByID(ctx context.Context) (map[int]string, error)
}

// departmentRepo DepartmentRepository 的 GORM 实现
type departmentRepo struct {
	boundedDB
}

// NewDepartmentRepo 创建 DepartmentRepository 实例
func NewDepartmentRepo(db *gorm.DB, timeout time.Duration) DepartmentRepository {
	return &departmentRepo{boundedDB{db: db, timeout: timeout}}
}

func (r *departmentRepo) NamesByID(ctx context.Context) (map[int]string, error) {
	db, cancel := r.with(ctx)
	defer cancel()

	var depts []model.Department
	err := db.
		Select("department_id", "department_name").
		Where("is_active = ? AND department_id IS NOT NULL", true).
		Find(&depts).Error
	if err != nil {
		return nil, err
	}

	names := make(map[int]string, len(depts))
	for _, d := range depts {
		names[d.DepartmentID] = d.DepartmentName
	}
	return names, nil
}
