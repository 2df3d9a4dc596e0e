package model

import (
	"sort"
	"strings"
)

// EmergencyNotice 紧急联络事项表 — 对应 emergency_notices
type EmergencyNotice struct {
	ID                    int      `gorm:"column:id;primaryKey;autoIncrement"        json:"id"`
	Priority              Priority `gorm:"type:varchar(10);not null"                 json:"priority"`
	NoticeType            string   `gorm:"type:varchar(50);not null"                 json:"notice_type"`
	NoticeContent         string   `gorm:"type:text;not null"                        json:"notice_content"`
	IsAllDepartments      bool     `gorm:"not null"                                  json:"is_all_departments"`
	IsActive              bool     `gorm:"not null"                                  json:"is_active"`
	CreatedByDepartmentID *int     `gorm:"column:created_by_department_id"           json:"created_by_department_id,omitempty"`
	AuditModel

	// 以下字段由查询聚合或服务层填充，不直接持久化
	TargetDepartments       IntArray `gorm:"->;column:target_departments;-:migration" json:"target_departments"`
	CreatedByDepartmentName string   `gorm:"-"                                         json:"created_by_department_name"`
}

// TableName 指定表名
func (EmergencyNotice) TableName() string { return "emergency_notices" }

// VisibleTo 判断对指定部署是否可见（不考虑有效标记）
func (n *EmergencyNotice) VisibleTo(departmentID int) bool {
	return n.IsAllDepartments || n.TargetDepartments.Contains(departmentID)
}

// EmergencyNoticeDepartment 联络事项与目标部署的关联表
type EmergencyNoticeDepartment struct {
	NoticeID     int `gorm:"column:notice_id;primaryKey"`
	DepartmentID int `gorm:"column:department_id;primaryKey"`
}

// TableName 指定表名
func (EmergencyNoticeDepartment) TableName() string { return "emergency_notice_departments" }

// SortNotices 重要度降序，同级按创建时间降序，再按 ID 降序保证稳定
func SortNotices(notices []EmergencyNotice) {
	sort.SliceStable(notices, func(i, j int) bool {
		a, b := notices[i], notices[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

// CombinedContentSeparator 统合文本的分隔符
const CombinedContentSeparator = " | "

// CombineContent 以 “【种别】内容” 形式按顺序拼接，用于跑马灯显示
func CombineContent(notices []EmergencyNotice) string {
	parts := make([]string, 0, len(notices))
	for _, n := range notices {
		parts = append(parts, "【"+n.NoticeType+"】"+n.NoticeContent)
	}
	return strings.Join(parts, CombinedContentSeparator)
}
