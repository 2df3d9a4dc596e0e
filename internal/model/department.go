package model

// Department 部署表 — 对应 departments（本服务只读，用于解析部署名称）
type Department struct {
	DepartmentID   int    `gorm:"column:department_id;primaryKey"           json:"department_id"`
	DepartmentName string `gorm:"column:department_name;type:varchar(100)" json:"department_name"`
	IsActive       bool   `gorm:"not null;default:true"                    json:"is_active"`
}

// TableName 指定表名
func (Department) TableName() string { return "departments" }
