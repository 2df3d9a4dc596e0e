package dto

import "keijiban/backend/internal/model"

// ── 紧急联络事项 DTO ──

// CreateNoticeRequest 创建联络事项请求
// target_departments 为空或省略表示全部署
type CreateNoticeRequest struct {
	Priority              model.Priority `json:"priority"`
	NoticeType            string         `json:"notice_type"              binding:"required,max=50"`
	NoticeContent         string         `json:"notice_content"           binding:"required"`
	TargetDepartments     []int          `json:"target_departments"`
	CreatedByDepartmentID int            `json:"created_by_department_id" binding:"omitempty,min=0"`
}

// UpdateNoticeRequest 全字段更新请求；ID 必须与路径一致
type UpdateNoticeRequest struct {
	ID                int            `json:"id"                 binding:"required,min=1"`
	Priority          model.Priority `json:"priority"`
	NoticeType        string         `json:"notice_type"        binding:"required,max=50"`
	NoticeContent     string         `json:"notice_content"     binding:"required"`
	TargetDepartments []int          `json:"target_departments"`
	IsActive          bool           `json:"is_active"`
}

// ToggleNoticeRequest 切换有效状态请求；ID 必须与路径一致
type ToggleNoticeRequest struct {
	ID       int  `json:"id"        binding:"required,min=1"`
	IsActive bool `json:"is_active"`
}

// CombinedActiveQuery 多部署统合查询参数
// 除两个命名部署外，还可通过重复的 department_id 追加任意部署
type CombinedActiveQuery struct {
	ScheduleGroupDepartmentID int   `form:"scheduleGroupDepartmentId" binding:"omitempty,min=0"`
	DisplayDepartmentID       int   `form:"displayDepartmentId"       binding:"omitempty,min=0"`
	DepartmentIDs             []int `form:"department_id"             binding:"omitempty,dive,min=0"`
}

// ScopeIDs 汇总所有部署 ID（未去重）
func (q *CombinedActiveQuery) ScopeIDs() []int {
	ids := make([]int, 0, len(q.DepartmentIDs)+2)
	ids = append(ids, q.ScheduleGroupDepartmentID, q.DisplayDepartmentID)
	return append(ids, q.DepartmentIDs...)
}

// NoticeResponse 单条联络事项响应
type NoticeResponse struct {
	Notice *model.EmergencyNotice `json:"notice,omitempty"`
}

// NoticeListResponse 联络事项列表响应
type NoticeListResponse struct {
	Notices []model.EmergencyNotice `json:"notices"`
}

// ActiveNoticesResponse 部署别有效联络事项响应
type ActiveNoticesResponse struct {
	Notices         []model.EmergencyNotice `json:"notices"`
	CombinedContent string                  `json:"combined_content"`
	// FailedScopes 获取失败而被跳过的部署（部分成功时非空）
	FailedScopes []int `json:"failed_scopes,omitempty"`
}

// EmptyActiveNotices 失败时返回的空结果
func EmptyActiveNotices() *ActiveNoticesResponse {
	return &ActiveNoticesResponse{Notices: []model.EmergencyNotice{}}
}
