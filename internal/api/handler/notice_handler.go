package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"keijiban/backend/internal/dto"
	"keijiban/backend/internal/service"
	"keijiban/backend/pkg/response"
)

// NoticeHandler 紧急联络事项 HTTP 处理器
type NoticeHandler struct {
	noticeSvc service.NoticeService
}

// NewNoticeHandler 创建 NoticeHandler
func NewNoticeHandler(noticeSvc service.NoticeService) *NoticeHandler {
	return &NoticeHandler{noticeSvc: noticeSvc}
}

// ListNotices 获取最近的联络事项（含无效）
// GET /api/v1/emergency-notices
func (h *NoticeHandler) ListNotices(c *gin.Context) {
	notices, err := h.noticeSvc.List(c.Request.Context())
	if err != nil {
		h.handleNoticeError(c, err)
		return
	}

	response.OK(c, dto.NoticeListResponse{Notices: notices})
}

// GetActiveForDepartment 获取单个部署的有效联络事项
// GET /api/v1/emergency-notices/department/:departmentId/active
func (h *NoticeHandler) GetActiveForDepartment(c *gin.Context) {
	deptID, ok := MustGetDepartmentParam(c, "departmentId")
	if !ok {
		return
	}

	result, err := h.noticeSvc.GetActiveForDepartment(c.Request.Context(), deptID)
	if err != nil {
		h.handleActiveError(c, err)
		return
	}

	response.OK(c, result)
}

// GetCombinedActive 获取多个部署合并后的有效联络事项
// GET /api/v1/emergency-notices/departments/combined/active?scheduleGroupDepartmentId=&displayDepartmentId=
func (h *NoticeHandler) GetCombinedActive(c *gin.Context) {
	var q dto.CombinedActiveQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "部署ID无效")
		return
	}

	result, err := h.noticeSvc.GetCombinedActive(c.Request.Context(), &q)
	if err != nil {
		h.handleActiveError(c, err)
		return
	}

	response.OK(c, result)
}

// CreateNotice 创建联络事项
// POST /api/v1/emergency-notices
func (h *NoticeHandler) CreateNotice(c *gin.Context) {
	var req dto.CreateNoticeRequest
	if !MustBindJSON(c, &req) {
		return
	}

	notice, err := h.noticeSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleNoticeError(c, err)
		return
	}

	response.Created(c, dto.NoticeResponse{Notice: notice})
}

// UpdateNotice 更新联络事项
// PUT /api/v1/emergency-notices/:id
func (h *NoticeHandler) UpdateNotice(c *gin.Context) {
	id, ok := MustGetIntParam(c, "id", "联络事项ID")
	if !ok {
		return
	}

	var req dto.UpdateNoticeRequest
	if !MustBindJSON(c, &req) {
		return
	}

	notice, err := h.noticeSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleNoticeError(c, err)
		return
	}

	response.OKMessage(c, "已更新", dto.NoticeResponse{Notice: notice})
}

// ToggleNotice 切换有效状态
// PATCH /api/v1/emergency-notices/:id/toggle
func (h *NoticeHandler) ToggleNotice(c *gin.Context) {
	id, ok := MustGetIntParam(c, "id", "联络事项ID")
	if !ok {
		return
	}

	var req dto.ToggleNoticeRequest
	if !MustBindJSON(c, &req) {
		return
	}

	if err := h.noticeSvc.Toggle(c.Request.Context(), id, &req); err != nil {
		h.handleNoticeError(c, err)
		return
	}

	message := "已设为无效"
	if req.IsActive {
		message = "已设为有效"
	}
	response.OKMessage(c, message, nil)
}

// DeleteNotice 删除联络事项
// DELETE /api/v1/emergency-notices/:id
func (h *NoticeHandler) DeleteNotice(c *gin.Context) {
	id, ok := MustGetIntParam(c, "id", "联络事项ID")
	if !ok {
		return
	}

	if err := h.noticeSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleNoticeError(c, err)
		return
	}

	response.OKMessage(c, "已删除", nil)
}

// ── 错误映射 ──

func (h *NoticeHandler) handleNoticeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoticeNotFound):
		response.NotFound(c, response.CodeNotFound, "指定ID的紧急联络事项不存在")
	case errors.Is(err, service.ErrNoticeIDMismatch):
		response.BadRequest(c, response.CodeInvalidParams, "路径ID与请求体ID不一致")
	case errors.Is(err, service.ErrNoticeInvalid):
		response.BadRequest(c, response.CodeInvalidParams, invalidMessage(err))
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeStoreFailure, "处理紧急联络事项时发生错误")
	}
}

// handleActiveError 查询失败时仍返回空列表与空统合文本
func (h *NoticeHandler) handleActiveError(c *gin.Context, err error) {
	_ = c.Error(err)
	response.ErrorWithData(c, http.StatusInternalServerError, response.CodeStoreFailure,
		"获取紧急联络事项失败", dto.EmptyActiveNotices())
}

// invalidMessage 去掉哨兵前缀，只保留具体的校验说明
func invalidMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), service.ErrNoticeInvalid.Error()+": ")
	if msg == "" {
		return "参数校验失败"
	}
	return msg
}
