package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"keijiban/backend/internal/service"
	"keijiban/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 联络事项导出 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
	now       func() time.Time
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, now: time.Now}
}

// ExportNotices 导出最近的联络事项一览（含无效）
// GET /api/v1/emergency-notices/export
func (h *ExportHandler) ExportNotices(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportNotices(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		if errors.Is(err, service.ErrExportGenerateFail) {
			response.InternalError(c)
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeStoreFailure, "获取紧急联络事项失败")
		return
	}

	// 文件名含日文/中文：filename 给出 ASCII 兜底，filename* 给出 UTF-8 原名
	fallback := "emergency_notices_" + h.now().Format("20060102") + ".xlsx"
	c.Header("Content-Disposition",
		`attachment; filename="`+fallback+`"; filename*=UTF-8''`+url.PathEscape(filename))
	c.Header("Content-Length", strconv.Itoa(buf.Len()))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
