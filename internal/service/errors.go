package service

import "errors"

// ── 紧急联络事项业务错误 ──

var (
	ErrNoticeNotFound         = errors.New("指定ID的紧急联络事项不存在")
	ErrNoticeIDMismatch       = errors.New("路径ID与请求体ID不一致")
	ErrNoticeInvalid          = errors.New("紧急联络事项参数无效")
	ErrNoticeStoreUnavailable = errors.New("紧急联络事项存储不可用")
	ErrExportGenerateFail     = errors.New("生成 Excel 文件失败")
)
