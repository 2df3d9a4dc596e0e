package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"keijiban/backend/internal/model"
	"keijiban/backend/internal/repository"
	applogger "keijiban/backend/pkg/logger"
)

// AllDepartmentsLabel 全部署联络事项在导出中的目标部署显示
const AllDepartmentsLabel = "全部署"

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出内容与一览接口一致（最近 30 条，含无效）
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportNotices 导出联络事项一览为 Excel
	ExportNotices(ctx context.Context) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger, now: time.Now}
}

// ═══════════════════════════════════════════════════════════
// ExportNotices — 导出联络事项一览为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "紧急联络事项"
//   - 第 1 行标题，第 2 行表头
//   - 列：ID / 重要度 / 种别 / 内容 / 对象部署 / 状态 / 创建部署 / 创建时间 / 更新时间

var exportHeaders = []string{"ID", "重要度", "种别", "内容", "对象部署", "状态", "创建部署", "创建时间", "更新时间"}

func (s *exportService) ExportNotices(ctx context.Context) (*bytes.Buffer, string, error) {
	notices, err := s.repo.Notice.ListRecent(ctx, RecentNoticeLimit)
	if err != nil {
		applogger.For(ctx, s.logger).Error("导出时查询联络事项失败", zap.Error(err))
		return nil, "", err
	}
	// 对象部署列同样需要名称，因此无论有无创建部署都查询一次
	names, err := s.repo.Department.NamesByID(ctx)
	if err != nil {
		applogger.For(ctx, s.logger).Warn("导出时查询部署名称失败，以ID代替", zap.Error(err))
		names = nil
	}
	applyCreatorNames(notices, names)

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "紧急联络事项"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	// 设置列宽
	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", "C", 12)
	f.SetColWidth(sheetName, "D", "D", 60)
	f.SetColWidth(sheetName, "E", "E", 24)
	f.SetColWidth(sheetName, "F", "G", 14)
	f.SetColWidth(sheetName, "H", "I", 20)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	urgentStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#C00000"},
	})

	// 标题行
	now := s.now()
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("紧急联络事项一览（%s 导出）", now.Format("2006-01-02 15:04")))
	f.MergeCell(sheetName, "A1", cell(colName(len(exportHeaders)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	for i, h := range exportHeaders {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(exportHeaders)-1), 2), headerStyle)

	// 数据行
	row := 3
	for _, n := range notices {
		values := []interface{}{
			n.ID,
			n.Priority.String(),
			n.NoticeType,
			n.NoticeContent,
			targetLabel(&n, names),
			activeLabel(n.IsActive),
			n.CreatedByDepartmentName,
			n.CreatedAt.Format("2006-01-02 15:04:05"),
			n.UpdatedAt.Format("2006-01-02 15:04:05"),
		}
		for i, v := range values {
			f.SetCellValue(sheetName, cell(colName(i), row), v)
		}
		if n.Priority == model.PriorityUrgent {
			f.SetCellStyle(sheetName, cell("B", row), cell("B", row), urgentStyle)
		}
		row++
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		applogger.For(ctx, s.logger).Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("紧急联络事项_%s.xlsx", now.Format("20060102"))
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// targetLabel 对象部署显示文本；名称未知时退回 ID
func targetLabel(n *model.EmergencyNotice, names map[int]string) string {
	if n.IsAllDepartments || len(n.TargetDepartments) == 0 {
		return AllDepartmentsLabel
	}
	parts := make([]string, 0, len(n.TargetDepartments))
	for _, id := range n.TargetDepartments {
		if name, ok := names[id]; ok && name != "" {
			parts = append(parts, name)
		} else {
			parts = append(parts, fmt.Sprintf("#%d", id))
		}
	}
	return strings.Join(parts, "、")
}

func activeLabel(active bool) string {
	if active {
		return "有效"
	}
	return "无效"
}
