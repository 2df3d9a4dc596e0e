package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"keijiban/backend/internal/model"
)

// ── 测试辅助 ──

func setupTestExportService() (ExportService, *mockNoticeRepo, *mockDeptRepo) {
	repo, noticeRepo, deptRepo := newTestRepo()
	svc := NewExportService(repo, zap.NewNop()).(*exportService)
	svc.now = func() time.Time { return time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC) }
	return svc, noticeRepo, deptRepo
}

// ── ExportNotices 测试 ──

func TestExportService_ExportNotices_Success(t *testing.T) {
	svc, repo, _ := setupTestExportService()
	repo.seed(model.PriorityNormal, "连络", "全部署的联络", true)
	repo.seed(model.PriorityUrgent, "C対応", "4病棟で患者対応中", true, 4, 42)

	buf, filename, err := svc.ExportNotices(context.Background())
	if err != nil {
		t.Fatalf("ExportNotices 应成功: %v", err)
	}
	if filename != "紧急联络事项_20240401.xlsx" {
		t.Errorf("期望文件名=紧急联络事项_20240401.xlsx，实际=%s", filename)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("生成的文件应可读取: %v", err)
	}
	defer f.Close()

	sheet := "紧急联络事项"
	if v, _ := f.GetCellValue(sheet, "A2"); v != "ID" {
		t.Errorf("期望表头 A2=ID，实际=%s", v)
	}
	// 最新的在前
	if v, _ := f.GetCellValue(sheet, "B3"); v != "Urgent" {
		t.Errorf("期望 B3=Urgent，实际=%s", v)
	}
	if v, _ := f.GetCellValue(sheet, "E3"); v != "病棟4F、#42" {
		t.Errorf("期望 E3=病棟4F、#42，实际=%s", v)
	}
	if v, _ := f.GetCellValue(sheet, "E4"); v != AllDepartmentsLabel {
		t.Errorf("期望 E4=%s，实际=%s", AllDepartmentsLabel, v)
	}
	if v, _ := f.GetCellValue(sheet, "F4"); v != "有效" {
		t.Errorf("期望 F4=有效，实际=%s", v)
	}
}

func TestExportService_ExportNotices_Empty(t *testing.T) {
	svc, _, _ := setupTestExportService()

	buf, _, err := svc.ExportNotices(context.Background())
	if err != nil {
		t.Fatalf("无数据时也应生成文件: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("期望非空的 xlsx 内容")
	}
}

func TestExportService_ExportNotices_StoreError(t *testing.T) {
	svc, repo, _ := setupTestExportService()
	repo.failAll = errors.New("db down")

	_, _, err := svc.ExportNotices(context.Background())
	if err == nil {
		t.Error("存储失败时应返回错误")
	}
}

func TestExportService_ExportNotices_DepartmentLookupFails(t *testing.T) {
	svc, repo, deptRepo := setupTestExportService()
	repo.seed(model.PriorityHigh, "A", "a", true, 4)
	deptRepo.err = errors.New("timeout")

	buf, _, err := svc.ExportNotices(context.Background())
	if err != nil {
		t.Fatalf("名称查询失败不应影响导出: %v", err)
	}
	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("生成的文件应可读取: %v", err)
	}
	defer f.Close()
	if v, _ := f.GetCellValue("紧急联络事项", "E3"); v != "#4" {
		t.Errorf("名称未知时应以 ID 显示，实际=%s", v)
	}
}
