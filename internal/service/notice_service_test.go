package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"keijiban/backend/internal/dto"
	"keijiban/backend/internal/model"
)

// ── 测试辅助 ──

func setupTestNoticeService() (NoticeService, *mockNoticeRepo, *mockBroadcaster) {
	repo, noticeRepo, _ := newTestRepo()
	logger := zap.NewNop()
	bc := &mockBroadcaster{}
	svc := NewNoticeService(repo, NewNoticeAggregator(repo, logger), bc, logger)
	return svc, noticeRepo, bc
}

// ── Create 测试 ──

func TestNoticeService_Create_Success(t *testing.T) {
	svc, _, bc := setupTestNoticeService()

	result, err := svc.Create(context.Background(), &dto.CreateNoticeRequest{
		Priority:              model.PriorityUrgent,
		NoticeType:            "C対応",
		NoticeContent:         "4病棟で患者対応中",
		TargetDepartments:     []int{4},
		CreatedByDepartmentID: 1,
	})
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if result.ID == 0 {
		t.Error("期望分配 ID")
	}
	if !result.IsActive {
		t.Error("新建联络事项应为有效")
	}
	if result.IsAllDepartments {
		t.Error("有目标部署时不应为全部署")
	}
	if result.CreatedByDepartmentName != "ER" {
		t.Errorf("期望创建部署名称=ER，实际=%q", result.CreatedByDepartmentName)
	}
	if calls := bc.calls(); len(calls) != 1 || calls[0] != "create" {
		t.Errorf("期望触发一次 create 推送，实际=%v", calls)
	}

	in4, _ := svc.GetActiveForDepartment(context.Background(), 4)
	if !containsID(in4.Notices, result.ID) {
		t.Error("部署 4 应看到新建的联络事项")
	}
	in7, _ := svc.GetActiveForDepartment(context.Background(), 7)
	if containsID(in7.Notices, result.ID) {
		t.Error("部署 7 不应看到新建的联络事项")
	}
}

func TestNoticeService_Create_NormalizesTargets(t *testing.T) {
	svc, _, _ := setupTestNoticeService()

	result, err := svc.Create(context.Background(), &dto.CreateNoticeRequest{
		Priority:          model.PriorityNormal,
		NoticeType:        "连络",
		NoticeContent:     "内容",
		TargetDepartments: []int{9, 4, 9},
	})
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if len(result.TargetDepartments) != 2 || result.TargetDepartments[0] != 4 || result.TargetDepartments[1] != 9 {
		t.Errorf("期望目标部署 [4 9]，实际=%v", result.TargetDepartments)
	}
}

func TestNoticeService_Create_Invalid(t *testing.T) {
	cases := map[string]*dto.CreateNoticeRequest{
		"重要度越界":  {Priority: model.Priority(9), NoticeType: "A", NoticeContent: "a"},
		"种别为空":   {Priority: model.PriorityLow, NoticeType: "  ", NoticeContent: "a"},
		"内容为空":   {Priority: model.PriorityLow, NoticeType: "A", NoticeContent: ""},
		"目标部署为0": {Priority: model.PriorityLow, NoticeType: "A", NoticeContent: "a", TargetDepartments: []int{4, 0}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			svc, repo, bc := setupTestNoticeService()
			_, err := svc.Create(context.Background(), req)
			if !errors.Is(err, ErrNoticeInvalid) {
				t.Errorf("期望 ErrNoticeInvalid，实际: %v", err)
			}
			if len(repo.notices) != 0 {
				t.Error("校验失败时不应写入")
			}
			if len(bc.calls()) != 0 {
				t.Error("校验失败时不应推送")
			}
		})
	}
}

func TestNoticeService_Create_StoreError(t *testing.T) {
	svc, repo, bc := setupTestNoticeService()
	repo.failAll = errors.New("insert failed")

	_, err := svc.Create(context.Background(), &dto.CreateNoticeRequest{
		Priority: model.PriorityLow, NoticeType: "A", NoticeContent: "a",
	})
	if err == nil {
		t.Fatal("存储失败时应返回错误")
	}
	if len(bc.calls()) != 0 {
		t.Error("存储失败时不应推送")
	}
}

// ── Update 测试 ──

func TestNoticeService_Update_Success(t *testing.T) {
	svc, repo, bc := setupTestNoticeService()
	n := repo.seed(model.PriorityLow, "A", "旧内容", true, 4)

	result, err := svc.Update(context.Background(), n.ID, &dto.UpdateNoticeRequest{
		ID:            n.ID,
		Priority:      model.PriorityHigh,
		NoticeType:    "B",
		NoticeContent: "新内容",
		IsActive:      true,
	})
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if result.NoticeContent != "新内容" || result.Priority != model.PriorityHigh {
		t.Errorf("期望字段已更新，实际=%+v", result)
	}
	if !result.IsAllDepartments {
		t.Error("清空目标部署后应为全部署")
	}
	if calls := bc.calls(); len(calls) != 1 || calls[0] != "update" {
		t.Errorf("期望触发一次 update 推送，实际=%v", calls)
	}
}

func TestNoticeService_Update_IDMismatch(t *testing.T) {
	svc, repo, bc := setupTestNoticeService()
	n := repo.seed(model.PriorityLow, "A", "旧内容", true)

	_, err := svc.Update(context.Background(), n.ID, &dto.UpdateNoticeRequest{
		ID: n.ID + 1, Priority: model.PriorityHigh, NoticeType: "B", NoticeContent: "新内容",
	})
	if !errors.Is(err, ErrNoticeIDMismatch) {
		t.Errorf("期望 ErrNoticeIDMismatch，实际: %v", err)
	}
	if repo.notices[n.ID].NoticeContent != "旧内容" {
		t.Error("ID 不一致时不应写入")
	}
	if len(bc.calls()) != 0 {
		t.Error("ID 不一致时不应推送")
	}
}

func TestNoticeService_Update_NotFound(t *testing.T) {
	svc, _, bc := setupTestNoticeService()

	_, err := svc.Update(context.Background(), 99, &dto.UpdateNoticeRequest{
		ID: 99, Priority: model.PriorityHigh, NoticeType: "B", NoticeContent: "x",
	})
	if !errors.Is(err, ErrNoticeNotFound) {
		t.Errorf("期望 ErrNoticeNotFound，实际: %v", err)
	}
	if len(bc.calls()) != 0 {
		t.Error("记录不存在时不应推送")
	}
}

// ── Toggle 测试 ──

func TestNoticeService_Toggle(t *testing.T) {
	svc, repo, bc := setupTestNoticeService()
	n := repo.seed(model.PriorityLow, "A", "a", true)

	if err := svc.Toggle(context.Background(), n.ID, &dto.ToggleNoticeRequest{ID: n.ID, IsActive: false}); err != nil {
		t.Fatalf("Toggle 应成功: %v", err)
	}
	if repo.notices[n.ID].IsActive {
		t.Error("期望已切换为无效")
	}
	if len(bc.calls()) != 1 {
		t.Errorf("期望触发一次推送，实际=%v", bc.calls())
	}
}

func TestNoticeService_Toggle_SameValueStillBroadcasts(t *testing.T) {
	svc, repo, bc := setupTestNoticeService()
	n := repo.seed(model.PriorityLow, "A", "a", true)

	for i := 0; i < 2; i++ {
		if err := svc.Toggle(context.Background(), n.ID, &dto.ToggleNoticeRequest{ID: n.ID, IsActive: true}); err != nil {
			t.Fatalf("切换为相同状态也应成功: %v", err)
		}
	}
	if calls := bc.calls(); len(calls) != 2 || calls[0] != "toggle" {
		t.Errorf("每次切换都应推送，实际=%v", calls)
	}
}

func TestNoticeService_Toggle_Errors(t *testing.T) {
	svc, repo, bc := setupTestNoticeService()
	n := repo.seed(model.PriorityLow, "A", "a", true)

	err := svc.Toggle(context.Background(), n.ID, &dto.ToggleNoticeRequest{ID: n.ID + 1})
	if !errors.Is(err, ErrNoticeIDMismatch) {
		t.Errorf("期望 ErrNoticeIDMismatch，实际: %v", err)
	}
	err = svc.Toggle(context.Background(), 99, &dto.ToggleNoticeRequest{ID: 99})
	if !errors.Is(err, ErrNoticeNotFound) {
		t.Errorf("期望 ErrNoticeNotFound，实际: %v", err)
	}
	if len(bc.calls()) != 0 {
		t.Errorf("失败时不应推送，实际=%v", bc.calls())
	}
}

// ── Delete 测试 ──

func TestNoticeService_Delete(t *testing.T) {
	svc, repo, bc := setupTestNoticeService()
	n := repo.seed(model.PriorityLow, "A", "a", true)

	if err := svc.Delete(context.Background(), n.ID); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if _, ok := repo.notices[n.ID]; ok {
		t.Error("记录应已删除")
	}
	if calls := bc.calls(); len(calls) != 1 || calls[0] != "delete" {
		t.Errorf("期望触发一次 delete 推送，实际=%v", calls)
	}
}

func TestNoticeService_Delete_NotFoundNoBroadcast(t *testing.T) {
	svc, _, bc := setupTestNoticeService()

	err := svc.Delete(context.Background(), 12345)
	if !errors.Is(err, ErrNoticeNotFound) {
		t.Errorf("期望 ErrNoticeNotFound，实际: %v", err)
	}
	if len(bc.calls()) != 0 {
		t.Errorf("删除不存在的记录不应推送，实际=%v", bc.calls())
	}
}

// ── 查询测试 ──

func TestNoticeService_List_NewestFirstAndLimit(t *testing.T) {
	svc, repo, _ := setupTestNoticeService()
	var last *model.EmergencyNotice
	for i := 0; i < RecentNoticeLimit+5; i++ {
		last = repo.seed(model.PriorityLow, "A", "a", i%2 == 0)
	}

	list, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if len(list) != RecentNoticeLimit {
		t.Errorf("期望最多 %d 条，实际=%d", RecentNoticeLimit, len(list))
	}
	if list[0].ID != last.ID {
		t.Errorf("最新的联络事项应排在最前，期望 ID=%d，实际=%d", last.ID, list[0].ID)
	}
	if containsID(list, 1) {
		t.Error("超出上限的旧联络事项不应返回")
	}
}

func TestNoticeService_List_Empty(t *testing.T) {
	svc, _, _ := setupTestNoticeService()
	list, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("期望非 nil 的空列表，实际=%v", list)
	}
}

func TestNoticeService_GetCombinedActive(t *testing.T) {
	svc, repo, _ := setupTestNoticeService()
	shared := repo.seed(model.PriorityHigh, "A", "共有", true, 4, 7)
	only9 := repo.seed(model.PriorityHigh, "B", "部署9", true, 9)

	resp, err := svc.GetCombinedActive(context.Background(), &dto.CombinedActiveQuery{
		ScheduleGroupDepartmentID: 4,
		DisplayDepartmentID:       7,
		DepartmentIDs:             []int{9},
	})
	if err != nil {
		t.Fatalf("GetCombinedActive 应成功: %v", err)
	}
	if len(resp.Notices) != 2 || !containsID(resp.Notices, shared.ID) || !containsID(resp.Notices, only9.ID) {
		t.Errorf("期望共有与部署9各一条，实际=%v", ids(resp.Notices))
	}
}
