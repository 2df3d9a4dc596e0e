package board

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"keijiban/backend/config"
	"keijiban/backend/internal/dto"
	"keijiban/backend/internal/model"
)

type mockFetcher struct {
	mu    sync.Mutex
	resp  *dto.ActiveNoticesResponse
	err   error
	calls int
	args  [2]int
}

func (m *mockFetcher) GetCombinedActive(_ context.Context, scheduleGroupID, displayID int) (*dto.ActiveNoticesResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.args = [2]int{scheduleGroupID, displayID}
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func (m *mockFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func testBoardConfig() *config.BoardConfig {
	return &config.BoardConfig{
		Timeout:                   time.Second,
		PollInterval:              time.Hour,
		ScheduleGroupDepartmentID: 4,
		DisplayDepartmentID:       9,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("等待条件超时")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBoard_Refresh(t *testing.T) {
	f := &mockFetcher{resp: &dto.ActiveNoticesResponse{Notices: boardNotices(time.Now())[:2]}}
	b := NewBoard(testBoardConfig(), f, nil, zap.NewNop())

	if err := b.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh 应成功: %v", err)
	}
	if f.args != [2]int{4, 9} {
		t.Errorf("应以配置的部署查询，实际=%v", f.args)
	}
	s := b.State().Snapshot()
	if len(s.Notices) != 2 || s.Source != SourcePoll {
		t.Errorf("拉取结果未应用: %+v", s)
	}
}

func TestBoard_RefreshFailureKeepsState(t *testing.T) {
	f := &mockFetcher{resp: &dto.ActiveNoticesResponse{Notices: boardNotices(time.Now())[:2]}}
	b := NewBoard(testBoardConfig(), f, nil, zap.NewNop())
	b.Refresh(context.Background())

	f.mu.Lock()
	f.err = errors.New("connection refused")
	f.mu.Unlock()
	if err := b.Refresh(context.Background()); err == nil {
		t.Fatal("期望返回错误")
	}
	if len(b.State().Snapshot().Notices) != 2 {
		t.Error("拉取失败时应保留当前显示")
	}
}

func TestBoard_RunAppliesPushAndResync(t *testing.T) {
	f := &mockFetcher{resp: dto.EmptyActiveNotices()}
	updates := make(chan Update, 1)
	b := NewBoard(testBoardConfig(), f, updates, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	waitFor(t, func() bool { return f.callCount() == 1 })

	// 推送为全局列表，看板只保留自身部署可见的部分
	updates <- Update{Notices: boardNotices(time.Now())}
	waitFor(t, func() bool { return len(b.State().Snapshot().Notices) == 2 })
	if got := b.State().Snapshot().Source; got != SourcePush {
		t.Errorf("期望来源 push，实际=%s", got)
	}

	updates <- Update{Resync: true}
	waitFor(t, func() bool { return f.callCount() == 2 })
	waitFor(t, func() bool { return len(b.State().Snapshot().Notices) == 0 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("取消后应返回 nil，实际: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run 未退出")
	}
}

func TestBoard_PeriodicPoll(t *testing.T) {
	f := &mockFetcher{resp: dto.EmptyActiveNotices()}
	cfg := testBoardConfig()
	cfg.PollInterval = time.Second
	b := NewBoard(cfg, f, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	waitFor(t, func() bool { return f.callCount() >= 2 })
}

func TestBoard_IgnoresOtherDepartmentsPush(t *testing.T) {
	b := NewBoard(testBoardConfig(), &mockFetcher{resp: dto.EmptyActiveNotices()}, nil, zap.NewNop())
	b.apply([]model.EmergencyNotice{
		{ID: 3, Priority: model.PriorityUrgent, IsActive: true, TargetDepartments: model.IntArray{7}},
	}, SourcePush)
	if b.State().Snapshot().Emergency {
		t.Error("其他部署的联络事项不应触发紧急显示")
	}
}
