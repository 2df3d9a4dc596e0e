package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"keijiban/backend/internal/model"
	"keijiban/backend/internal/repository"
)

// ── Mock NoticeRepository ──

type mockNoticeRepo struct {
	mu      sync.Mutex
	notices map[int]*model.EmergencyNotice
	nextID  int
	clock   time.Time

	// 错误注入
	failAll     error
	failDept    map[int]error
	failActive  error
	listCalls   int
	activeCalls int
}

func newMockNoticeRepo() *mockNoticeRepo {
	return &mockNoticeRepo{
		notices:  make(map[int]*model.EmergencyNotice),
		nextID:   1,
		clock:    time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC),
		failDept: make(map[int]error),
	}
}

// seed 直接写入一条记录；创建时间按写入顺序递增
func (m *mockNoticeRepo) seed(p model.Priority, noticeType, content string, active bool, targets ...int) *model.EmergencyNotice {
	n := &model.EmergencyNotice{
		Priority:      p,
		NoticeType:    noticeType,
		NoticeContent: content,
		IsActive:      active,
	}
	_, _ = m.Create(context.Background(), n, targets)
	return m.notices[n.ID]
}

func (m *mockNoticeRepo) Create(_ context.Context, notice *model.EmergencyNotice, targets []int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return 0, m.failAll
	}
	notice.ID = m.nextID
	m.nextID++
	m.clock = m.clock.Add(time.Minute)
	notice.CreatedAt = m.clock
	notice.UpdatedAt = m.clock
	notice.IsAllDepartments = len(targets) == 0
	notice.TargetDepartments = model.NormalizeIDs(targets)
	stored := *notice
	m.notices[notice.ID] = &stored
	return notice.ID, nil
}

func (m *mockNoticeRepo) Update(_ context.Context, notice *model.EmergencyNotice, targets []int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return false, m.failAll
	}
	existing, ok := m.notices[notice.ID]
	if !ok {
		return false, nil
	}
	existing.Priority = notice.Priority
	existing.NoticeType = notice.NoticeType
	existing.NoticeContent = notice.NoticeContent
	existing.IsActive = notice.IsActive
	existing.IsAllDepartments = len(targets) == 0
	existing.TargetDepartments = model.NormalizeIDs(targets)
	m.clock = m.clock.Add(time.Minute)
	existing.UpdatedAt = m.clock
	return true, nil
}

func (m *mockNoticeRepo) SetActive(_ context.Context, id int, active bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return false, m.failAll
	}
	existing, ok := m.notices[id]
	if !ok {
		return false, nil
	}
	existing.IsActive = active
	return true, nil
}

func (m *mockNoticeRepo) Delete(_ context.Context, id int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return false, m.failAll
	}
	if _, ok := m.notices[id]; !ok {
		return false, nil
	}
	delete(m.notices, id)
	return true, nil
}

func (m *mockNoticeRepo) GetByID(_ context.Context, id int) (*model.EmergencyNotice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	n, ok := m.notices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *mockNoticeRepo) ListRecent(_ context.Context, limit int) ([]model.EmergencyNotice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.failAll != nil {
		return nil, m.failAll
	}
	result := m.snapshot(func(*model.EmergencyNotice) bool { return true })
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].IsActive && !result[j].IsActive
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockNoticeRepo) ListActive(_ context.Context) ([]model.EmergencyNotice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeCalls++
	if m.failAll != nil {
		return nil, m.failAll
	}
	if m.failActive != nil {
		return nil, m.failActive
	}
	result := m.snapshot(func(n *model.EmergencyNotice) bool { return n.IsActive })
	model.SortNotices(result)
	return result, nil
}

func (m *mockNoticeRepo) ListActiveForDepartment(_ context.Context, departmentID int) ([]model.EmergencyNotice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	if err := m.failDept[departmentID]; err != nil {
		return nil, err
	}
	result := m.snapshot(func(n *model.EmergencyNotice) bool {
		if !n.IsActive {
			return false
		}
		if departmentID == 0 {
			return n.IsAllDepartments
		}
		return n.VisibleTo(departmentID)
	})
	model.SortNotices(result)
	return result, nil
}

// snapshot 调用方需持有锁
func (m *mockNoticeRepo) snapshot(keep func(*model.EmergencyNotice) bool) []model.EmergencyNotice {
	result := make([]model.EmergencyNotice, 0, len(m.notices))
	for _, n := range m.notices {
		if keep(n) {
			result = append(result, *n)
		}
	}
	return result
}

// ── Mock DepartmentRepository ──

type mockDeptRepo struct {
	names map[int]string
	err   error
}

func newMockDeptRepo() *mockDeptRepo {
	return &mockDeptRepo{names: map[int]string{
		1: "ER",
		4: "病棟4F",
		7: "外来",
		9: "放射線科",
	}}
}

func (m *mockDeptRepo) NamesByID(_ context.Context) (map[int]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	cp := make(map[int]string, len(m.names))
	for k, v := range m.names {
		cp[k] = v
	}
	return cp, nil
}

// ── Mock Broadcaster / Publisher ──

type mockBroadcaster struct {
	mu      sync.Mutex
	reasons []string
}

func (m *mockBroadcaster) NotifyNoticesChanged(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reasons = append(m.reasons, reason)
}

func (m *mockBroadcaster) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.reasons...)
}

type mockPublisher struct {
	mu        sync.Mutex
	published [][]model.EmergencyNotice
	err       error
}

func (m *mockPublisher) PublishActiveNotices(_ context.Context, notices []model.EmergencyNotice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, notices)
	return nil
}

func (m *mockPublisher) last() ([]model.EmergencyNotice, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.published) == 0 {
		return nil, 0
	}
	return m.published[len(m.published)-1], len(m.published)
}

// ── 测试辅助 ──

func newTestRepo() (*repository.Repository, *mockNoticeRepo, *mockDeptRepo) {
	noticeRepo := newMockNoticeRepo()
	deptRepo := newMockDeptRepo()
	return &repository.Repository{
		Notice:     noticeRepo,
		Department: deptRepo,
	}, noticeRepo, deptRepo
}
