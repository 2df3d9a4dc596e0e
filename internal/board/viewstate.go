package board

import (
	"sort"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dustin/go-humanize"

	"keijiban/backend/internal/model"
)

// 更新来源
const (
	SourcePoll = "poll"
	SourcePush = "push"
)

// Snapshot ViewState 的只读快照
type Snapshot struct {
	Notices    []model.EmergencyNotice
	Marquee    string
	Emergency  bool // 存在有效联络事项（看板表头切换为紧急配色）
	LastSynced time.Time
	Source     string
}

// ViewState 看板显示状态
// 轮询结果与 Hub 推送可能同时到达，所有写入经同一把锁串行化，最后一次写入生效
type ViewState struct {
	mu     sync.Mutex
	scopes mapset.Set[int]
	snap   Snapshot
	now    func() time.Time
}

// NewViewState 创建 ViewState；scopeIDs 中的 0 与负数被忽略
func NewViewState(scopeIDs ...int) *ViewState {
	return &ViewState{
		scopes: mapset.NewSet[int](model.NormalizeIDs(scopeIDs)...),
		snap:   Snapshot{Notices: []model.EmergencyNotice{}},
		now:    time.Now,
	}
}

// Apply 以一份联络事项列表替换当前状态，返回显示文本是否变化
//   - 仅保留有效、且对看板任一部署可见的联络事项
//   - 轮询结果已由服务端按部署过滤，推送为全局列表，两者统一在此过滤
func (v *ViewState) Apply(notices []model.EmergencyNotice, source string) bool {
	visible := make([]model.EmergencyNotice, 0, len(notices))
	seen := make(map[int]struct{}, len(notices))
	for _, n := range notices {
		if !n.IsActive || !v.visible(&n) {
			continue
		}
		if _, dup := seen[n.ID]; dup {
			continue
		}
		seen[n.ID] = struct{}{}
		visible = append(visible, n)
	}
	model.SortNotices(visible)
	marquee := model.CombineContent(visible)

	v.mu.Lock()
	defer v.mu.Unlock()
	changed := marquee != v.snap.Marquee
	v.snap = Snapshot{
		Notices:    visible,
		Marquee:    marquee,
		Emergency:  len(visible) > 0,
		LastSynced: v.now(),
		Source:     source,
	}
	return changed
}

// Snapshot 返回当前状态的副本
func (v *ViewState) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.snap
	s.Notices = append([]model.EmergencyNotice(nil), v.snap.Notices...)
	return s
}

// Scopes 看板关注的部署（升序）
func (v *ViewState) Scopes() []int {
	ids := v.scopes.ToSlice()
	sort.Ints(ids)
	return ids
}

// SyncedAgo 距上次同步的可读描述；尚未同步时返回 "never"
func (v *ViewState) SyncedAgo() string {
	v.mu.Lock()
	last := v.snap.LastSynced
	v.mu.Unlock()
	if last.IsZero() {
		return "never"
	}
	return humanize.RelTime(last, v.now(), "ago", "from now")
}

// visible 全部署联络事项对所有看板可见，指定部署的需与看板部署有交集
func (v *ViewState) visible(n *model.EmergencyNotice) bool {
	if n.IsAllDepartments {
		return true
	}
	for _, id := range n.TargetDepartments {
		if v.scopes.Contains(id) {
			return true
		}
	}
	return false
}
