package dto

import (
	"sort"
	"time"

	"github.com/antoninfaure/occupancy-scraper/internal/fetch"
	"github.com/antoninfaure/occupancy-scraper/internal/reconcile"
)

// ── 同步模块 ──

// SyncKind 同步任务类型
type SyncKind string

const (
	SyncCourses   SyncKind = "courses"
	SyncSchedules SyncKind = "schedules"
	SyncRooms     SyncKind = "rooms"
	SyncEvents    SyncKind = "events"
)

// SyncReport 一次同步的执行报告
type SyncReport struct {
	Kind       SyncKind                    `json:"kind"`
	StartedAt  time.Time                   `json:"started_at"`
	FinishedAt time.Time                   `json:"finished_at"`
	Duration   string                      `json:"duration"`
	Results    map[string]reconcile.Result `json:"results"`
	// Diagnostics 诊断计数（跳过的记录、更新的关联等），键为原因
	Diagnostics map[string]int `json:"diagnostics,omitempty"`
	// Unresolved 无法解析到有效教室的房间名
	Unresolved []string     `json:"unresolved,omitempty"`
	Fetch      *fetch.Stats `json:"fetch,omitempty"`
}

// NewSyncReport 创建报告并记录开始时间
func NewSyncReport(kind SyncKind) *SyncReport {
	return &SyncReport{
		Kind:      kind,
		StartedAt: time.Now(),
		Results:   make(map[string]reconcile.Result),
	}
}

// Record 记录某一实体的对账结果，同一实体多次记录时累加
func (r *SyncReport) Record(entity string, res reconcile.Result) {
	cur := r.Results[entity]
	cur.Add(res)
	r.Results[entity] = cur
}

// Note 诊断计数加 n
func (r *SyncReport) Note(reason string, n int) {
	if n == 0 {
		return
	}
	if r.Diagnostics == nil {
		r.Diagnostics = make(map[string]int)
	}
	r.Diagnostics[reason] += n
}

// AddUnresolved 合并未解析的房间名，结果去重排序
func (r *SyncReport) AddUnresolved(names ...string) {
	if len(names) == 0 {
		return
	}
	seen := make(map[string]struct{}, len(r.Unresolved)+len(names))
	merged := make([]string, 0, len(r.Unresolved)+len(names))
	for _, n := range append(r.Unresolved, names...) {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		merged = append(merged, n)
	}
	sort.Strings(merged)
	r.Unresolved = merged
}

// Finish 记录结束时间
func (r *SyncReport) Finish() *SyncReport {
	r.FinishedAt = time.Now()
	r.Duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
	return r
}

// EventSyncRequest 事件同步请求（POST /sync/events），日期格式 2006-01-02
type EventSyncRequest struct {
	From string `json:"from" binding:"omitempty,datetime=2006-01-02"`
	To   string `json:"to"   binding:"omitempty,datetime=2006-01-02"`
}
