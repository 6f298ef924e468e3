// Package calendar 负责学期解析与课表展开：
// 把周课表模板或带日期的课表行统一转换为具体的 Occurrence。
package calendar

import (
	"time"

	"github.com/antoninfaure/occupancy-scraper/internal/model"
	"github.com/antoninfaure/occupancy-scraper/internal/normalize"
	apperrors "github.com/antoninfaure/occupancy-scraper/pkg/errors"
)

// Kind 原始课表形态
type Kind int

const (
	// KindWeekly 周模板：需要学期窗口才能展开
	KindWeekly Kind = iota + 1
	// KindDated 已带日期的行（博士院课表），同 (start,end,label) 的行需合并
	KindDated
)

func (k Kind) String() string {
	switch k {
	case KindWeekly:
		return "weekly"
	case KindDated:
		return "dated"
	}
	return "unknown"
}

// WeeklySlot 周模板中的一个时段
type WeeklySlot struct {
	Weekday       int // 0=周一 .. 6=周日
	StartHour     int
	DurationHours int
	Label         string
	Rooms         []string
}

// DatedRow 带日期的课表行
type DatedRow struct {
	Start time.Time
	End   time.Time
	Label string
	Rooms []string
}

// RawSchedule 原始课表（标签联合体），按 Kind 只使用对应字段
type RawSchedule struct {
	Kind   Kind
	Weekly []WeeklySlot
	Dated  []DatedRow
}

// Weekly 构造周模板课表
func Weekly(slots ...WeeklySlot) RawSchedule {
	return RawSchedule{Kind: KindWeekly, Weekly: slots}
}

// Dated 构造带日期课表
func Dated(rows ...DatedRow) RawSchedule {
	return RawSchedule{Kind: KindDated, Dated: rows}
}

// Occurrence 一次具体的上课时间，是下游唯一可见的形态
type Occurrence struct {
	Start time.Time
	End   time.Time
	Label string
	Rooms []string
}

// TaggedOccurrence 带课程标识的 Occurrence（抓取编排器的输出）
type TaggedOccurrence struct {
	CourseID string
	Occurrence
}

// Window 学期展开窗口，Start/End 为闭区间日历日
type Window struct {
	Start     time.Time
	End       time.Time
	SkipDates []time.Time
	Location  *time.Location
}

// WindowOf 由学期构造展开窗口；学期为 nil 时返回 nil
// 学期日期按其自身日历日解释，再放到 loc 时区的零点
func WindowOf(s *model.Semester, loc *time.Location) *Window {
	if s == nil {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	w := &Window{
		Start:    midnight(s.StartDate, loc),
		End:      midnight(s.EndDate, loc),
		Location: loc,
	}
	for _, d := range s.SkipDates {
		w.SkipDates = append(w.SkipDates, midnight(d, loc))
	}
	return w
}

func midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Expander 课表规范化与展开
type Expander struct {
	maps *normalize.Maps
}

// NewExpander 创建 Expander 实例
func NewExpander(maps *normalize.Maps) *Expander {
	return &Expander{maps: maps}
}

// Normalize 标签与房间名经过规范化映射；房间为空的日期行被丢弃
func (e *Expander) Normalize(raw RawSchedule) RawSchedule {
	out := RawSchedule{Kind: raw.Kind}
	switch raw.Kind {
	case KindWeekly:
		out.Weekly = make([]WeeklySlot, 0, len(raw.Weekly))
		for _, s := range raw.Weekly {
			s.Label = e.maps.Label(s.Label)
			s.Rooms = e.maps.ExpandRooms(s.Rooms)
			out.Weekly = append(out.Weekly, s)
		}
	case KindDated:
		out.Dated = make([]DatedRow, 0, len(raw.Dated))
		for _, r := range raw.Dated {
			r.Label = e.maps.Label(r.Label)
			r.Rooms = e.maps.ExpandRooms(r.Rooms)
			if len(r.Rooms) == 0 {
				continue
			}
			out.Dated = append(out.Dated, r)
		}
	}
	return out
}

// Expand 规范化后展开为 Occurrence 列表
// 周模板缺少窗口时返回 *MissingContextError；日期行可不带窗口
func (e *Expander) Expand(raw RawSchedule, w *Window) ([]Occurrence, error) {
	raw = e.Normalize(raw)
	switch raw.Kind {
	case KindWeekly:
		if w == nil {
			return nil, apperrors.NewMissingContext("expand", "周课表展开需要学期窗口")
		}
		return expandWeekly(raw.Weekly, w), nil
	case KindDated:
		return mergeDated(raw.Dated), nil
	}
	return []Occurrence{}, nil
}

// expandWeekly 遍历 [Start, End] 每一天，跳过 SkipDates，按星期匹配时段
func expandWeekly(slots []WeeklySlot, w *Window) []Occurrence {
	out := []Occurrence{}
	if len(slots) == 0 {
		return out
	}
	loc := w.Location
	if loc == nil {
		loc = time.UTC
	}

	skip := make(map[int]struct{}, len(w.SkipDates))
	for _, d := range w.SkipDates {
		skip[civilDay(d)] = struct{}{}
	}

	end := civilDay(w.End)
	for d := midnight(w.Start, loc); civilDay(d) <= end; d = d.AddDate(0, 0, 1) {
		if _, ok := skip[civilDay(d)]; ok {
			continue
		}
		weekday := (int(d.Weekday()) + 6) % 7
		for _, s := range slots {
			if s.Weekday != weekday {
				continue
			}
			start := time.Date(d.Year(), d.Month(), d.Day(), s.StartHour, 0, 0, 0, loc)
			out = append(out, Occurrence{
				Start: start,
				End:   start.Add(time.Duration(s.DurationHours) * time.Hour),
				Label: s.Label,
				Rooms: append([]string(nil), s.Rooms...),
			})
		}
	}
	return out
}

type datedKey struct {
	start int64
	end   int64
	label string
}

// mergeDated 按 (start, end, label) 合并日期行，保留首次出现顺序，房间追加不去重
func mergeDated(rows []DatedRow) []Occurrence {
	out := []Occurrence{}
	index := make(map[datedKey]int, len(rows))
	for _, r := range rows {
		k := datedKey{start: r.Start.Unix(), end: r.End.Unix(), label: r.Label}
		if i, ok := index[k]; ok {
			out[i].Rooms = append(out[i].Rooms, r.Rooms...)
			continue
		}
		index[k] = len(out)
		out = append(out, Occurrence{
			Start: r.Start,
			End:   r.End,
			Label: r.Label,
			Rooms: append([]string(nil), r.Rooms...),
		})
	}
	return out
}
