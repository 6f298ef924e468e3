package calendar

import (
	"sort"
	"time"

	"github.com/antoninfaure/occupancy-scraper/internal/model"
)

// civilDay 将时间折算为其自身时区下的日历日（yyyymmdd），用于只比较日期
func civilDay(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// ResolveCurrentOrNext 选出“当前或下一个”学期，纯函数，不访问存储
//
// 指定类型：该类型中 end_date >= today 且结束最早的学期。
// 未指定类型：非 year 学期中包含 today 的学期；没有则取 start_date >= today 中开始最早的。
// 没有符合条件的学期时返回 nil。相同日期按名称排序以保证结果确定。
func ResolveCurrentOrNext(semesters []model.Semester, typ *model.SemesterType, today time.Time) *model.Semester {
	day := civilDay(today)

	if typ != nil {
		candidates := filter(semesters, func(s model.Semester) bool {
			return s.Type == *typ && civilDay(s.EndDate) >= day
		})
		return first(candidates, func(a, b model.Semester) bool {
			return civilDay(a.EndDate) < civilDay(b.EndDate)
		})
	}

	current := filter(semesters, func(s model.Semester) bool {
		return s.Type != model.SemesterYear &&
			civilDay(s.StartDate) <= day && civilDay(s.EndDate) >= day
	})
	if s := first(current, func(a, b model.Semester) bool {
		return civilDay(a.EndDate) < civilDay(b.EndDate)
	}); s != nil {
		return s
	}

	upcoming := filter(semesters, func(s model.Semester) bool {
		return s.Type != model.SemesterYear && civilDay(s.StartDate) >= day
	})
	return first(upcoming, func(a, b model.Semester) bool {
		return civilDay(a.StartDate) < civilDay(b.StartDate)
	})
}

// Today 返回指定时区的当前时间
func Today(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Now().In(loc)
}

func filter(in []model.Semester, keep func(model.Semester) bool) []model.Semester {
	var out []model.Semester
	for _, s := range in {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// first 按 less 排序后返回首项的副本，less 相等时按名称
func first(in []model.Semester, less func(a, b model.Semester) bool) *model.Semester {
	if len(in) == 0 {
		return nil
	}
	sort.SliceStable(in, func(i, j int) bool {
		if less(in[i], in[j]) {
			return true
		}
		if less(in[j], in[i]) {
			return false
		}
		return in[i].Name < in[j].Name
	})
	s := in[0]
	return &s
}
