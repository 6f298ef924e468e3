package reconcile

import (
	"sort"

	"github.com/google/uuid"

	"github.com/antoninfaure/occupancy-scraper/internal/calendar"
	"github.com/antoninfaure/occupancy-scraper/internal/model"
	"github.com/antoninfaure/occupancy-scraper/internal/normalize"
)

// BookingInput 课程预订推导的输入
type BookingInput struct {
	Occurrences []calendar.TaggedOccurrence
	// Schedules 已持久化的课程安排（任意 available）
	Schedules []model.CourseSchedule
	// Rooms 已持久化的教室，只有有效教室参与解析
	Rooms    []model.Room
	Bookings []model.CourseBooking
	Maps     *normalize.Maps
	// Excluded 被行政豁免的课程：其安排与预订本次一律不动
	Excluded func(courseID string) bool
}

// BookingPlan 课程预订推导结果
type BookingPlan struct {
	Create     []model.CourseBooking
	Reactivate []model.CourseBooking
	SoftDelete []model.CourseBooking
	Unchanged  int
	// Unresolved 无法解析到有效教室的房间标签（诊断用，去重）
	Unresolved []string
	// MissingSchedules 找不到有效课程安排的 Occurrence 数
	MissingSchedules int
}

// Plan 转换为通用对账计划，以便复用 Apply
func (p BookingPlan) Plan() Plan[model.BookingKey, model.CourseBooking] {
	return Plan[model.BookingKey, model.CourseBooking]{
		Create:     p.Create,
		Reactivate: p.Reactivate,
		SoftDelete: p.SoftDelete,
	}
}

// DeriveBookings 推导课程 × 教室预订的变化
//
// 外层：Occurrence 按自然键匹配到有效的课程安排（安排已在上游对账）。
// 内层：对每个安排，新教室集合与该安排现有预订集合做成员差分，
// 不触碰其他安排的预订。安排已软删除或不存在的有效预订视为孤儿一并软删除。
func DeriveBookings(in BookingInput) BookingPlan {
	var plan BookingPlan
	excluded := in.Excluded
	if excluded == nil {
		excluded = func(string) bool { return false }
	}

	roomByName := make(map[string]string, len(in.Rooms))
	for _, r := range in.Rooms {
		if r.Available {
			roomByName[r.Name] = r.RoomID
		}
	}

	scheduleByKey := make(map[model.ScheduleKey]model.CourseSchedule, len(in.Schedules))
	scheduleByID := make(map[string]model.CourseSchedule, len(in.Schedules))
	for _, s := range in.Schedules {
		scheduleByID[s.ScheduleID] = s
		if s.Available {
			scheduleByKey[s.Key()] = s
		}
	}

	// 每个安排的新教室集合（保持首次出现顺序）
	targets := make(map[string][]string)
	targetOrder := make([]string, 0)
	seenRoom := make(map[model.BookingKey]struct{})
	unresolved := make(map[string]struct{})

	for _, occ := range in.Occurrences {
		if excluded(occ.CourseID) {
			continue
		}
		s, ok := scheduleByKey[model.NewScheduleKey(occ.CourseID, occ.Start, occ.End, occ.Label)]
		if !ok {
			plan.MissingSchedules++
			continue
		}
		if _, ok := targets[s.ScheduleID]; !ok {
			targets[s.ScheduleID] = []string{}
			targetOrder = append(targetOrder, s.ScheduleID)
		}
		for _, roomID := range resolveRooms(occ.Rooms, roomByName, in.Maps, unresolved) {
			k := model.BookingKey{ScheduleID: s.ScheduleID, RoomID: roomID}
			if _, dup := seenRoom[k]; dup {
				continue
			}
			seenRoom[k] = struct{}{}
			targets[s.ScheduleID] = append(targets[s.ScheduleID], roomID)
		}
	}

	// 现有预订按安排分组，同一 (安排, 教室) 优先取有效记录
	existing := make(map[string]map[string]model.CourseBooking)
	var existingOrder []model.BookingKey
	for _, b := range in.Bookings {
		group, ok := existing[b.ScheduleID]
		if !ok {
			group = make(map[string]model.CourseBooking)
			existing[b.ScheduleID] = group
		}
		prev, seen := group[b.RoomID]
		if !seen {
			existingOrder = append(existingOrder, b.Key())
			group[b.RoomID] = b
			continue
		}
		if !prev.Available && b.Available {
			group[b.RoomID] = b
		}
	}

	// 内层成员差分
	for _, scheduleID := range targetOrder {
		rooms := targets[scheduleID]
		group := existing[scheduleID]
		for _, roomID := range rooms {
			b, ok := group[roomID]
			switch {
			case !ok:
				plan.Create = append(plan.Create, model.CourseBooking{
					BookingID:  uuid.NewString(),
					ScheduleID: scheduleID,
					RoomID:     roomID,
					Lifecycle:  model.Live(),
				})
			case b.Available:
				plan.Unchanged++
			default:
				plan.Reactivate = append(plan.Reactivate, b)
			}
		}
	}

	// 软删除：本次出现的安排中已移除的教室，以及孤儿预订
	for _, k := range existingOrder {
		b := existing[k.ScheduleID][k.RoomID]
		if !b.Available {
			continue
		}
		if rooms, touched := targets[k.ScheduleID]; touched {
			if !contains(rooms, k.RoomID) {
				plan.SoftDelete = append(plan.SoftDelete, b)
			}
			continue
		}
		s, known := scheduleByID[k.ScheduleID]
		if known && s.Available {
			// 安排仍有效但本次未出现：不在本次范围内
			continue
		}
		if known && excluded(s.CourseID) {
			continue
		}
		plan.SoftDelete = append(plan.SoftDelete, b)
	}

	for token := range unresolved {
		plan.Unresolved = append(plan.Unresolved, token)
	}
	sort.Strings(plan.Unresolved)

	return plan
}

// resolveRooms 房间标签 → 有效教室标识；先经规范化映射展开，再按规范名查找
// 内置别名表的目标名不再是别名键，对已展开的标签重复展开结果不变
func resolveRooms(tokens []string, byName map[string]string, maps *normalize.Maps, unresolved map[string]struct{}) []string {
	var out []string
	for _, token := range tokens {
		names := []string{token}
		if maps != nil {
			names = maps.ExpandRoom(token)
		}
		for _, name := range names {
			if id, ok := byName[name]; ok {
				out = append(out, id)
			} else {
				unresolved[name] = struct{}{}
			}
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
