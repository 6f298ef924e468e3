package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/antoninfaure/occupancy-scraper/internal/model"
	"github.com/antoninfaure/occupancy-scraper/internal/repository"
)

// ── 通用内存表 ──

// table 以切片保存行，BatchCreate 按自然键忽略冲突（与 ON CONFLICT DO NOTHING 一致）
type table[E any] struct {
	rows   []E
	id     func(E) string
	key    func(E) string
	life   func(*E) *model.Lifecycle
	writes int // 实际发出的写操作次数
}

func newTable[E any](id, key func(E) string, life func(*E) *model.Lifecycle) *table[E] {
	return &table[E]{id: id, key: key, life: life}
}

func (t *table[E]) BatchCreate(_ context.Context, rows []E) (int64, error) {
	t.writes++
	var n int64
	for _, r := range rows {
		if t.hasKey(t.key(r)) {
			continue
		}
		t.rows = append(t.rows, r)
		n++
	}
	return n, nil
}

func (t *table[E]) SetAvailable(_ context.Context, ids []string, available bool) error {
	t.writes++
	set := toSet(ids)
	for i := range t.rows {
		if _, ok := set[t.id(t.rows[i])]; ok {
			t.life(&t.rows[i]).Available = available
		}
	}
	return nil
}

func (t *table[E]) hasKey(k string) bool {
	for _, r := range t.rows {
		if t.key(r) == k {
			return true
		}
	}
	return false
}

func (t *table[E]) filter(keep func(E) bool) []E {
	var out []E
	for _, r := range t.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func (t *table[E]) live() []E {
	return t.filter(func(e E) bool { return t.life(&e).Available })
}

func (t *table[E]) find(id string) (*E, bool) {
	for i := range t.rows {
		if t.id(t.rows[i]) == id {
			return &t.rows[i], true
		}
	}
	return nil, false
}

// ── Mock CourseRepository ──

type mockCourseRepo struct {
	*table[model.Course]
	teacherWrites int
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{table: newTable(
		func(c model.Course) string { return c.CourseID },
		func(c model.Course) string { return c.Code },
		func(c *model.Course) *model.Lifecycle { return &c.Lifecycle },
	)}
}

func (m *mockCourseRepo) ListAll(_ context.Context) ([]model.Course, error) {
	return m.filter(func(model.Course) bool { return true }), nil
}

func (m *mockCourseRepo) ListByIDs(_ context.Context, ids []string) ([]model.Course, error) {
	set := toSet(ids)
	return m.filter(func(c model.Course) bool {
		_, ok := set[c.CourseID]
		return ok
	}), nil
}

func (m *mockCourseRepo) SetTeachers(_ context.Context, courseID string, teacherIDs []string) error {
	c, ok := m.find(courseID)
	if !ok {
		return fmt.Errorf("课程 %s 不存在", courseID)
	}
	m.teacherWrites++
	c.TeacherIDs = model.StringArray(append([]string{}, teacherIDs...))
	return nil
}

func (m *mockCourseRepo) byCode(code string) (model.Course, bool) {
	for _, c := range m.rows {
		if c.Code == code {
			return c, true
		}
	}
	return model.Course{}, false
}

// ── Mock TeacherRepository ──

type mockTeacherRepo struct{ *table[model.Teacher] }

func newMockTeacherRepo() *mockTeacherRepo {
	return &mockTeacherRepo{table: newTable(
		func(t model.Teacher) string { return t.TeacherID },
		func(t model.Teacher) string { return t.Name },
		func(t *model.Teacher) *model.Lifecycle { return &t.Lifecycle },
	)}
}

func (m *mockTeacherRepo) ListAll(_ context.Context) ([]model.Teacher, error) {
	return m.filter(func(model.Teacher) bool { return true }), nil
}

// ── Mock UnitRepository ──

type mockUnitRepo struct{ *table[model.Unit] }

func newMockUnitRepo() *mockUnitRepo {
	return &mockUnitRepo{table: newTable(
		func(u model.Unit) string { return u.UnitID },
		func(u model.Unit) string { return u.Name },
		func(u *model.Unit) *model.Lifecycle { return &u.Lifecycle },
	)}
}

func (m *mockUnitRepo) ListAll(_ context.Context) ([]model.Unit, error) {
	return m.filter(func(model.Unit) bool { return true }), nil
}

// ── Mock SemesterRepository ──

type mockSemesterRepo struct {
	semesters map[string]*model.Semester // 以 name 为键
}

func newMockSemesterRepo() *mockSemesterRepo {
	return &mockSemesterRepo{semesters: make(map[string]*model.Semester)}
}

func (m *mockSemesterRepo) List(_ context.Context) ([]model.Semester, error) {
	var out []model.Semester
	for _, s := range m.semesters {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (m *mockSemesterRepo) GetByName(_ context.Context, name string) (*model.Semester, error) {
	if s, ok := m.semesters[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("学期 %s 不存在", name)
}

func (m *mockSemesterRepo) Upsert(_ context.Context, semester *model.Semester) error {
	if prev, ok := m.semesters[semester.Name]; ok {
		semester.SemesterID = prev.SemesterID
	}
	cp := *semester
	m.semesters[semester.Name] = &cp
	return nil
}

func (m *mockSemesterRepo) add(name string, typ model.SemesterType, start, end time.Time) *model.Semester {
	s := &model.Semester{
		SemesterID: "sem-" + name,
		Name:       name,
		StartDate:  start,
		EndDate:    end,
		Type:       typ,
		Lifecycle:  model.Live(),
	}
	m.semesters[name] = s
	return s
}

// ── Mock StudyPlanRepository ──

type mockStudyPlanRepo struct{ *table[model.StudyPlan] }

func newMockStudyPlanRepo() *mockStudyPlanRepo {
	return &mockStudyPlanRepo{table: newTable(
		func(p model.StudyPlan) string { return p.StudyPlanID },
		func(p model.StudyPlan) string { return p.UnitID + "|" + p.SemesterID },
		func(p *model.StudyPlan) *model.Lifecycle { return &p.Lifecycle },
	)}
}

func (m *mockStudyPlanRepo) ListBySemesters(_ context.Context, semesterIDs []string) ([]model.StudyPlan, error) {
	set := toSet(semesterIDs)
	return m.filter(func(p model.StudyPlan) bool {
		_, ok := set[p.SemesterID]
		return ok
	}), nil
}

// ── Mock PlannedInRepository ──

type mockPlannedInRepo struct {
	*table[model.PlannedIn]
	plans *mockStudyPlanRepo
	units *mockUnitRepo
}

func newMockPlannedInRepo(plans *mockStudyPlanRepo, units *mockUnitRepo) *mockPlannedInRepo {
	return &mockPlannedInRepo{
		table: newTable(
			func(p model.PlannedIn) string { return p.PlannedInID },
			func(p model.PlannedIn) string { return p.StudyPlanID + "|" + p.CourseID },
			func(p *model.PlannedIn) *model.Lifecycle { return &p.Lifecycle },
		),
		plans: plans,
		units: units,
	}
}

func (m *mockPlannedInRepo) ListByStudyPlans(_ context.Context, ids []string) ([]model.PlannedIn, error) {
	set := toSet(ids)
	return m.filter(func(p model.PlannedIn) bool {
		_, ok := set[p.StudyPlanID]
		return ok
	}), nil
}

func (m *mockPlannedInRepo) CourseIDsBySemesters(_ context.Context, semesterIDs []string) ([]string, error) {
	sems := toSet(semesterIDs)
	return m.courseIDs(func(sp model.StudyPlan, p model.PlannedIn) bool {
		_, ok := sems[sp.SemesterID]
		return ok && sp.Available && p.Available
	}), nil
}

func (m *mockPlannedInRepo) CourseIDsByUnitSection(_ context.Context, section string, semesterIDs []string) ([]string, error) {
	if section == "" {
		return nil, nil
	}
	sems := toSet(semesterIDs)
	return m.courseIDs(func(sp model.StudyPlan, _ model.PlannedIn) bool {
		if _, ok := sems[sp.SemesterID]; !ok {
			return false
		}
		u, ok := m.units.find(sp.UnitID)
		return ok && u.Section == section
	}), nil
}

func (m *mockPlannedInRepo) courseIDs(keep func(model.StudyPlan, model.PlannedIn) bool) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, p := range m.rows {
		sp, ok := m.plans.find(p.StudyPlanID)
		if !ok || !keep(*sp, p) {
			continue
		}
		if _, dup := seen[p.CourseID]; dup {
			continue
		}
		seen[p.CourseID] = struct{}{}
		out = append(out, p.CourseID)
	}
	return out
}

// ── Mock ScheduleRepository ──

type mockScheduleRepo struct{ *table[model.CourseSchedule] }

func newMockScheduleRepo() *mockScheduleRepo {
	return &mockScheduleRepo{table: newTable(
		func(s model.CourseSchedule) string { return s.ScheduleID },
		func(s model.CourseSchedule) string { return fmt.Sprint(s.Key()) },
		func(s *model.CourseSchedule) *model.Lifecycle { return &s.Lifecycle },
	)}
}

func (m *mockScheduleRepo) ListByCourses(_ context.Context, courseIDs []string) ([]model.CourseSchedule, error) {
	set := toSet(courseIDs)
	return m.filter(func(s model.CourseSchedule) bool {
		_, ok := set[s.CourseID]
		return ok
	}), nil
}

func (m *mockScheduleRepo) ListByIDs(_ context.Context, ids []string) ([]model.CourseSchedule, error) {
	set := toSet(ids)
	return m.filter(func(s model.CourseSchedule) bool {
		_, ok := set[s.ScheduleID]
		return ok
	}), nil
}

// ── Mock RoomRepository ──

type mockRoomRepo struct {
	*table[model.Room]
	geometryWrites int
}

func newMockRoomRepo() *mockRoomRepo {
	return &mockRoomRepo{table: newTable(
		func(r model.Room) string { return r.RoomID },
		func(r model.Room) string { return r.Name },
		func(r *model.Room) *model.Lifecycle { return &r.Lifecycle },
	)}
}

func (m *mockRoomRepo) ListAll(_ context.Context) ([]model.Room, error) {
	return m.filter(func(model.Room) bool { return true }), nil
}

func (m *mockRoomRepo) ListAvailable(_ context.Context) ([]model.Room, error) {
	return m.live(), nil
}

func (m *mockRoomRepo) UpdateGeometry(_ context.Context, room *model.Room) error {
	r, ok := m.find(room.RoomID)
	if !ok {
		return fmt.Errorf("教室 %s 不存在", room.RoomID)
	}
	m.geometryWrites++
	r.Type, r.Link, r.Latitude, r.Longitude = room.Type, room.Link, room.Latitude, room.Longitude
	if room.Capacity != nil {
		r.Capacity = room.Capacity
	}
	if room.Level != nil {
		r.Level = room.Level
	}
	return nil
}

func (m *mockRoomRepo) byName(name string) (model.Room, bool) {
	for _, r := range m.rows {
		if r.Name == name {
			return r, true
		}
	}
	return model.Room{}, false
}

// ── Mock BookingRepository ──

type mockBookingRepo struct{ *table[model.CourseBooking] }

func newMockBookingRepo() *mockBookingRepo {
	return &mockBookingRepo{table: newTable(
		func(b model.CourseBooking) string { return b.BookingID },
		func(b model.CourseBooking) string { return b.ScheduleID + "|" + b.RoomID },
		func(b *model.CourseBooking) *model.Lifecycle { return &b.Lifecycle },
	)}
}

func (m *mockBookingRepo) ListAvailable(_ context.Context) ([]model.CourseBooking, error) {
	return m.live(), nil
}

func (m *mockBookingRepo) ListBySchedules(_ context.Context, ids []string) ([]model.CourseBooking, error) {
	set := toSet(ids)
	return m.filter(func(b model.CourseBooking) bool {
		_, ok := set[b.ScheduleID]
		return ok
	}), nil
}

// ── Mock EventBookingRepository ──

type mockEventBookingRepo struct{ *table[model.EventBooking] }

func newMockEventBookingRepo() *mockEventBookingRepo {
	return &mockEventBookingRepo{table: newTable(
		func(e model.EventBooking) string { return e.EventBookingID },
		func(e model.EventBooking) string { return fmt.Sprint(e.Key()) },
		func(e *model.EventBooking) *model.Lifecycle { return &e.Lifecycle },
	)}
}

func (m *mockEventBookingRepo) ListByRoomsInRange(_ context.Context, roomIDs []string, from, to time.Time) ([]model.EventBooking, error) {
	set := toSet(roomIDs)
	return m.filter(func(e model.EventBooking) bool {
		_, ok := set[e.RoomID]
		return ok && e.StartDatetime.Before(to) && e.EndDatetime.After(from)
	}), nil
}

// ── 聚合 ──

type mockStore struct {
	repo      *repository.Repository
	course    *mockCourseRepo
	teacher   *mockTeacherRepo
	unit      *mockUnitRepo
	semester  *mockSemesterRepo
	studyPlan *mockStudyPlanRepo
	plannedIn *mockPlannedInRepo
	schedule  *mockScheduleRepo
	room      *mockRoomRepo
	booking   *mockBookingRepo
	event     *mockEventBookingRepo
}

func newMockStore() *mockStore {
	units := newMockUnitRepo()
	plans := newMockStudyPlanRepo()
	st := &mockStore{
		course:    newMockCourseRepo(),
		teacher:   newMockTeacherRepo(),
		unit:      units,
		semester:  newMockSemesterRepo(),
		studyPlan: plans,
		plannedIn: newMockPlannedInRepo(plans, units),
		schedule:  newMockScheduleRepo(),
		room:      newMockRoomRepo(),
		booking:   newMockBookingRepo(),
		event:     newMockEventBookingRepo(),
	}
	st.repo = &repository.Repository{
		Course:       st.course,
		Teacher:      st.teacher,
		Unit:         st.unit,
		Semester:     st.semester,
		StudyPlan:    st.studyPlan,
		PlannedIn:    st.plannedIn,
		Schedule:     st.schedule,
		Room:         st.room,
		Booking:      st.booking,
		EventBooking: st.event,
	}
	return st
}

// writes 所有表写操作次数之和
func (st *mockStore) writes() int {
	return st.course.writes + st.course.teacherWrites + st.teacher.writes + st.unit.writes +
		st.studyPlan.writes + st.plannedIn.writes + st.schedule.writes +
		st.room.writes + st.room.geometryWrites + st.booking.writes + st.event.writes
}
