package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/antoninfaure/occupancy-scraper/internal/calendar"
	"github.com/antoninfaure/occupancy-scraper/internal/dto"
	"github.com/antoninfaure/occupancy-scraper/internal/fetch"
	"github.com/antoninfaure/occupancy-scraper/internal/model"
	"github.com/antoninfaure/occupancy-scraper/internal/normalize"
	"github.com/antoninfaure/occupancy-scraper/internal/reconcile"
	"github.com/antoninfaure/occupancy-scraper/internal/repository"
	apperrors "github.com/antoninfaure/occupancy-scraper/pkg/errors"
)

const (
	diagNoYearSemester     = "year_semester_not_resolved"
	diagMissingSchedule    = "occurrence_without_schedule"
	diagCourseWithoutURL   = "course_without_url"
	countExcludedCourses   = "excluded_courses"
	countFailedScheduleRun = "courses_kept_after_fetch_failure"
)

// ScheduleFetcher 抓取并展开课程安排（fetch.Orchestrator 实现）
type ScheduleFetcher interface {
	Run(ctx context.Context, jobs []fetch.Job) ([]calendar.TaggedOccurrence, fetch.Stats, error)
}

// ScheduleService 课程安排与课程预订同步
type ScheduleService interface {
	// Sync 没有当前或下一个学期时返回 MissingContext 错误，不做任何写入
	Sync(ctx context.Context, periods *Periods, report *dto.SyncReport) error
}

type scheduleService struct {
	repo            *repository.Repository
	fetcher         ScheduleFetcher
	rooms           RoomService
	maps            *normalize.Maps
	excludedSection string
	loc             *time.Location
	logger          *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(
	repo *repository.Repository,
	fetcher ScheduleFetcher,
	rooms RoomService,
	maps *normalize.Maps,
	excludedSection string,
	loc *time.Location,
	logger *zap.Logger,
) ScheduleService {
	if loc == nil {
		loc = time.UTC
	}
	return &scheduleService{
		repo:            repo,
		fetcher:         fetcher,
		rooms:           rooms,
		maps:            maps,
		excludedSection: excludedSection,
		loc:             loc,
		logger:          logger,
	}
}

// courseScope 本次同步涉及的课程
type courseScope struct {
	ids      []string            // 当前学期课程在前，其后是仅属于学年学期的课程
	current  map[string]struct{} // 当前学期课程（周课表可展开）
	excluded map[string]struct{}
}

func (s *scheduleService) Sync(ctx context.Context, periods *Periods, report *dto.SyncReport) error {
	if periods == nil || periods.Current == nil {
		return apperrors.NewMissingContext("sync schedules", "没有当前或下一个学期")
	}

	scope, err := s.resolveScope(ctx, periods, report)
	if err != nil {
		return err
	}

	jobs, err := s.buildJobs(ctx, scope, periods.Current, report)
	if err != nil {
		return err
	}

	occs, stats, err := s.fetcher.Run(ctx, jobs)
	if err != nil {
		return fmt.Errorf("抓取课程安排失败: %w", err)
	}
	report.Fetch = &stats

	if err := s.rooms.Sync(ctx, roomNames(occs), report); err != nil {
		return err
	}

	failed := toSet(stats.FailedCourseIDs)
	report.Note(countFailedScheduleRun, len(failed))
	if err := s.reconcileSchedules(ctx, scope, occs, failed, report); err != nil {
		return err
	}
	return s.reconcileBookings(ctx, scope, occs, report)
}

// resolveScope 当前学期 ∪ 学年学期的课程，去除行政豁免单元的课程
func (s *scheduleService) resolveScope(ctx context.Context, periods *Periods, report *dto.SyncReport) (*courseScope, error) {
	semesterIDs := []string{periods.Current.SemesterID}

	currentIDs, err := s.repo.PlannedIn.CourseIDsBySemesters(ctx, []string{periods.Current.SemesterID})
	if err != nil {
		return nil, fmt.Errorf("查询当前学期课程失败: %w", err)
	}

	var yearIDs []string
	if periods.Year != nil {
		semesterIDs = append(semesterIDs, periods.Year.SemesterID)
		yearIDs, err = s.repo.PlannedIn.CourseIDsBySemesters(ctx, []string{periods.Year.SemesterID})
		if err != nil {
			return nil, fmt.Errorf("查询学年学期课程失败: %w", err)
		}
	} else {
		s.logger.Warn("没有当前或下一个学年学期，跳过学年课程")
		report.Note(diagNoYearSemester, 1)
	}

	excludedIDs, err := s.repo.PlannedIn.CourseIDsByUnitSection(ctx, s.excludedSection, semesterIDs)
	if err != nil {
		return nil, fmt.Errorf("查询豁免课程失败: %w", err)
	}
	scope := &courseScope{
		current:  make(map[string]struct{}, len(currentIDs)),
		excluded: toSet(excludedIDs),
	}
	report.Note(countExcludedCourses, len(scope.excluded))

	seen := make(map[string]struct{}, len(currentIDs)+len(yearIDs))
	add := func(id string) bool {
		if _, skip := scope.excluded[id]; skip {
			return false
		}
		if _, dup := seen[id]; dup {
			return false
		}
		seen[id] = struct{}{}
		scope.ids = append(scope.ids, id)
		return true
	}
	for _, id := range currentIDs {
		if add(id) {
			scope.current[id] = struct{}{}
		}
	}
	for _, id := range yearIDs {
		add(id)
	}

	s.logger.Info("课程范围解析完成",
		zap.String("semester", periods.Current.Name),
		zap.Int("current", len(scope.current)),
		zap.Int("total", len(scope.ids)),
		zap.Int("excluded", len(scope.excluded)),
	)
	return scope, nil
}

// buildJobs 当前学期课程带学期窗口；仅属于学年学期的课程只保留带日期的课表
func (s *scheduleService) buildJobs(ctx context.Context, scope *courseScope, current *model.Semester, report *dto.SyncReport) ([]fetch.Job, error) {
	courses, err := s.repo.Course.ListByIDs(ctx, scope.ids)
	if err != nil {
		return nil, fmt.Errorf("列出课程失败: %w", err)
	}
	byID := make(map[string]model.Course, len(courses))
	for _, c := range courses {
		byID[c.CourseID] = c
	}

	window := calendar.WindowOf(current, s.loc)
	jobs := make([]fetch.Job, 0, len(scope.ids))
	for _, id := range scope.ids {
		c, ok := byID[id]
		if !ok || !c.Available {
			continue
		}
		if c.EduURL == "" {
			report.Note(diagCourseWithoutURL, 1)
			continue
		}
		job := fetch.Job{CourseID: id, URL: c.EduURL}
		if _, ok := scope.current[id]; ok {
			job.Window = window
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// reconcileSchedules 软删除范围：本次范围内、且抓取未失败的课程
func (s *scheduleService) reconcileSchedules(ctx context.Context, scope *courseScope, occs []calendar.TaggedOccurrence, failed map[string]struct{}, report *dto.SyncReport) error {
	existing, err := s.repo.Schedule.ListByCourses(ctx, scope.ids)
	if err != nil {
		return fmt.Errorf("列出课程安排失败: %w", err)
	}

	spec := reconcile.Spec[model.ScheduleKey, model.CourseSchedule, calendar.TaggedOccurrence]{
		ExistingKey: model.CourseSchedule.Key,
		IncomingKey: func(o calendar.TaggedOccurrence) model.ScheduleKey {
			return model.NewScheduleKey(o.CourseID, o.Start, o.End, o.Label)
		},
		Available: func(cs model.CourseSchedule) bool { return cs.Available },
		InScope: func(cs model.CourseSchedule) bool {
			_, kept := failed[cs.CourseID]
			return !kept
		},
		New: func(o calendar.TaggedOccurrence) model.CourseSchedule {
			return model.CourseSchedule{
				ScheduleID:    uuid.NewString(),
				CourseID:      o.CourseID,
				StartDatetime: o.Start,
				EndDatetime:   o.End,
				Label:         o.Label,
				Lifecycle:     model.Live(),
			}
		},
	}
	plan := reconcile.Diff(existing, occs, spec)
	res, err := reconcile.Apply(ctx, plan, s.repo.Schedule, func(cs model.CourseSchedule) string { return cs.ScheduleID }, s.logger)
	if err != nil {
		return fmt.Errorf("课程安排对账失败: %w", err)
	}
	report.Record("schedules", res)
	return nil
}

// reconcileBookings 在课程安排对账之后推导课程 × 教室预订
func (s *scheduleService) reconcileBookings(ctx context.Context, scope *courseScope, occs []calendar.TaggedOccurrence, report *dto.SyncReport) error {
	schedules, err := s.repo.Schedule.ListByCourses(ctx, scope.ids)
	if err != nil {
		return fmt.Errorf("列出课程安排失败: %w", err)
	}
	scheduleIDs := make([]string, 0, len(schedules))
	known := make(map[string]struct{}, len(schedules))
	for _, cs := range schedules {
		scheduleIDs = append(scheduleIDs, cs.ScheduleID)
		known[cs.ScheduleID] = struct{}{}
	}

	scoped, err := s.repo.Booking.ListBySchedules(ctx, scheduleIDs)
	if err != nil {
		return fmt.Errorf("列出课程预订失败: %w", err)
	}
	live, err := s.repo.Booking.ListAvailable(ctx)
	if err != nil {
		return fmt.Errorf("列出课程预订失败: %w", err)
	}
	bookings := mergeBookings(scoped, live)

	// 范围外有效预订所属的安排，用于识别孤儿与豁免课程
	var outside []string
	for _, b := range live {
		if _, ok := known[b.ScheduleID]; !ok {
			known[b.ScheduleID] = struct{}{}
			outside = append(outside, b.ScheduleID)
		}
	}
	if len(outside) > 0 {
		extra, err := s.repo.Schedule.ListByIDs(ctx, outside)
		if err != nil {
			return fmt.Errorf("列出课程安排失败: %w", err)
		}
		schedules = append(schedules, extra...)
	}

	rooms, err := s.repo.Room.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("列出教室失败: %w", err)
	}

	plan := reconcile.DeriveBookings(reconcile.BookingInput{
		Occurrences: occs,
		Schedules:   schedules,
		Rooms:       rooms,
		Bookings:    bookings,
		Maps:        s.maps,
		Excluded: func(courseID string) bool {
			_, ok := scope.excluded[courseID]
			return ok
		},
	})
	res, err := reconcile.Apply(ctx, plan.Plan(), s.repo.Booking, func(b model.CourseBooking) string { return b.BookingID }, s.logger)
	if err != nil {
		return fmt.Errorf("课程预订对账失败: %w", err)
	}
	res.Unchanged = plan.Unchanged
	report.Record("bookings", res)
	report.AddUnresolved(plan.Unresolved...)
	report.Note(diagMissingSchedule, plan.MissingSchedules)

	if len(plan.Unresolved) > 0 {
		s.logger.Warn("部分房间无法解析到有效教室", zap.Strings("rooms", plan.Unresolved))
	}
	return nil
}

// ── 内部辅助方法 ──

// roomNames Occurrence 中出现的全部房间名（去重，保持首次出现顺序）
func roomNames(occs []calendar.TaggedOccurrence) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, o := range occs {
		for _, r := range o.Rooms {
			if _, dup := seen[r]; dup {
				continue
			}
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}

// mergeBookings 按标识去重合并
func mergeBookings(lists ...[]model.CourseBooking) []model.CourseBooking {
	var out []model.CourseBooking
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, b := range list {
			if _, dup := seen[b.BookingID]; dup {
				continue
			}
			seen[b.BookingID] = struct{}{}
			out = append(out, b)
		}
	}
	return out
}

func toSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
