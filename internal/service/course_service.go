package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/antoninfaure/occupancy-scraper/internal/dto"
	"github.com/antoninfaure/occupancy-scraper/internal/model"
	"github.com/antoninfaure/occupancy-scraper/internal/normalize"
	"github.com/antoninfaure/occupancy-scraper/internal/reconcile"
	"github.com/antoninfaure/occupancy-scraper/internal/repository"
	"github.com/antoninfaure/occupancy-scraper/internal/scraper"
)

// 报告中的诊断计数键
const (
	diagUnmappedSection   = "unmapped_section"
	diagUnknownSemester   = "unknown_semester_type"
	diagUnresolvedPeriod  = "semester_not_resolved"
	diagUnknownTeacherURL = "teacher_url_not_found"

	countTeacherLinks = "course_teachers_updated"
)

// CourseService 课程目录同步：课程、教师、单元、学习计划、计划课程与教师关联
type CourseService interface {
	Sync(ctx context.Context, courses []scraper.RawCourse, periods *Periods, report *dto.SyncReport) error
}

type courseService struct {
	repo   *repository.Repository
	maps   *normalize.Maps
	logger *zap.Logger
}

// NewCourseService 创建 CourseService 实例
func NewCourseService(repo *repository.Repository, maps *normalize.Maps, logger *zap.Logger) CourseService {
	return &courseService{repo: repo, maps: maps, logger: logger}
}

// Sync 依次对账各实体；每一步独立幂等，中途失败时下次同步从头自愈
func (s *courseService) Sync(ctx context.Context, courses []scraper.RawCourse, periods *Periods, report *dto.SyncReport) error {
	if len(courses) == 0 {
		// 空快照多半是上游抓取失败，不做任何软删除
		s.logger.Warn("课程快照为空，跳过课程同步")
		return nil
	}
	if err := s.syncCourses(ctx, courses, report); err != nil {
		return err
	}
	if err := s.syncTeachers(ctx, courses, report); err != nil {
		return err
	}
	if err := s.syncUnits(ctx, courses, report); err != nil {
		return err
	}
	if err := s.syncStudyPlans(ctx, courses, periods, report); err != nil {
		return err
	}
	return s.linkTeachers(ctx, courses, report)
}

// ────────────────────── 课程 ──────────────────────

func (s *courseService) syncCourses(ctx context.Context, courses []scraper.RawCourse, report *dto.SyncReport) error {
	existing, err := s.repo.Course.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("列出课程失败: %w", err)
	}

	spec := reconcile.Spec[string, model.Course, scraper.RawCourse]{
		ExistingKey: func(c model.Course) string { return c.Code },
		IncomingKey: func(r scraper.RawCourse) string { return r.Code },
		Available:   func(c model.Course) bool { return c.Available },
		New: func(r scraper.RawCourse) model.Course {
			return model.Course{
				CourseID:   uuid.NewString(),
				Code:       r.Code,
				Name:       r.Name,
				Credits:    r.Credits,
				EduURL:     r.EduURL,
				Language:   r.Language,
				TeacherIDs: model.StringArray{},
				Lifecycle:  model.Live(),
			}
		},
	}
	plan := reconcile.Diff(existing, courses, spec)
	res, err := reconcile.Apply(ctx, plan, s.repo.Course, func(c model.Course) string { return c.CourseID }, s.logger)
	if err != nil {
		return fmt.Errorf("课程对账失败: %w", err)
	}
	report.Record("courses", res)
	return nil
}

// ────────────────────── 教师 ──────────────────────

// syncTeachers 新建时按显示名去重；关联课程时按个人主页匹配（见 linkTeachers）
func (s *courseService) syncTeachers(ctx context.Context, courses []scraper.RawCourse, report *dto.SyncReport) error {
	var incoming []scraper.RawTeacher
	for _, c := range courses {
		incoming = append(incoming, c.Teachers...)
	}

	existing, err := s.repo.Teacher.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("列出教师失败: %w", err)
	}

	spec := reconcile.Spec[string, model.Teacher, scraper.RawTeacher]{
		ExistingKey: func(t model.Teacher) string { return t.Name },
		IncomingKey: func(r scraper.RawTeacher) string { return normalize.Token(r.Name) },
		Available:   func(t model.Teacher) bool { return t.Available },
		InScope:     nonEmptySnapshot[model.Teacher](len(incoming), s.logger, "teachers"),
		New: func(r scraper.RawTeacher) model.Teacher {
			return model.Teacher{
				TeacherID: uuid.NewString(),
				Name:      normalize.Token(r.Name),
				PeopleURL: r.PeopleURL,
				Lifecycle: model.Live(),
			}
		},
	}
	plan := reconcile.Diff(existing, incoming, spec)
	res, err := reconcile.Apply(ctx, plan, s.repo.Teacher, func(t model.Teacher) string { return t.TeacherID }, s.logger)
	if err != nil {
		return fmt.Errorf("教师对账失败: %w", err)
	}
	report.Record("teachers", res)
	return nil
}

// linkTeachers 课程 → 教师关联按个人主页匹配有效教师，只写入有序列表发生变化的课程
func (s *courseService) linkTeachers(ctx context.Context, courses []scraper.RawCourse, report *dto.SyncReport) error {
	teachers, err := s.repo.Teacher.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("列出教师失败: %w", err)
	}
	byURL := make(map[string]string, len(teachers))
	for _, t := range teachers {
		if t.Available && t.PeopleURL != "" {
			if _, dup := byURL[t.PeopleURL]; !dup {
				byURL[t.PeopleURL] = t.TeacherID
			}
		}
	}

	stored, err := s.liveCoursesByCode(ctx)
	if err != nil {
		return err
	}

	updated := 0
	for _, raw := range courses {
		course, ok := stored[raw.Code]
		if !ok {
			continue
		}
		want := s.teacherIDs(raw.Teachers, byURL, report)
		if course.TeacherIDs.Equal(want) {
			continue
		}
		if err := s.repo.Course.SetTeachers(ctx, course.CourseID, want); err != nil {
			return fmt.Errorf("更新课程 %s 教师失败: %w", raw.Code, err)
		}
		updated++
	}
	report.Note(countTeacherLinks, updated)
	return nil
}

// teacherIDs 按页面顺序解析教师标识，去重
func (s *courseService) teacherIDs(raw []scraper.RawTeacher, byURL map[string]string, report *dto.SyncReport) model.StringArray {
	out := model.StringArray{}
	seen := make(map[string]struct{}, len(raw))
	for _, t := range raw {
		id, ok := byURL[t.PeopleURL]
		if !ok {
			report.Note(diagUnknownTeacherURL, 1)
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ────────────────────── 单元 ──────────────────────

func (s *courseService) syncUnits(ctx context.Context, courses []scraper.RawCourse, report *dto.SyncReport) error {
	var incoming []normalize.UnitSpec
	unmapped := make(map[string]struct{})
	for _, c := range courses {
		for _, sp := range c.StudyPlans {
			_, long := normalize.SplitStudyPlanLabel(sp.Semester)
			unit, ok := s.maps.UnitFor(sp.Section, long)
			if !ok {
				unmapped[normalize.Token(sp.Section)] = struct{}{}
				continue
			}
			incoming = append(incoming, unit)
		}
	}
	if len(unmapped) > 0 {
		report.Note(diagUnmappedSection, len(unmapped))
		s.logger.Warn("存在未映射的专业，相关学习计划被跳过", zap.Int("sections", len(unmapped)))
	}

	existing, err := s.repo.Unit.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("列出单元失败: %w", err)
	}

	spec := reconcile.Spec[string, model.Unit, normalize.UnitSpec]{
		ExistingKey: func(u model.Unit) string { return u.Name },
		IncomingKey: func(u normalize.UnitSpec) string { return u.Name },
		Available:   func(u model.Unit) bool { return u.Available },
		InScope:     nonEmptySnapshot[model.Unit](len(incoming), s.logger, "units"),
		New: func(u normalize.UnitSpec) model.Unit {
			return model.Unit{
				UnitID:    uuid.NewString(),
				Name:      u.Name,
				Code:      u.Code,
				Section:   u.Section,
				Promo:     u.Promo,
				Lifecycle: model.Live(),
			}
		},
	}
	plan := reconcile.Diff(existing, incoming, spec)
	res, err := reconcile.Apply(ctx, plan, s.repo.Unit, func(u model.Unit) string { return u.UnitID }, s.logger)
	if err != nil {
		return fmt.Errorf("单元对账失败: %w", err)
	}
	report.Record("units", res)
	return nil
}

// ────────────────────── 学习计划与计划课程 ──────────────────────

// plannedCourse 快照中的一条 (单元, 学期, 课程) 关系
type plannedCourse struct {
	unitID     string
	semesterID string
	courseID   string
}

// syncStudyPlans 范围限定为已解析的当前或下一个 fall/spring/year 学期
func (s *courseService) syncStudyPlans(ctx context.Context, courses []scraper.RawCourse, periods *Periods, report *dto.SyncReport) error {
	typed := periods.Typed()
	if len(typed) == 0 {
		s.logger.Warn("没有可用的学期，跳过学习计划同步")
		report.Note(diagUnresolvedPeriod, 1)
		return nil
	}
	semesterIDs := make([]string, 0, len(typed))
	for _, sem := range typed {
		semesterIDs = append(semesterIDs, sem.SemesterID)
	}

	units, err := s.repo.Unit.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("列出单元失败: %w", err)
	}
	unitByName := make(map[string]string, len(units))
	for _, u := range units {
		if u.Available {
			unitByName[u.Name] = u.UnitID
		}
	}
	stored, err := s.liveCoursesByCode(ctx)
	if err != nil {
		return err
	}

	var planned []plannedCourse
	for _, c := range courses {
		course, ok := stored[c.Code]
		if !ok {
			continue
		}
		for _, sp := range c.StudyPlans {
			_, long := normalize.SplitStudyPlanLabel(sp.Semester)
			unitID, ok := unitByName[s.maps.UnitName(sp.Section, long)]
			if !ok {
				continue
			}
			typ, ok := s.maps.SemesterTypeFor(sp.Section, long)
			if !ok {
				report.Note(diagUnknownSemester, 1)
				continue
			}
			sem := periods.ForType(typ)
			if sem == nil {
				report.Note(diagUnresolvedPeriod, 1)
				continue
			}
			planned = append(planned, plannedCourse{unitID: unitID, semesterID: sem.SemesterID, courseID: course.CourseID})
		}
	}

	// 学习计划
	existingPlans, err := s.repo.StudyPlan.ListBySemesters(ctx, semesterIDs)
	if err != nil {
		return fmt.Errorf("列出学习计划失败: %w", err)
	}
	planSpec := reconcile.Spec[model.StudyPlanKey, model.StudyPlan, plannedCourse]{
		ExistingKey: model.StudyPlan.Key,
		IncomingKey: func(p plannedCourse) model.StudyPlanKey {
			return model.StudyPlanKey{UnitID: p.unitID, SemesterID: p.semesterID}
		},
		Available: func(p model.StudyPlan) bool { return p.Available },
		New: func(p plannedCourse) model.StudyPlan {
			return model.StudyPlan{
				StudyPlanID: uuid.NewString(),
				UnitID:      p.unitID,
				SemesterID:  p.semesterID,
				Lifecycle:   model.Live(),
			}
		},
	}
	res, err := reconcile.Apply(ctx, reconcile.Diff(existingPlans, planned, planSpec), s.repo.StudyPlan,
		func(p model.StudyPlan) string { return p.StudyPlanID }, s.logger)
	if err != nil {
		return fmt.Errorf("学习计划对账失败: %w", err)
	}
	report.Record("studyplans", res)

	// 重新读取以获得新建学习计划的标识
	plans, err := s.repo.StudyPlan.ListBySemesters(ctx, semesterIDs)
	if err != nil {
		return fmt.Errorf("列出学习计划失败: %w", err)
	}
	planByKey := make(map[model.StudyPlanKey]string, len(plans))
	planIDs := make([]string, 0, len(plans))
	for _, p := range plans {
		planIDs = append(planIDs, p.StudyPlanID)
		if p.Available {
			planByKey[p.Key()] = p.StudyPlanID
		}
	}

	// 计划课程
	var incoming []model.PlannedInKey
	for _, p := range planned {
		id, ok := planByKey[model.StudyPlanKey{UnitID: p.unitID, SemesterID: p.semesterID}]
		if !ok {
			continue
		}
		incoming = append(incoming, model.PlannedInKey{StudyPlanID: id, CourseID: p.courseID})
	}
	existingLinks, err := s.repo.PlannedIn.ListByStudyPlans(ctx, planIDs)
	if err != nil {
		return fmt.Errorf("列出计划课程失败: %w", err)
	}
	linkSpec := reconcile.Spec[model.PlannedInKey, model.PlannedIn, model.PlannedInKey]{
		ExistingKey: model.PlannedIn.Key,
		IncomingKey: func(k model.PlannedInKey) model.PlannedInKey { return k },
		Available:   func(p model.PlannedIn) bool { return p.Available },
		New: func(k model.PlannedInKey) model.PlannedIn {
			return model.PlannedIn{
				PlannedInID: uuid.NewString(),
				StudyPlanID: k.StudyPlanID,
				CourseID:    k.CourseID,
				Lifecycle:   model.Live(),
			}
		},
	}
	res, err = reconcile.Apply(ctx, reconcile.Diff(existingLinks, incoming, linkSpec), s.repo.PlannedIn,
		func(p model.PlannedIn) string { return p.PlannedInID }, s.logger)
	if err != nil {
		return fmt.Errorf("计划课程对账失败: %w", err)
	}
	report.Record("planned_in", res)
	return nil
}

// ── 内部辅助方法 ──

func (s *courseService) liveCoursesByCode(ctx context.Context) (map[string]model.Course, error) {
	all, err := s.repo.Course.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("列出课程失败: %w", err)
	}
	out := make(map[string]model.Course, len(all))
	for _, c := range all {
		if c.Available {
			out[c.Code] = c
		}
	}
	return out, nil
}

// nonEmptySnapshot 快照为空时不软删除任何记录
func nonEmptySnapshot[E any](n int, logger *zap.Logger, entity string) func(E) bool {
	if n > 0 {
		return nil
	}
	logger.Warn("快照为空，跳过软删除", zap.String("entity", entity))
	return func(E) bool { return false }
}
