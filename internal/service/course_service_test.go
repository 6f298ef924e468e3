package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/antoninfaure/occupancy-scraper/internal/dto"
	"github.com/antoninfaure/occupancy-scraper/internal/normalize"
	"github.com/antoninfaure/occupancy-scraper/internal/scraper"
)

// ── 测试辅助 ──

func setupTestCourseService() (CourseService, *mockStore, *Periods) {
	st := newMockStore()
	fall, spring, year := seedAcademicYear(st)
	periods := &Periods{Current: fall, Fall: fall, Spring: spring, Year: year}
	return NewCourseService(st.repo, normalize.Default(), zap.NewNop()), st, periods
}

func intPtr(n int) *int { return &n }

func sampleCourses() []scraper.RawCourse {
	return []scraper.RawCourse{
		{
			Name:    "Analyse I",
			Code:    "MATH-101",
			Credits: intPtr(6),
			EduURL:  "https://edu.example/analyse-I-MATH-101",
			StudyPlans: []scraper.RawStudyPlan{
				{Section: "Informatique", Semester: "2024-2025 Bachelor semestre 1"},
				{Section: "Mathématiques", Semester: "2024-2025 Bachelor semestre 1"},
			},
			Teachers: []scraper.RawTeacher{
				{Name: "Jean Dupont", PeopleURL: "https://people.example/jean"},
				{Name: "Marie Curie", PeopleURL: "https://people.example/marie"},
			},
		},
		{
			Name:   "Physique",
			Code:   "PHYS-101",
			EduURL: "https://edu.example/physique-PHYS-101",
			StudyPlans: []scraper.RawStudyPlan{
				{Section: "Informatique", Semester: "2024-2025 Bachelor semestre 1"},
				{Section: "Section inconnue", Semester: "2024-2025 Bachelor semestre 1"},
			},
			Teachers: []scraper.RawTeacher{
				{Name: "Marie Curie", PeopleURL: "https://people.example/marie"},
			},
		},
	}
}

func runCourseSync(t *testing.T, svc CourseService, courses []scraper.RawCourse, periods *Periods) *dto.SyncReport {
	t.Helper()
	report := dto.NewSyncReport(dto.SyncCourses)
	if err := svc.Sync(context.Background(), courses, periods, report); err != nil {
		t.Fatalf("Sync 应成功: %v", err)
	}
	return report
}

// ── Sync 测试 ──

func TestCourseService_Sync_CreatesCatalog(t *testing.T) {
	svc, st, periods := setupTestCourseService()

	report := runCourseSync(t, svc, sampleCourses(), periods)

	if len(st.course.rows) != 2 {
		t.Fatalf("期望 2 门课程，实际=%d", len(st.course.rows))
	}
	if len(st.teacher.rows) != 2 {
		t.Errorf("教师按姓名去重，期望 2 位，实际=%d", len(st.teacher.rows))
	}
	if len(st.unit.rows) != 2 {
		t.Errorf("未映射专业应被跳过，期望 2 个单元，实际=%d", len(st.unit.rows))
	}
	if report.Diagnostics[diagUnmappedSection] != 1 {
		t.Errorf("期望 1 个未映射专业，实际=%d", report.Diagnostics[diagUnmappedSection])
	}
	for _, sp := range st.studyPlan.rows {
		if sp.SemesterID != periods.Fall.SemesterID {
			t.Errorf("Bachelor semestre 1 应落在秋季学期，实际=%s", sp.SemesterID)
		}
	}
	if len(st.studyPlan.rows) != 2 {
		t.Errorf("期望 2 个学习计划，实际=%d", len(st.studyPlan.rows))
	}
	if len(st.plannedIn.rows) != 3 {
		t.Errorf("期望 3 条计划课程，实际=%d", len(st.plannedIn.rows))
	}

	analyse, _ := st.course.byCode("MATH-101")
	if len(analyse.TeacherIDs) != 2 {
		t.Fatalf("MATH-101 应关联 2 位教师，实际=%v", analyse.TeacherIDs)
	}
	first, _ := st.teacher.find(analyse.TeacherIDs[0])
	if first.Name != "Jean Dupont" {
		t.Errorf("教师顺序应与页面一致，首位期望 Jean Dupont，实际=%s", first.Name)
	}
	if report.Results["courses"].Created != 2 {
		t.Errorf("期望新建 2 门课程，实际=%+v", report.Results["courses"])
	}
}

func TestCourseService_Sync_Idempotent(t *testing.T) {
	svc, st, periods := setupTestCourseService()
	runCourseSync(t, svc, sampleCourses(), periods)
	before := st.writes()

	report := runCourseSync(t, svc, sampleCourses(), periods)

	if st.writes() != before {
		t.Errorf("第二次同步不应产生写操作，新增=%d", st.writes()-before)
	}
	for entity, res := range report.Results {
		if res.Writes() != 0 {
			t.Errorf("%s 第二次同步不应有变化: %+v", entity, res)
		}
	}
}

func TestCourseService_Sync_SoftDeletesAndReactivates(t *testing.T) {
	svc, st, periods := setupTestCourseService()
	runCourseSync(t, svc, sampleCourses(), periods)

	only := sampleCourses()[:1]
	runCourseSync(t, svc, only, periods)

	physique, _ := st.course.byCode("PHYS-101")
	if physique.Available {
		t.Error("快照中消失的课程应被软删除")
	}
	for _, p := range st.plannedIn.rows {
		if p.CourseID == physique.CourseID && p.Available {
			t.Error("消失课程的计划课程应被软删除")
		}
	}

	runCourseSync(t, svc, sampleCourses(), periods)
	physique, _ = st.course.byCode("PHYS-101")
	if !physique.Available {
		t.Error("重新出现的课程应被重新启用")
	}
	if len(st.course.rows) != 2 {
		t.Errorf("重新启用不应新建记录，实际=%d", len(st.course.rows))
	}
}

func TestCourseService_Sync_EmptySnapshotKeepsCatalog(t *testing.T) {
	svc, st, periods := setupTestCourseService()
	runCourseSync(t, svc, sampleCourses(), periods)

	runCourseSync(t, svc, nil, periods)

	for _, c := range st.course.rows {
		if !c.Available {
			t.Errorf("空快照不应软删除课程 %s", c.Code)
		}
	}
	for _, u := range st.unit.rows {
		if !u.Available {
			t.Errorf("空快照不应软删除单元 %s", u.Name)
		}
	}
}

func TestCourseService_Sync_WithoutSemesters(t *testing.T) {
	st := newMockStore()
	svc := NewCourseService(st.repo, normalize.Default(), zap.NewNop())

	report := runCourseSync(t, svc, sampleCourses(), &Periods{})

	if len(st.course.rows) != 2 {
		t.Errorf("没有学期时课程仍应同步，实际=%d", len(st.course.rows))
	}
	if len(st.studyPlan.rows) != 0 {
		t.Errorf("没有学期时不应创建学习计划，实际=%d", len(st.studyPlan.rows))
	}
	if report.Diagnostics[diagUnresolvedPeriod] == 0 {
		t.Error("应记录学期未解析的诊断")
	}
}

func TestCourseService_Sync_TeacherWithoutProfileDropped(t *testing.T) {
	svc, st, periods := setupTestCourseService()
	courses := sampleCourses()
	courses[1].Teachers = append(courses[1].Teachers, scraper.RawTeacher{Name: "Marie Curie", PeopleURL: "https://people.example/other"})

	report := runCourseSync(t, svc, courses, periods)

	physique, _ := st.course.byCode("PHYS-101")
	if len(physique.TeacherIDs) != 1 {
		t.Errorf("主页无法匹配的教师应被丢弃，实际=%v", physique.TeacherIDs)
	}
	if report.Diagnostics[diagUnknownTeacherURL] != 1 {
		t.Errorf("期望 1 条主页无法匹配的诊断，实际=%d", report.Diagnostics[diagUnknownTeacherURL])
	}
}
