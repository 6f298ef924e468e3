//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/antoninfaure/occupancy-scraper/internal/model"
	"github.com/antoninfaure/occupancy-scraper/internal/reconcile"
	"github.com/antoninfaure/occupancy-scraper/internal/repository"
	"github.com/antoninfaure/occupancy-scraper/pkg/database"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=postgres password=postgres dbname=occupancy_test sslmode=disable TimeZone=UTC"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func uniq(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func newCourse(code string) model.Course {
	return model.Course{CourseID: uuid.NewString(), Code: code, Name: code, Lifecycle: model.Live()}
}

// ═══════════════════════════════════════════════════════════
// Test: BatchCreate / SetAvailable
// ═══════════════════════════════════════════════════════════

func TestCourse_BatchCreateIgnoresConflicts(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	code := uniq("CS")

	n, err := repo.Course.BatchCreate(ctx, []model.Course{newCourse(code)})
	if err != nil || n != 1 {
		t.Fatalf("首次插入应成功: n=%d err=%v", n, err)
	}

	// 同一自然键、不同标识：应被忽略而不是报错
	n, err = repo.Course.BatchCreate(ctx, []model.Course{newCourse(code), newCourse(code + "-b")})
	if err != nil {
		t.Fatalf("冲突行应被忽略: %v", err)
	}
	if n != 1 {
		t.Errorf("期望插入 1 行, 实际=%d", n)
	}
}

func TestCourse_SetAvailableAndTeachers(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	c := newCourse(uniq("MATH"))
	teacher := model.Teacher{TeacherID: uuid.NewString(), Name: uniq("Prof"), PeopleURL: "https://people.example/1", Lifecycle: model.Live()}
	if _, err := repo.Course.BatchCreate(ctx, []model.Course{c}); err != nil {
		t.Fatalf("创建课程失败: %v", err)
	}
	if _, err := repo.Teacher.BatchCreate(ctx, []model.Teacher{teacher}); err != nil {
		t.Fatalf("创建教师失败: %v", err)
	}

	if err := repo.Course.SetAvailable(ctx, []string{c.CourseID}, false); err != nil {
		t.Fatalf("SetAvailable 失败: %v", err)
	}
	if err := repo.Course.SetTeachers(ctx, c.CourseID, []string{teacher.TeacherID}); err != nil {
		t.Fatalf("SetTeachers 失败: %v", err)
	}

	got, err := repo.Course.ListByIDs(ctx, []string{c.CourseID})
	if err != nil || len(got) != 1 {
		t.Fatalf("查询课程失败: %v", err)
	}
	if got[0].Available {
		t.Error("期望 available=false")
	}
	if !got[0].TeacherIDs.Equal(model.StringArray{teacher.TeacherID}) {
		t.Errorf("教师列表不符: %v", got[0].TeacherIDs)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Semester Upsert
// ═══════════════════════════════════════════════════════════

func TestSemester_Upsert(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	name := uniq("Automne")

	s := &model.Semester{
		Name:      name,
		StartDate: time.Date(2025, 9, 8, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 12, 21, 0, 0, 0, 0, time.UTC),
		Type:      model.SemesterFall,
		SkipDates: model.DateArray{time.Date(2025, 9, 22, 0, 0, 0, 0, time.UTC)},
	}
	if err := repo.Semester.Upsert(ctx, s); err != nil {
		t.Fatalf("Upsert 失败: %v", err)
	}

	s2 := *s
	s2.SemesterID = ""
	s2.EndDate = time.Date(2025, 12, 23, 0, 0, 0, 0, time.UTC)
	s2.Available = true
	if err := repo.Semester.Upsert(ctx, &s2); err != nil {
		t.Fatalf("再次 Upsert 失败: %v", err)
	}

	got, err := repo.Semester.GetByName(ctx, name)
	if err != nil {
		t.Fatalf("GetByName 失败: %v", err)
	}
	if got.EndDate.Day() != 23 || !got.Available {
		t.Errorf("Upsert 未更新字段: end=%v available=%v", got.EndDate, got.Available)
	}
	if len(got.SkipDates) != 1 {
		t.Errorf("期望 1 个跳过日期, 实际=%d", len(got.SkipDates))
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Reconcile 端到端幂等
// ═══════════════════════════════════════════════════════════

func TestReconcile_ApplyTwiceIsIdempotent(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	prefix := uniq("RC")
	incoming := []string{prefix + "-1", prefix + "-2"}

	spec := reconcile.Spec[string, model.Course, string]{
		ExistingKey: func(c model.Course) string { return c.Code },
		IncomingKey: func(s string) string { return s },
		Available:   func(c model.Course) bool { return c.Available },
		InScope:     func(c model.Course) bool { return len(c.Code) > len(prefix) && c.Code[:len(prefix)] == prefix },
		New:         newCourse,
	}
	idOf := func(c model.Course) string { return c.CourseID }

	existing, _ := repo.Course.ListAll(ctx)
	res, err := reconcile.Apply(ctx, reconcile.Diff(existing, incoming, spec), repo.Course, idOf, zap.NewNop())
	if err != nil || res.Created != 2 {
		t.Fatalf("首次对账应创建 2 条: res=%+v err=%v", res, err)
	}

	existing, _ = repo.Course.ListAll(ctx)
	res, err = reconcile.Apply(ctx, reconcile.Diff(existing, incoming, spec), repo.Course, idOf, zap.NewNop())
	if err != nil {
		t.Fatalf("二次对账失败: %v", err)
	}
	if res.Writes() != 0 {
		t.Errorf("二次对账不应写入, 实际=%+v", res)
	}

	existing, _ = repo.Course.ListAll(ctx)
	res, err = reconcile.Apply(ctx, reconcile.Diff(existing, incoming[:1], spec), repo.Course, idOf, zap.NewNop())
	if err != nil || res.SoftDeleted != 1 {
		t.Fatalf("缺失的键应被软删除: res=%+v err=%v", res, err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: 范围查询
// ═══════════════════════════════════════════════════════════

func TestPlannedIn_CourseIDsByUnitSection(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	sem := &model.Semester{
		Name: uniq("Printemps"), Type: model.SemesterSpring,
		StartDate: time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.Semester.Upsert(ctx, sem); err != nil {
		t.Fatalf("创建学期失败: %v", err)
	}
	sem, _ = repo.Semester.GetByName(ctx, sem.Name)

	unit := model.Unit{UnitID: uuid.NewString(), Name: uniq("Management"), Code: "MAN", Section: "MAN", Lifecycle: model.Live()}
	course := newCourse(uniq("MGT"))
	plan := model.StudyPlan{StudyPlanID: uuid.NewString(), UnitID: unit.UnitID, SemesterID: sem.SemesterID, Lifecycle: model.Live()}
	pin := model.PlannedIn{PlannedInID: uuid.NewString(), StudyPlanID: plan.StudyPlanID, CourseID: course.CourseID, Lifecycle: model.Live()}

	if _, err := repo.Unit.BatchCreate(ctx, []model.Unit{unit}); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Course.BatchCreate(ctx, []model.Course{course}); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.StudyPlan.BatchCreate(ctx, []model.StudyPlan{plan}); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.PlannedIn.BatchCreate(ctx, []model.PlannedIn{pin}); err != nil {
		t.Fatal(err)
	}

	ids, err := repo.PlannedIn.CourseIDsByUnitSection(ctx, "MAN", []string{sem.SemesterID})
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(ids) != 1 || ids[0] != course.CourseID {
		t.Errorf("期望 [%s], 实际=%v", course.CourseID, ids)
	}

	ids, err = repo.PlannedIn.CourseIDsBySemesters(ctx, []string{sem.SemesterID})
	if err != nil || len(ids) != 1 {
		t.Errorf("CourseIDsBySemesters 期望 1 条, 实际=%v err=%v", ids, err)
	}
}

func TestTransaction_Rollback(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	code := uniq("TX")

	err := repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if _, err := txRepo.Course.BatchCreate(ctx, []model.Course{newCourse(code)}); err != nil {
			return err
		}
		return fmt.Errorf("强制回滚")
	})
	if err == nil {
		t.Fatal("期望返回错误")
	}

	all, _ := repo.Course.ListAll(ctx)
	for _, c := range all {
		if c.Code == code {
			t.Fatal("回滚后不应查到课程")
		}
	}
}
