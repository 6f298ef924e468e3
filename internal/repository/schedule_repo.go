package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/antoninfaure/occupancy-scraper/internal/model"
)

// ScheduleRepository 课程安排数据访问接口
type ScheduleRepository interface {
	// ListByCourses 指定课程的全部安排（含已软删除）
	ListByCourses(ctx context.Context, courseIDs []string) ([]model.CourseSchedule, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.CourseSchedule, error)
	BatchCreate(ctx context.Context, rows []model.CourseSchedule) (int64, error)
	SetAvailable(ctx context.Context, ids []string, available bool) error
}

type scheduleRepo struct {
	db *gorm.DB
}

// NewScheduleRepo 创建 ScheduleRepository 实例
func NewScheduleRepo(db *gorm.DB) ScheduleRepository {
	return &scheduleRepo{db: db}
}

func (r *scheduleRepo) ListByCourses(ctx context.Context, courseIDs []string) ([]model.CourseSchedule, error) {
	return findIn[model.CourseSchedule](ctx, r.db, "course_id", courseIDs, false)
}

func (r *scheduleRepo) ListByIDs(ctx context.Context, ids []string) ([]model.CourseSchedule, error) {
	return findIn[model.CourseSchedule](ctx, r.db, "schedule_id", ids, false)
}

func (r *scheduleRepo) BatchCreate(ctx context.Context, rows []model.CourseSchedule) (int64, error) {
	return batchCreate(ctx, r.db, rows)
}

func (r *scheduleRepo) SetAvailable(ctx context.Context, ids []string, available bool) error {
	return setAvailable[model.CourseSchedule](ctx, r.db, "schedule_id", ids, available)
}
