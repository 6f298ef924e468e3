package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/antoninfaure/occupancy-scraper/internal/model"
)

// CourseRepository 课程数据访问接口
type CourseRepository interface {
	ListAll(ctx context.Context) ([]model.Course, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.Course, error)
	BatchCreate(ctx context.Context, rows []model.Course) (int64, error)
	SetAvailable(ctx context.Context, ids []string, available bool) error
	SetTeachers(ctx context.Context, courseID string, teacherIDs []string) error
}

type courseRepo struct {
	db *gorm.DB
}

// NewCourseRepo 创建 CourseRepository 实例
func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) ListAll(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	err := r.db.WithContext(ctx).Order("code").Find(&courses).Error
	return courses, err
}

func (r *courseRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Course, error) {
	return findIn[model.Course](ctx, r.db, "course_id", ids, false)
}

func (r *courseRepo) BatchCreate(ctx context.Context, rows []model.Course) (int64, error) {
	return batchCreate(ctx, r.db, rows)
}

func (r *courseRepo) SetAvailable(ctx context.Context, ids []string, available bool) error {
	return setAvailable[model.Course](ctx, r.db, "course_id", ids, available)
}

// SetTeachers 覆盖课程的有序教师列表
func (r *courseRepo) SetTeachers(ctx context.Context, courseID string, teacherIDs []string) error {
	return r.db.WithContext(ctx).
		Model(&model.Course{}).
		Where("course_id = ?", courseID).
		Updates(map[string]interface{}{
			"teacher_ids": model.StringArray(teacherIDs),
			"updated_at":  gorm.Expr("NOW()"),
		}).Error
}
