package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/antoninfaure/occupancy-scraper/internal/model"
)

// TeacherRepository 教师数据访问接口
type TeacherRepository interface {
	ListAll(ctx context.Context) ([]model.Teacher, error)
	BatchCreate(ctx context.Context, rows []model.Teacher) (int64, error)
	SetAvailable(ctx context.Context, ids []string, available bool) error
}

type teacherRepo struct {
	db *gorm.DB
}

// NewTeacherRepo 创建 TeacherRepository 实例
func NewTeacherRepo(db *gorm.DB) TeacherRepository {
	return &teacherRepo{db: db}
}

func (r *teacherRepo) ListAll(ctx context.Context) ([]model.Teacher, error) {
	var teachers []model.Teacher
	err := r.db.WithContext(ctx).Order("name").Find(&teachers).Error
	return teachers, err
}

func (r *teacherRepo) BatchCreate(ctx context.Context, rows []model.Teacher) (int64, error) {
	return batchCreate(ctx, r.db, rows)
}

func (r *teacherRepo) SetAvailable(ctx context.Context, ids []string, available bool) error {
	return setAvailable[model.Teacher](ctx, r.db, "teacher_id", ids, available)
}
