package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/antoninfaure/occupancy-scraper/internal/model"
)

// SemesterRepository 学期数据访问接口
type SemesterRepository interface {
	List(ctx context.Context) ([]model.Semester, error)
	GetByName(ctx context.Context, name string) (*model.Semester, error)
	Upsert(ctx context.Context, semester *model.Semester) error
}

type semesterRepo struct {
	db *gorm.DB
}

// NewSemesterRepo 创建 SemesterRepository 实例
func NewSemesterRepo(db *gorm.DB) SemesterRepository {
	return &semesterRepo{db: db}
}

// List 返回全部学期（不过滤 available，学期解析按日期选择）
func (r *semesterRepo) List(ctx context.Context) ([]model.Semester, error) {
	var semesters []model.Semester
	err := r.db.WithContext(ctx).
		Order("start_date").
		Find(&semesters).Error
	return semesters, err
}

func (r *semesterRepo) GetByName(ctx context.Context, name string) (*model.Semester, error) {
	var semester model.Semester
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&semester).Error
	if err != nil {
		return nil, err
	}
	return &semester, nil
}

// Upsert 按名称插入或更新日期、类型、跳过日期与 available
func (r *semesterRepo) Upsert(ctx context.Context, semester *model.Semester) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"start_date", "end_date", "type", "skip_dates", "available", "updated_at",
			}),
		}).
		Create(semester).Error
}
