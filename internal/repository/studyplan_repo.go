package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/antoninfaure/occupancy-scraper/internal/model"
)

// StudyPlanRepository 学习计划数据访问接口
type StudyPlanRepository interface {
	// ListBySemesters 指定学期下的全部学习计划（含已软删除）
	ListBySemesters(ctx context.Context, semesterIDs []string) ([]model.StudyPlan, error)
	BatchCreate(ctx context.Context, rows []model.StudyPlan) (int64, error)
	SetAvailable(ctx context.Context, ids []string, available bool) error
}

type studyPlanRepo struct {
	db *gorm.DB
}

// NewStudyPlanRepo 创建 StudyPlanRepository 实例
func NewStudyPlanRepo(db *gorm.DB) StudyPlanRepository {
	return &studyPlanRepo{db: db}
}

func (r *studyPlanRepo) ListBySemesters(ctx context.Context, semesterIDs []string) ([]model.StudyPlan, error) {
	return findIn[model.StudyPlan](ctx, r.db, "semester_id", semesterIDs, false)
}

func (r *studyPlanRepo) BatchCreate(ctx context.Context, rows []model.StudyPlan) (int64, error) {
	return batchCreate(ctx, r.db, rows)
}

func (r *studyPlanRepo) SetAvailable(ctx context.Context, ids []string, available bool) error {
	return setAvailable[model.StudyPlan](ctx, r.db, "studyplan_id", ids, available)
}
