package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/antoninfaure/occupancy-scraper/internal/model"
)

// PlannedInRepository 计划课程数据访问接口
type PlannedInRepository interface {
	// ListByStudyPlans 指定学习计划下的全部记录（含已软删除）
	ListByStudyPlans(ctx context.Context, studyPlanIDs []string) ([]model.PlannedIn, error)
	BatchCreate(ctx context.Context, rows []model.PlannedIn) (int64, error)
	SetAvailable(ctx context.Context, ids []string, available bool) error
	// CourseIDsBySemesters 指定学期有效学习计划中的课程（去重）
	CourseIDsBySemesters(ctx context.Context, semesterIDs []string) ([]string, error)
	// CourseIDsByUnitSection 指定学期内、所属单元专业代码为 section 的课程（不过滤 available）
	CourseIDsByUnitSection(ctx context.Context, section string, semesterIDs []string) ([]string, error)
}

type plannedInRepo struct {
	db *gorm.DB
}

// NewPlannedInRepo 创建 PlannedInRepository 实例
func NewPlannedInRepo(db *gorm.DB) PlannedInRepository {
	return &plannedInRepo{db: db}
}

func (r *plannedInRepo) ListByStudyPlans(ctx context.Context, studyPlanIDs []string) ([]model.PlannedIn, error) {
	return findIn[model.PlannedIn](ctx, r.db, "studyplan_id", studyPlanIDs, false)
}

func (r *plannedInRepo) BatchCreate(ctx context.Context, rows []model.PlannedIn) (int64, error) {
	return batchCreate(ctx, r.db, rows)
}

func (r *plannedInRepo) SetAvailable(ctx context.Context, ids []string, available bool) error {
	return setAvailable[model.PlannedIn](ctx, r.db, "planned_in_id", ids, available)
}

func (r *plannedInRepo) CourseIDsBySemesters(ctx context.Context, semesterIDs []string) ([]string, error) {
	if len(semesterIDs) == 0 {
		return nil, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.PlannedIn{}).
		Distinct("planned_in.course_id").
		Joins("JOIN studyplans sp ON sp.studyplan_id = planned_in.studyplan_id").
		Where("planned_in.available = ? AND sp.available = ?", true, true).
		Where("sp.semester_id IN ?", semesterIDs).
		Pluck("planned_in.course_id", &ids).Error
	return ids, err
}

func (r *plannedInRepo) CourseIDsByUnitSection(ctx context.Context, section string, semesterIDs []string) ([]string, error) {
	if section == "" || len(semesterIDs) == 0 {
		return nil, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.PlannedIn{}).
		Distinct("planned_in.course_id").
		Joins("JOIN studyplans sp ON sp.studyplan_id = planned_in.studyplan_id").
		Joins("JOIN units u ON u.unit_id = sp.unit_id").
		Where("u.section = ?", section).
		Where("sp.semester_id IN ?", semesterIDs).
		Pluck("planned_in.course_id", &ids).Error
	return ids, err
}
