package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/antoninfaure/occupancy-scraper/internal/model"
)

// UnitRepository 教学单元数据访问接口
type UnitRepository interface {
	ListAll(ctx context.Context) ([]model.Unit, error)
	BatchCreate(ctx context.Context, rows []model.Unit) (int64, error)
	SetAvailable(ctx context.Context, ids []string, available bool) error
}

type unitRepo struct {
	db *gorm.DB
}

// NewUnitRepo 创建 UnitRepository 实例
func NewUnitRepo(db *gorm.DB) UnitRepository {
	return &unitRepo{db: db}
}

func (r *unitRepo) ListAll(ctx context.Context) ([]model.Unit, error) {
	var units []model.Unit
	err := r.db.WithContext(ctx).Order("name").Find(&units).Error
	return units, err
}

func (r *unitRepo) BatchCreate(ctx context.Context, rows []model.Unit) (int64, error) {
	return batchCreate(ctx, r.db, rows)
}

func (r *unitRepo) SetAvailable(ctx context.Context, ids []string, available bool) error {
	return setAvailable[model.Unit](ctx, r.db, "unit_id", ids, available)
}
