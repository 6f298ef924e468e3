package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/antoninfaure/occupancy-scraper/internal/model"
)

// RoomRepository 教室数据访问接口
type RoomRepository interface {
	ListAll(ctx context.Context) ([]model.Room, error)
	ListAvailable(ctx context.Context) ([]model.Room, error)
	BatchCreate(ctx context.Context, rows []model.Room) (int64, error)
	SetAvailable(ctx context.Context, ids []string, available bool) error
	// UpdateGeometry 覆盖类型、链接、坐标；容量与楼层仅在非空时覆盖
	UpdateGeometry(ctx context.Context, room *model.Room) error
}

type roomRepo struct {
	db *gorm.DB
}

// NewRoomRepo 创建 RoomRepository 实例
func NewRoomRepo(db *gorm.DB) RoomRepository {
	return &roomRepo{db: db}
}

func (r *roomRepo) ListAll(ctx context.Context) ([]model.Room, error) {
	var rooms []model.Room
	err := r.db.WithContext(ctx).Order("name").Find(&rooms).Error
	return rooms, err
}

func (r *roomRepo) ListAvailable(ctx context.Context) ([]model.Room, error) {
	var rooms []model.Room
	err := r.db.WithContext(ctx).
		Where("available = ?", true).
		Order("name").
		Find(&rooms).Error
	return rooms, err
}

func (r *roomRepo) BatchCreate(ctx context.Context, rows []model.Room) (int64, error) {
	return batchCreate(ctx, r.db, rows)
}

func (r *roomRepo) SetAvailable(ctx context.Context, ids []string, available bool) error {
	return setAvailable[model.Room](ctx, r.db, "room_id", ids, available)
}

func (r *roomRepo) UpdateGeometry(ctx context.Context, room *model.Room) error {
	updates := map[string]interface{}{
		"type":       room.Type,
		"link":       room.Link,
		"latitude":   room.Latitude,
		"longitude":  room.Longitude,
		"updated_at": gorm.Expr("NOW()"),
	}
	if room.Capacity != nil {
		updates["capacity"] = *room.Capacity
	}
	if room.Level != nil {
		updates["level"] = *room.Level
	}
	return r.db.WithContext(ctx).
		Model(&model.Room{}).
		Where("room_id = ?", room.RoomID).
		Updates(updates).Error
}
