package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/antoninfaure/occupancy-scraper/internal/model"
)

// BookingRepository 课程预订数据访问接口
type BookingRepository interface {
	ListAvailable(ctx context.Context) ([]model.CourseBooking, error)
	// ListBySchedules 指定安排的全部预订（含已软删除）
	ListBySchedules(ctx context.Context, scheduleIDs []string) ([]model.CourseBooking, error)
	BatchCreate(ctx context.Context, rows []model.CourseBooking) (int64, error)
	SetAvailable(ctx context.Context, ids []string, available bool) error
}

type bookingRepo struct {
	db *gorm.DB
}

// NewBookingRepo 创建 BookingRepository 实例
func NewBookingRepo(db *gorm.DB) BookingRepository {
	return &bookingRepo{db: db}
}

func (r *bookingRepo) ListAvailable(ctx context.Context) ([]model.CourseBooking, error) {
	var bookings []model.CourseBooking
	err := r.db.WithContext(ctx).
		Where("available = ?", true).
		Find(&bookings).Error
	return bookings, err
}

func (r *bookingRepo) ListBySchedules(ctx context.Context, scheduleIDs []string) ([]model.CourseBooking, error) {
	return findIn[model.CourseBooking](ctx, r.db, "schedule_id", scheduleIDs, false)
}

func (r *bookingRepo) BatchCreate(ctx context.Context, rows []model.CourseBooking) (int64, error) {
	return batchCreate(ctx, r.db, rows)
}

func (r *bookingRepo) SetAvailable(ctx context.Context, ids []string, available bool) error {
	return setAvailable[model.CourseBooking](ctx, r.db, "booking_id", ids, available)
}

// EventBookingRepository 房间事件预订数据访问接口
type EventBookingRepository interface {
	// ListByRoomsInRange 指定房间中与 [from, to) 相交的全部事件（含已软删除）
	ListByRoomsInRange(ctx context.Context, roomIDs []string, from, to time.Time) ([]model.EventBooking, error)
	BatchCreate(ctx context.Context, rows []model.EventBooking) (int64, error)
	SetAvailable(ctx context.Context, ids []string, available bool) error
}

type eventBookingRepo struct {
	db *gorm.DB
}

// NewEventBookingRepo 创建 EventBookingRepository 实例
func NewEventBookingRepo(db *gorm.DB) EventBookingRepository {
	return &eventBookingRepo{db: db}
}

func (r *eventBookingRepo) ListByRoomsInRange(ctx context.Context, roomIDs []string, from, to time.Time) ([]model.EventBooking, error) {
	var out []model.EventBooking
	err := chunked(roomIDs, func(part []string) error {
		var rows []model.EventBooking
		if err := r.db.WithContext(ctx).
			Where("room_id IN ?", part).
			Where("start_datetime < ? AND end_datetime > ?", to, from).
			Find(&rows).Error; err != nil {
			return err
		}
		out = append(out, rows...)
		return nil
	})
	return out, err
}

func (r *eventBookingRepo) BatchCreate(ctx context.Context, rows []model.EventBooking) (int64, error) {
	return batchCreate(ctx, r.db, rows)
}

func (r *eventBookingRepo) SetAvailable(ctx context.Context, ids []string, available bool) error {
	return setAvailable[model.EventBooking](ctx, r.db, "event_booking_id", ids, available)
}
