package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// defaultBatchSize 批量插入每批行数（未配置时）
const defaultBatchSize = 500

// idChunkSize 单条 IN 查询/更新的最大标识数，避免超出 PostgreSQL 参数上限
const idChunkSize = 5000

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Course       CourseRepository
	Teacher      TeacherRepository
	Unit         UnitRepository
	Semester     SemesterRepository
	StudyPlan    StudyPlanRepository
	PlannedIn    PlannedInRepository
	Schedule     ScheduleRepository
	Room         RoomRepository
	Booking      BookingRepository
	EventBooking EventBookingRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:           db,
		Course:       NewCourseRepo(db),
		Teacher:      NewTeacherRepo(db),
		Unit:         NewUnitRepo(db),
		Semester:     NewSemesterRepo(db),
		StudyPlan:    NewStudyPlanRepo(db),
		PlannedIn:    NewPlannedInRepo(db),
		Schedule:     NewScheduleRepo(db),
		Room:         NewRoomRepo(db),
		Booking:      NewBookingRepo(db),
		EventBooking: NewEventBookingRepo(db),
	}
}

// ── 内部辅助方法 ──

// batchCreate 分批插入；任一唯一约束冲突的行被忽略（ON CONFLICT DO NOTHING）
// 返回实际插入的行数；出错时为出错前已提交批次的行数（批次之间没有事务）
func batchCreate[E any](ctx context.Context, db *gorm.DB, rows []E) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	size := db.CreateBatchSize
	if size <= 0 {
		size = defaultBatchSize
	}
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&rows, size)
	return res.RowsAffected, res.Error
}

// setAvailable 按主键列表批量设置 available
func setAvailable[E any](ctx context.Context, db *gorm.DB, pk string, ids []string, available bool) error {
	return chunked(ids, func(part []string) error {
		return db.WithContext(ctx).
			Model(new(E)).
			Where(pk+" IN ?", part).
			Updates(map[string]interface{}{
				"available":  available,
				"updated_at": gorm.Expr("NOW()"),
			}).Error
	})
}

// findIn 按列 IN 查询，自动分块
func findIn[E any](ctx context.Context, db *gorm.DB, column string, values []string, onlyAvailable bool) ([]E, error) {
	var out []E
	err := chunked(values, func(part []string) error {
		var rows []E
		q := db.WithContext(ctx).Where(column+" IN ?", part)
		if onlyAvailable {
			q = q.Where("available = ?", true)
		}
		if err := q.Find(&rows).Error; err != nil {
			return err
		}
		out = append(out, rows...)
		return nil
	})
	return out, err
}

func chunked(ids []string, fn func([]string) error) error {
	for start := 0; start < len(ids); start += idChunkSize {
		end := start + idChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		if err := fn(ids[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// Transaction 在事务内执行 fn，fn 返回错误时回滚
// 未绑定数据库（单元测试中手工组装的聚合）时直接执行
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
