package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/antoninfaure/occupancy-scraper/internal/dto"
	"github.com/antoninfaure/occupancy-scraper/internal/scraper"
)

// ── 同步模块业务错误 ──

var ErrSyncInProgress = errors.New("同类同步任务正在进行")

// Locker 分布式互斥锁（pkg/redis.Client 实现）
type Locker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseLock(ctx context.Context, name, token string) error
}

// CourseSource 课程目录抓取端（scraper.Scraper 实现）
type CourseSource interface {
	ScrapeCourses(ctx context.Context) ([]scraper.RawCourse, error)
}

// SyncService 同步任务入口：加锁、解析学期上下文、调用各同步模块并生成报告
type SyncService interface {
	SyncCourses(ctx context.Context) (*dto.SyncReport, error)
	SyncSchedules(ctx context.Context) (*dto.SyncReport, error)
	SyncRooms(ctx context.Context) (*dto.SyncReport, error)
	SyncEvents(ctx context.Context, from, to time.Time) (*dto.SyncReport, error)
}

type syncService struct {
	semesters SemesterService
	courses   CourseService
	schedules ScheduleService
	rooms     RoomService
	events    EventService
	source    CourseSource
	locker    Locker
	lockTTL   time.Duration
	logger    *zap.Logger
}

// NewSyncService 创建 SyncService 实例；locker 为 nil 时不加锁
func NewSyncService(
	semesters SemesterService,
	courses CourseService,
	schedules ScheduleService,
	rooms RoomService,
	events EventService,
	source CourseSource,
	locker Locker,
	lockTTL time.Duration,
	logger *zap.Logger,
) SyncService {
	if lockTTL <= 0 {
		lockTTL = 2 * time.Hour
	}
	return &syncService{
		semesters: semesters,
		courses:   courses,
		schedules: schedules,
		rooms:     rooms,
		events:    events,
		source:    source,
		locker:    locker,
		lockTTL:   lockTTL,
		logger:    logger,
	}
}

func (s *syncService) SyncCourses(ctx context.Context) (*dto.SyncReport, error) {
	return s.run(ctx, dto.SyncCourses, func(report *dto.SyncReport) error {
		periods, err := s.semesters.ResolvePeriods(ctx)
		if err != nil {
			return err
		}
		courses, err := s.source.ScrapeCourses(ctx)
		if err != nil {
			return fmt.Errorf("抓取课程目录失败: %w", err)
		}
		return s.courses.Sync(ctx, courses, periods, report)
	})
}

func (s *syncService) SyncSchedules(ctx context.Context) (*dto.SyncReport, error) {
	return s.run(ctx, dto.SyncSchedules, func(report *dto.SyncReport) error {
		periods, err := s.semesters.ResolvePeriods(ctx)
		if err != nil {
			return err
		}
		return s.schedules.Sync(ctx, periods, report)
	})
}

// SyncRooms 只按房间目录刷新已有教室
func (s *syncService) SyncRooms(ctx context.Context) (*dto.SyncReport, error) {
	return s.run(ctx, dto.SyncRooms, func(report *dto.SyncReport) error {
		return s.rooms.Sync(ctx, nil, report)
	})
}

func (s *syncService) SyncEvents(ctx context.Context, from, to time.Time) (*dto.SyncReport, error) {
	return s.run(ctx, dto.SyncEvents, func(report *dto.SyncReport) error {
		return s.events.Sync(ctx, from, to, report)
	})
}

// ── 内部辅助方法 ──

// run 获取 sync:<kind> 锁后执行 fn；锁服务不可用时降级为不加锁执行
func (s *syncService) run(ctx context.Context, kind dto.SyncKind, fn func(report *dto.SyncReport) error) (*dto.SyncReport, error) {
	lockName := "sync:" + string(kind)
	release, err := s.lock(ctx, lockName)
	if err != nil {
		return nil, err
	}
	defer release()

	report := dto.NewSyncReport(kind)
	s.logger.Info("同步开始", zap.String("kind", string(kind)))

	if err := fn(report); err != nil {
		s.logger.Error("同步失败", zap.String("kind", string(kind)), zap.Error(err))
		return report.Finish(), err
	}

	report.Finish()
	s.logger.Info("同步完成",
		zap.String("kind", string(kind)),
		zap.String("duration", report.Duration),
		zap.Any("results", report.Results),
		zap.Any("diagnostics", report.Diagnostics),
	)
	return report, nil
}

func (s *syncService) lock(ctx context.Context, name string) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}
	token, ok, err := s.locker.AcquireLock(ctx, name, s.lockTTL)
	if err != nil {
		s.logger.Warn("获取同步锁失败，不加锁继续执行", zap.String("lock", name), zap.Error(err))
		return noop, nil
	}
	if !ok {
		return nil, ErrSyncInProgress
	}
	return func() {
		// 原 ctx 可能已取消，释放锁使用独立的超时
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.locker.ReleaseLock(releaseCtx, name, token); err != nil {
			s.logger.Warn("释放同步锁失败", zap.String("lock", name), zap.Error(err))
		}
	}, nil
}
