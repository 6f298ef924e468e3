package service

import (
	"go.uber.org/zap"

	"github.com/antoninfaure/occupancy-scraper/config"
	"github.com/antoninfaure/occupancy-scraper/internal/normalize"
	"github.com/antoninfaure/occupancy-scraper/internal/repository"
)

// Deps 外部协作方（抓取、日历源、房间目录、锁）
type Deps struct {
	Courses   CourseSource
	Schedules ScheduleFetcher
	Events    EventSource
	Directory DirectoryLoader
	Locker    Locker
}

// Service 所有 Service 的聚合入口
type Service struct {
	Semester SemesterService
	Course   CourseService
	Schedule ScheduleService
	Room     RoomService
	Event    EventService
	Sync     SyncService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	maps *normalize.Maps,
	deps Deps,
	logger *zap.Logger,
) *Service {
	loc := cfg.Sync.Location()

	semesters := NewSemesterService(repo, loc, logger)
	courses := NewCourseService(repo, maps, logger)
	rooms := NewRoomService(repo, deps.Directory, logger)
	schedules := NewScheduleService(repo, deps.Schedules, rooms, maps, cfg.Sync.ExcludedUnitSection, loc, logger)
	events := NewEventService(repo, deps.Events, maps, cfg.Feed.Workers, logger)

	return &Service{
		Semester: semesters,
		Course:   courses,
		Schedule: schedules,
		Room:     rooms,
		Event:    events,
		Sync:     NewSyncService(semesters, courses, schedules, rooms, events, deps.Courses, deps.Locker, cfg.Sync.LockTTL, logger),
	}
}
