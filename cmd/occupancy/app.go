package main

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/antoninfaure/occupancy-scraper/config"
	"github.com/antoninfaure/occupancy-scraper/internal/calendar"
	"github.com/antoninfaure/occupancy-scraper/internal/feed"
	"github.com/antoninfaure/occupancy-scraper/internal/fetch"
	"github.com/antoninfaure/occupancy-scraper/internal/normalize"
	"github.com/antoninfaure/occupancy-scraper/internal/repository"
	"github.com/antoninfaure/occupancy-scraper/internal/roomdir"
	"github.com/antoninfaure/occupancy-scraper/internal/scraper"
	"github.com/antoninfaure/occupancy-scraper/internal/service"
	"github.com/antoninfaure/occupancy-scraper/pkg/database"
	"github.com/antoninfaure/occupancy-scraper/pkg/redis"
)

// app 一次命令执行所需的全部依赖
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	rdb    *redis.Client // 可能为 nil
	svc    *service.Service
}

// newApp 依赖注入: Database/Redis → Repository → Service
func newApp(opts *rootOptions) (*app, error) {
	cfg, logger := opts.cfg, opts.logger

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, err
	}

	// Redis 可选：连接失败时同步不加锁、接口不限流
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，同步锁与速率限制将不可用", zap.Error(err))
		rdb = nil
	}

	maps := normalize.Default().Extend(roomAliases(cfg.Normalize.RoomAliases), cfg.Normalize.RoomExclusions)
	loc := cfg.Sync.Location()

	sc, err := scraper.New(&cfg.Scraper, cfg.Sync.IOWorkers, maps, loc, logger)
	if err != nil {
		closeDB(db)
		return nil, fmt.Errorf("初始化抓取器失败: %w", err)
	}
	orchestrator := fetch.NewOrchestrator(sc, sc, calendar.NewExpander(maps), cfg.Sync.IOWorkers, cfg.Sync.CPUWorkers, logger)

	deps := service.Deps{
		Courses:   sc,
		Schedules: orchestrator,
		Events:    feed.NewClient(&cfg.Feed, loc, logger),
		Directory: directoryLoader(cfg.Rooms.DirectoryFile),
	}
	if rdb != nil {
		deps.Locker = rdb
	}

	repo := repository.NewRepository(db)
	return &app{
		cfg:    cfg,
		logger: logger,
		db:     db,
		rdb:    rdb,
		svc:    service.NewService(cfg, repo, maps, deps, logger),
	}, nil
}

// Close 关闭数据库与 Redis 连接
func (a *app) Close() {
	closeDB(a.db)
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}

// ── 内部辅助方法 ──

func roomAliases(list []config.RoomAlias) map[string][]string {
	out := make(map[string][]string, len(list))
	for _, a := range list {
		out[a.Raw] = a.Rooms
	}
	return out
}

// directoryLoader 每次房间同步时重新读取目录文件
func directoryLoader(path string) service.DirectoryLoader {
	return func() (service.RoomDirectory, error) {
		dir, err := roomdir.Load(path)
		if err != nil {
			return nil, err
		}
		return dir, nil
	}
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
