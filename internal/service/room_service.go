package service

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/antoninfaure/occupancy-scraper/internal/dto"
	"github.com/antoninfaure/occupancy-scraper/internal/model"
	"github.com/antoninfaure/occupancy-scraper/internal/normalize"
	"github.com/antoninfaure/occupancy-scraper/internal/reconcile"
	"github.com/antoninfaure/occupancy-scraper/internal/repository"
	"github.com/antoninfaure/occupancy-scraper/internal/roomdir"
)

const countRoomsRefreshed = "rooms_refreshed"

// RoomDirectory 房间目录查询端
type RoomDirectory interface {
	Lookup(name string) (roomdir.Entry, bool)
}

// DirectoryLoader 每次同步时重新读取房间目录
type DirectoryLoader func() (RoomDirectory, error)

// RoomService 教室同步
type RoomService interface {
	// Sync 刷新有效教室的目录信息，并创建或重新启用 names 中的教室
	// 教室被课程预订与事件预订共享，从不软删除
	Sync(ctx context.Context, names []string, report *dto.SyncReport) error
}

type roomService struct {
	repo   *repository.Repository
	load   DirectoryLoader
	logger *zap.Logger
}

// NewRoomService 创建 RoomService 实例
func NewRoomService(repo *repository.Repository, load DirectoryLoader, logger *zap.Logger) RoomService {
	if load == nil {
		load = func() (RoomDirectory, error) { return roomdir.New(nil), nil }
	}
	return &roomService{repo: repo, load: load, logger: logger}
}

func (s *roomService) Sync(ctx context.Context, names []string, report *dto.SyncReport) error {
	dir, err := s.load()
	if err != nil {
		return fmt.Errorf("加载房间目录失败: %w", err)
	}

	existing, err := s.repo.Room.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("列出教室失败: %w", err)
	}

	refreshed := 0
	for _, room := range existing {
		if !room.Available {
			continue
		}
		entry, ok := dir.Lookup(room.Name)
		if !ok {
			continue
		}
		next := applyEntry(room, entry)
		if sameGeometry(room, next) {
			continue
		}
		if err := s.repo.Room.UpdateGeometry(ctx, &next); err != nil {
			return fmt.Errorf("更新教室 %s 失败: %w", room.Name, err)
		}
		refreshed++
	}
	report.Note(countRoomsRefreshed, refreshed)

	incoming := make([]string, 0, len(names))
	for _, n := range names {
		if t := normalize.Token(n); t != "" {
			incoming = append(incoming, t)
		}
	}

	spec := reconcile.Spec[string, model.Room, string]{
		ExistingKey: func(r model.Room) string { return r.Name },
		IncomingKey: func(name string) string { return name },
		Available:   func(r model.Room) bool { return r.Available },
		InScope:     func(model.Room) bool { return false },
		New: func(name string) model.Room {
			room := model.Room{
				RoomID:    uuid.NewString(),
				Name:      name,
				Type:      model.RoomTypeUnknown,
				Lifecycle: model.Live(),
			}
			if b := normalize.BuildingOf(name); b != "" {
				room.Building = &b
			}
			if entry, ok := dir.Lookup(name); ok {
				room = applyEntry(room, entry)
			}
			return room
		},
	}
	plan := reconcile.Diff(existing, incoming, spec)
	res, err := reconcile.Apply(ctx, plan, s.repo.Room, func(r model.Room) string { return r.RoomID }, s.logger)
	if err != nil {
		return fmt.Errorf("教室对账失败: %w", err)
	}
	report.Record("rooms", res)

	s.logger.Info("教室同步完成",
		zap.Int("created", res.Created),
		zap.Int("reactivated", res.Reactivated),
		zap.Int("refreshed", refreshed),
	)
	return nil
}

// ── 内部辅助方法 ──

// applyEntry 用目录条目覆盖类型、链接、坐标；容量与楼层仅在条目提供时覆盖
func applyEntry(room model.Room, e roomdir.Entry) model.Room {
	room.Type = e.Type
	if room.Type == "" {
		room.Type = model.RoomTypeUnknown
	}
	room.Link = nil
	if e.Link != "" {
		link := e.Link
		room.Link = &link
	}
	room.Latitude, room.Longitude = nil, nil
	if e.Coordinates != nil {
		lat, lon := e.Coordinates.Lat, e.Coordinates.Lon
		room.Latitude, room.Longitude = &lat, &lon
	}
	if e.Capacity != nil {
		c := *e.Capacity
		room.Capacity = &c
	}
	if e.Level != "" {
		level := e.Level
		room.Level = &level
	}
	return room
}

func sameGeometry(a, b model.Room) bool {
	return a.Type == b.Type &&
		eqString(a.Link, b.Link) &&
		eqFloat(a.Latitude, b.Latitude) &&
		eqFloat(a.Longitude, b.Longitude) &&
		eqInt(a.Capacity, b.Capacity) &&
		eqString(a.Level, b.Level)
}

func eqString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return math.Abs(*a-*b) < 1e-9
}
