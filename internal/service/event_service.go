package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/antoninfaure/occupancy-scraper/internal/dto"
	"github.com/antoninfaure/occupancy-scraper/internal/feed"
	"github.com/antoninfaure/occupancy-scraper/internal/model"
	"github.com/antoninfaure/occupancy-scraper/internal/normalize"
	"github.com/antoninfaure/occupancy-scraper/internal/reconcile"
	"github.com/antoninfaure/occupancy-scraper/internal/repository"
)

// ── 事件模块业务错误 ──

var (
	ErrFeedDisabled       = errors.New("未配置房间日历源")
	ErrEventWindowInvalid = errors.New("事件同步时间窗口无效")
)

const (
	diagRoomPollFailed = "room_poll_failed"
	diagEventRoom      = "event_room_not_found"
)

// EventSource 房间日历读取端（feed.Client 实现）
type EventSource interface {
	Enabled() bool
	RoomEvents(ctx context.Context, room string, from, to time.Time) ([]feed.RoomEvent, bool)
}

// EventService 房间事件预订同步
type EventService interface {
	// Sync 轮询全部有效教室在 [from, to) 内的日历并对账事件预订
	// 只有轮询成功的教室参与软删除
	Sync(ctx context.Context, from, to time.Time, report *dto.SyncReport) error
}

type eventService struct {
	repo    *repository.Repository
	source  EventSource
	maps    *normalize.Maps
	workers int
	logger  *zap.Logger
}

// NewEventService 创建 EventService 实例
func NewEventService(repo *repository.Repository, source EventSource, maps *normalize.Maps, workers int, logger *zap.Logger) EventService {
	if workers <= 0 {
		workers = 8
	}
	return &eventService{repo: repo, source: source, maps: maps, workers: workers, logger: logger}
}

// roomPoll 单个教室的轮询结果
type roomPoll struct {
	events []feed.RoomEvent
	ok     bool
}

// eventRow 解析到教室后的事件
type eventRow struct {
	roomID string
	name   string
	start  time.Time
	end    time.Time
}

func (s *eventService) Sync(ctx context.Context, from, to time.Time, report *dto.SyncReport) error {
	if s.source == nil || !s.source.Enabled() {
		return ErrFeedDisabled
	}
	if !to.After(from) {
		return fmt.Errorf("%w: %s - %s", ErrEventWindowInvalid, from.Format(time.DateOnly), to.Format(time.DateOnly))
	}

	rooms, err := s.repo.Room.ListAvailable(ctx)
	if err != nil {
		return fmt.Errorf("列出教室失败: %w", err)
	}

	polls := make([]roomPoll, len(rooms))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range rooms {
		i := i
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			events, ok := s.source.RoomEvents(gctx, rooms[i].Name, from, to)
			polls[i] = roomPoll{events: events, ok: ok}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("轮询房间日历失败: %w", err)
	}

	roomByName := make(map[string]string, len(rooms))
	for _, r := range rooms {
		roomByName[r.Name] = r.RoomID
	}
	polled := make(map[string]struct{}, len(rooms))
	okIDs := make([]string, 0, len(rooms))
	for i, p := range polls {
		if p.ok {
			polled[rooms[i].RoomID] = struct{}{}
			okIDs = append(okIDs, rooms[i].RoomID)
		}
	}
	report.Note(diagRoomPollFailed, len(rooms)-len(okIDs))

	var incoming []eventRow
	var unresolved []string
	for _, p := range polls {
		for _, ev := range p.events {
			for _, name := range s.maps.ExpandRoom(ev.Room) {
				id, ok := roomByName[name]
				if !ok {
					unresolved = append(unresolved, name)
					continue
				}
				if _, ok := polled[id]; !ok {
					continue
				}
				incoming = append(incoming, eventRow{roomID: id, name: ev.Name, start: ev.Start, end: ev.End})
			}
		}
	}
	report.Note(diagEventRoom, len(unresolved))
	report.AddUnresolved(unresolved...)

	existing, err := s.repo.EventBooking.ListByRoomsInRange(ctx, okIDs, from, to)
	if err != nil {
		return fmt.Errorf("列出事件预订失败: %w", err)
	}

	spec := reconcile.Spec[model.EventKey, model.EventBooking, eventRow]{
		ExistingKey: model.EventBooking.Key,
		IncomingKey: func(e eventRow) model.EventKey {
			return model.EventKey{RoomID: e.roomID, Start: e.start.Unix(), End: e.end.Unix(), Name: e.name}
		},
		Available: func(e model.EventBooking) bool { return e.Available },
		New: func(e eventRow) model.EventBooking {
			return model.EventBooking{
				EventBookingID: uuid.NewString(),
				RoomID:         e.roomID,
				Name:           e.name,
				StartDatetime:  e.start,
				EndDatetime:    e.end,
				Lifecycle:      model.Live(),
			}
		},
	}
	plan := reconcile.Diff(existing, incoming, spec)
	res, err := reconcile.Apply(ctx, plan, s.repo.EventBooking, func(e model.EventBooking) string { return e.EventBookingID }, s.logger)
	if err != nil {
		return fmt.Errorf("事件预订对账失败: %w", err)
	}
	report.Record("event_bookings", res)

	s.logger.Info("事件预订同步完成",
		zap.Int("rooms", len(rooms)),
		zap.Int("polled", len(okIDs)),
		zap.Int("created", res.Created),
		zap.Int("soft_deleted", res.SoftDeleted),
	)
	return nil
}
