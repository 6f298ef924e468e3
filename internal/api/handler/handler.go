package handler

import (
	"time"

	"github.com/antoninfaure/occupancy-scraper/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Semester *SemesterHandler
	Sync     *SyncHandler
}

// NewHandler 创建 Handler 聚合；loc 用于解析事件同步窗口的日期
func NewHandler(svc *service.Service, loc *time.Location) *Handler {
	return &Handler{
		Semester: NewSemesterHandler(svc.Semester),
		Sync:     NewSyncHandler(svc.Sync, loc),
	}
}
