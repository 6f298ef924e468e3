package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/antoninfaure/occupancy-scraper/internal/dto"
	"github.com/antoninfaure/occupancy-scraper/internal/service"
	apperrors "github.com/antoninfaure/occupancy-scraper/pkg/errors"
	"github.com/antoninfaure/occupancy-scraper/pkg/response"
)

// defaultEventWindow 未指定 to 时的事件同步窗口
const defaultEventWindow = 7 * 24 * time.Hour

// SyncHandler 同步触发 HTTP 处理器；同步在请求内执行，返回执行报告
type SyncHandler struct {
	syncSvc service.SyncService
	loc     *time.Location
	now     func() time.Time
}

// NewSyncHandler 创建 SyncHandler
func NewSyncHandler(syncSvc service.SyncService, loc *time.Location) *SyncHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &SyncHandler{syncSvc: syncSvc, loc: loc, now: time.Now}
}

// SyncCourses 同步课程目录
// POST /api/v1/sync/courses
func (h *SyncHandler) SyncCourses(c *gin.Context) {
	report, err := h.syncSvc.SyncCourses(c.Request.Context())
	h.respond(c, report, err)
}

// SyncSchedules 同步课程安排与课程预订
// POST /api/v1/sync/schedules
func (h *SyncHandler) SyncSchedules(c *gin.Context) {
	report, err := h.syncSvc.SyncSchedules(c.Request.Context())
	h.respond(c, report, err)
}

// SyncRooms 按房间目录刷新教室
// POST /api/v1/sync/rooms
func (h *SyncHandler) SyncRooms(c *gin.Context) {
	report, err := h.syncSvc.SyncRooms(c.Request.Context())
	h.respond(c, report, err)
}

// SyncEvents 同步房间事件预订
// POST /api/v1/sync/events  body 可选: {"from":"2025-10-01","to":"2025-10-08"}
func (h *SyncHandler) SyncEvents(c *gin.Context) {
	var req dto.EventSyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 10001, "参数校验失败")
			return
		}
	}

	from, to, err := h.eventWindow(&req)
	if err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	report, err := h.syncSvc.SyncEvents(c.Request.Context(), from, to)
	h.respond(c, report, err)
}

// ── 内部辅助方法 ──

// eventWindow 缺省 from 为今天零点，缺省 to 为 from 之后 7 天
func (h *SyncHandler) eventWindow(req *dto.EventSyncRequest) (time.Time, time.Time, error) {
	now := h.now().In(h.loc)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)
	if req.From != "" {
		d, err := time.ParseInLocation(time.DateOnly, req.From, h.loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = d
	}
	to := from.Add(defaultEventWindow)
	if req.To != "" {
		d, err := time.ParseInLocation(time.DateOnly, req.To, h.loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = d
	}
	return from, to, nil
}

func (h *SyncHandler) respond(c *gin.Context, report *dto.SyncReport, err error) {
	if err != nil {
		h.handleSyncError(c, err)
		return
	}
	response.OK(c, report)
}

// handleSyncError 将同步错误映射为 HTTP 响应
func (h *SyncHandler) handleSyncError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, service.ErrSyncInProgress):
		response.Conflict(c, 15001, "同类同步任务正在进行，请稍后再试")
	case errors.Is(err, apperrors.ErrMissingContext):
		response.UnprocessableEntity(c, 15002, "缺少学期上下文，请先导入学期", err.Error())
	case errors.Is(err, service.ErrFeedDisabled):
		response.BadRequest(c, 15003, "未配置房间日历源")
	case errors.Is(err, service.ErrEventWindowInvalid):
		response.BadRequest(c, 15004, "事件同步时间窗口无效")
	default:
		response.Error(c, http.StatusInternalServerError, 50000, "同步失败")
	}
}
