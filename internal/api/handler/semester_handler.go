package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/antoninfaure/occupancy-scraper/internal/dto"
	"github.com/antoninfaure/occupancy-scraper/internal/model"
	"github.com/antoninfaure/occupancy-scraper/internal/service"
	"github.com/antoninfaure/occupancy-scraper/pkg/response"
)

// SemesterHandler 学期模块 HTTP 处理器
type SemesterHandler struct {
	semesterSvc service.SemesterService
}

// NewSemesterHandler 创建 SemesterHandler
func NewSemesterHandler(semesterSvc service.SemesterService) *SemesterHandler {
	return &SemesterHandler{semesterSvc: semesterSvc}
}

// ListSemesters 获取学期列表
// GET /api/v1/semesters
func (h *SemesterHandler) ListSemesters(c *gin.Context) {
	semesters, err := h.semesterSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	list := make([]dto.SemesterResponse, 0, len(semesters))
	for i := range semesters {
		list = append(list, dto.ToSemesterResponse(&semesters[i]))
	}
	response.OK(c, gin.H{"list": list})
}

// GetCurrentSemester 获取当前或下一个学期
// GET /api/v1/semesters/current?type=fall|spring|year
func (h *SemesterHandler) GetCurrentSemester(c *gin.Context) {
	var q dto.CurrentSemesterQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	var typ *model.SemesterType
	if q.Type != "" {
		t := model.SemesterType(q.Type)
		typ = &t
	}

	semester, err := h.semesterSvc.CurrentOrNext(c.Request.Context(), typ)
	if err != nil {
		response.InternalError(c)
		return
	}
	if semester == nil {
		response.NotFound(c, 14001, service.ErrSemesterNotFound.Error())
		return
	}

	response.OK(c, dto.ToSemesterResponse(semester))
}
