package dto

import "github.com/antoninfaure/occupancy-scraper/internal/model"

// ── 学期模块 ──

// CurrentSemesterQuery GET /semesters/current 查询参数
type CurrentSemesterQuery struct {
	Type string `form:"type" binding:"omitempty,oneof=fall spring year"`
}

// SemesterResponse 学期响应
type SemesterResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	Type      string   `json:"type"`
	SkipDates []string `json:"skip_dates"`
	Available bool     `json:"available"`
}

// ToSemesterResponse model → 响应，日期格式 2006-01-02
func ToSemesterResponse(s *model.Semester) SemesterResponse {
	skip := make([]string, 0, len(s.SkipDates))
	for _, d := range s.SkipDates {
		skip = append(skip, d.Format("2006-01-02"))
	}
	return SemesterResponse{
		ID:        s.SemesterID,
		Name:      s.Name,
		StartDate: s.StartDate.Format("2006-01-02"),
		EndDate:   s.EndDate.Format("2006-01-02"),
		Type:      string(s.Type),
		SkipDates: skip,
		Available: s.Available,
	}
}

// ImportResponse 学期写入结果
type ImportResponse struct {
	Count int `json:"count"`
}
