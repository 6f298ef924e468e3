package model

import "time"

// SemesterType 学期类型
type SemesterType string

const (
	SemesterFall   SemesterType = "fall"
	SemesterSpring SemesterType = "spring"
	SemesterYear   SemesterType = "year"
)

// Valid 判断是否为已知学期类型
func (t SemesterType) Valid() bool {
	switch t {
	case SemesterFall, SemesterSpring, SemesterYear:
		return true
	}
	return false
}

// Semester 学期表，对应 semesters，自然键 name
type Semester struct {
	SemesterID string       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"semester_id"`
	Name       string       `gorm:"type:varchar(100);not null"                     json:"name"`
	StartDate  time.Time    `gorm:"type:date;not null"                             json:"start_date"`
	EndDate    time.Time    `gorm:"type:date;not null"                             json:"end_date"`
	Type       SemesterType `gorm:"type:varchar(10);not null"                      json:"type"`
	SkipDates  DateArray    `gorm:"type:date[]"                                    json:"skip_dates"`
	Lifecycle
}

// TableName 指定表名
func (Semester) TableName() string { return "semesters" }
