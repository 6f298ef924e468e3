package model

import "time"

// 规范化后的课程安排标签
const (
	LabelCours    = "cours"
	LabelExercice = "exercice"
	LabelProjet   = "projet"
)

// CourseSchedule 课程安排表，对应 course_schedules
// 自然键 (course_id, start_datetime, end_datetime, label)；教室变化只体现在 CourseBooking 上
type CourseSchedule struct {
	ScheduleID    string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"schedule_id"`
	CourseID      string    `gorm:"type:uuid;not null"                             json:"course_id"`
	StartDatetime time.Time `gorm:"type:timestamptz;not null"                      json:"start_datetime"`
	EndDatetime   time.Time `gorm:"type:timestamptz;not null"                      json:"end_datetime"`
	Label         string    `gorm:"type:varchar(50);not null"                      json:"label"`
	Lifecycle
}

// TableName 指定表名
func (CourseSchedule) TableName() string { return "course_schedules" }

// ScheduleKey 课程安排自然键，时间以 Unix 秒比较，避免时区表示差异
type ScheduleKey struct {
	CourseID string
	Start    int64
	End      int64
	Label    string
}

// NewScheduleKey 构造自然键
func NewScheduleKey(courseID string, start, end time.Time, label string) ScheduleKey {
	return ScheduleKey{CourseID: courseID, Start: start.Unix(), End: end.Unix(), Label: label}
}

// Key 返回该安排的自然键
func (s CourseSchedule) Key() ScheduleKey {
	return NewScheduleKey(s.CourseID, s.StartDatetime, s.EndDatetime, s.Label)
}

// CourseBooking 课程安排与教室的关联，对应 course_bookings，自然键 (schedule_id, room_id)
type CourseBooking struct {
	BookingID  string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"booking_id"`
	ScheduleID string `gorm:"type:uuid;not null"                             json:"schedule_id"`
	RoomID     string `gorm:"type:uuid;not null"                             json:"room_id"`
	Lifecycle
}

// TableName 指定表名
func (CourseBooking) TableName() string { return "course_bookings" }

// BookingKey 课程预订自然键
type BookingKey struct {
	ScheduleID string
	RoomID     string
}

// Key 返回该预订的自然键
func (b CourseBooking) Key() BookingKey {
	return BookingKey{ScheduleID: b.ScheduleID, RoomID: b.RoomID}
}
