package model

import "time"

// RoomTypeUnknown 房间目录中查不到时的类型
const RoomTypeUnknown = "unknown"

// Room 教室表，对应 rooms，自然键 name
type Room struct {
	RoomID    string   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"room_id"`
	Name      string   `gorm:"type:varchar(100);not null"                     json:"name"`
	Type      string   `gorm:"type:varchar(100);not null"                     json:"type"`
	Building  *string  `gorm:"type:varchar(50)"                               json:"building,omitempty"`
	Link      *string  `gorm:"type:varchar(500)"                              json:"link,omitempty"`
	Latitude  *float64 `gorm:"type:double precision"                          json:"latitude,omitempty"`
	Longitude *float64 `gorm:"type:double precision"                          json:"longitude,omitempty"`
	Capacity  *int     `gorm:"type:int"                                       json:"capacity,omitempty"`
	Level     *string  `gorm:"type:varchar(20)"                               json:"level,omitempty"`
	Lifecycle
}

// TableName 指定表名
func (Room) TableName() string { return "rooms" }

// EventBooking 房间日历中的非课程预订，对应 event_bookings
// 自然键 (room_id, start_datetime, end_datetime, name)
type EventBooking struct {
	EventBookingID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"event_booking_id"`
	RoomID         string    `gorm:"type:uuid;not null"                             json:"room_id"`
	Name           string    `gorm:"type:varchar(500);not null"                     json:"name"`
	StartDatetime  time.Time `gorm:"type:timestamptz;not null"                      json:"start_datetime"`
	EndDatetime    time.Time `gorm:"type:timestamptz;not null"                      json:"end_datetime"`
	Lifecycle
}

// TableName 指定表名
func (EventBooking) TableName() string { return "event_bookings" }

// EventKey 事件预订自然键
type EventKey struct {
	RoomID string
	Start  int64
	End    int64
	Name   string
}

// Key 返回自然键
func (e EventBooking) Key() EventKey {
	return EventKey{RoomID: e.RoomID, Start: e.StartDatetime.Unix(), End: e.EndDatetime.Unix(), Name: e.Name}
}
