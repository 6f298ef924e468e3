package model

// Course 课程表，对应 courses，自然键 code
type Course struct {
	CourseID   string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"course_id"`
	Code       string      `gorm:"type:varchar(50);not null"                      json:"code"`
	Name       string      `gorm:"type:varchar(300);not null"                     json:"name"`
	Credits    *int        `gorm:"type:int"                                       json:"credits,omitempty"`
	EduURL     string      `gorm:"column:edu_url;type:varchar(500)"               json:"edu_url"`
	Language   *string     `gorm:"type:varchar(50)"                               json:"language,omitempty"`
	TeacherIDs StringArray `gorm:"type:uuid[]"                                    json:"teacher_ids"` // 有序
	Lifecycle
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }

// Teacher 教师表，对应 teachers
// 创建时按 name 去重，关联课程时按 people_url 匹配
type Teacher struct {
	TeacherID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"teacher_id"`
	Name      string `gorm:"type:varchar(200);not null"                     json:"name"`
	PeopleURL string `gorm:"column:people_url;type:varchar(500)"            json:"people_url"`
	Lifecycle
}

// TableName 指定表名
func (Teacher) TableName() string { return "teachers" }
