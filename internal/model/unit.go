package model

// Unit 教学单元，对应 units，自然键 name（section 或 "section - 长学期名"）
type Unit struct {
	UnitID  string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"unit_id"`
	Name    string  `gorm:"type:varchar(300);not null"                     json:"name"`
	Code    string  `gorm:"type:varchar(50);not null"                      json:"code"`
	Section string  `gorm:"type:varchar(20);not null"                      json:"section"`
	Promo   *string `gorm:"type:varchar(20)"                               json:"promo,omitempty"`
	Lifecycle
}

// TableName 指定表名
func (Unit) TableName() string { return "units" }

// StudyPlan 单元 × 学期，对应 studyplans
type StudyPlan struct {
	StudyPlanID string `gorm:"column:studyplan_id;type:uuid;primaryKey;default:gen_random_uuid()" json:"studyplan_id"`
	UnitID      string `gorm:"type:uuid;not null"                                                 json:"unit_id"`
	SemesterID  string `gorm:"type:uuid;not null"                                                 json:"semester_id"`
	Lifecycle
}

// TableName 指定表名
func (StudyPlan) TableName() string { return "studyplans" }

// StudyPlanKey 学习计划自然键
type StudyPlanKey struct {
	UnitID     string
	SemesterID string
}

// Key 返回自然键
func (p StudyPlan) Key() StudyPlanKey {
	return StudyPlanKey{UnitID: p.UnitID, SemesterID: p.SemesterID}
}

// PlannedIn 学习计划 × 课程，对应 planned_in
type PlannedIn struct {
	PlannedInID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"  json:"planned_in_id"`
	StudyPlanID string `gorm:"column:studyplan_id;type:uuid;not null"          json:"studyplan_id"`
	CourseID    string `gorm:"type:uuid;not null"                              json:"course_id"`
	Lifecycle
}

// TableName 指定表名
func (PlannedIn) TableName() string { return "planned_in" }

// PlannedInKey 计划课程自然键
type PlannedInKey struct {
	StudyPlanID string
	CourseID    string
}

// Key 返回自然键
func (p PlannedIn) Key() PlannedInKey {
	return PlannedInKey{StudyPlanID: p.StudyPlanID, CourseID: p.CourseID}
}
