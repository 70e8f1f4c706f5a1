package course

import "gorm.io/gorm"

// Module represents a section within a course
type Module struct {
	gorm.Model
	CourseID   uint     `json:"course_id" gorm:"index;not null"`
	Title      string   `json:"title"`
	OrderIndex int      `json:"order_index" gorm:"default:0"` // Module order in course
	IsDeleted  bool     `json:"-" gorm:"default:false"`
	Lessons    []Lesson `json:"lessons,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}
