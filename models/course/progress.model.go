package course

import "time"

// Progress is the per-lesson state of an enrollment
type Progress struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	EnrollmentID uint       `json:"enrollment_id" gorm:"not null;uniqueIndex:idx_progress_enrollment_lesson,priority:1"`
	LessonID     uint       `json:"lesson_id" gorm:"not null;uniqueIndex:idx_progress_enrollment_lesson,priority:2"`
	Completed    bool       `json:"completed" gorm:"not null;default:false"`
	Progress     float64    `json:"progress" gorm:"not null;default:0"`
	LastAccessed time.Time  `json:"last_accessed"`
	CompletedAt  *time.Time `json:"completed_at"`

	Enrollment *Enrollment `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

func (Progress) TableName() string {
	return "progress"
}
