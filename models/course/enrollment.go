package course

import "time"

const (
	EnrollmentStatusEnrolled   = "ENROLLED"
	EnrollmentStatusInProgress = "IN_PROGRESS"
	EnrollmentStatusCompleted  = "COMPLETED"
)

// Enrollment grants a user access to a course. There is at most one per
// (user_id, course_id).
type Enrollment struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	UserID           uint       `json:"user_id" gorm:"not null;uniqueIndex:idx_enrollments_user_course,priority:1"`
	CourseID         uint       `json:"course_id" gorm:"not null;uniqueIndex:idx_enrollments_user_course,priority:2;index"`
	PaymentID        *uint      `json:"payment_id"`
	Status           string     `json:"status" gorm:"type:varchar(20);default:'ENROLLED'"`
	Progress         float64    `json:"progress" gorm:"default:0"` // Completion percentage (0-100)
	CompletedLessons int        `json:"completed_lessons" gorm:"default:0"`
	TotalLessons     int        `json:"total_lessons" gorm:"default:0"`
	EnrolledAt       time.Time  `json:"enrolled_at" gorm:"not null"`
	CompletedAt      *time.Time `json:"completed_at"`
	Lessons          []Progress `json:"lessons,omitempty" gorm:"foreignKey:EnrollmentID"`
}
