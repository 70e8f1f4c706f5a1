package course

import "time"

// Certificate is issued once a user completes every lesson of a course
type Certificate struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	UserID            uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_certificates_user_course,priority:1"`
	CourseID          uint      `json:"course_id" gorm:"not null;uniqueIndex:idx_certificates_user_course,priority:2"`
	EnrollmentID      uint      `json:"enrollment_id" gorm:"index;not null"`
	CertificateNumber string    `json:"certificate_number" gorm:"type:varchar(64);uniqueIndex;not null"`
	IssuedAt          time.Time `json:"issued_at"`
}
