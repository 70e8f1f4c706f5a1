package enrollment

import (
	"academy/models"
	courseModels "academy/models/course"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LessonResult is returned when a lesson is completed
type LessonResult struct {
	Progress    courseModels.Progress     `json:"progress"`
	Enrollment  courseModels.Enrollment   `json:"enrollment"`
	Certificate *courseModels.Certificate `json:"certificate,omitempty"`
	// CertificateIssued is true only for the call that issued it
	CertificateIssued bool `json:"certificate_issued"`
}

// FindEnrollment returns the caller's enrollment in a course
func (s *Service) FindEnrollment(ctx context.Context, userID, courseID uint) (courseModels.Enrollment, error) {
	var enrollment courseModels.Enrollment
	err := s.db.WithContext(ctx).Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return enrollment, ErrEnrollmentNotFound
		}
		return enrollment, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return enrollment, nil
}

// ListProgress returns the progress rows of the caller's enrollment in lesson
// order, seeding missing rows first
func (s *Service) ListProgress(ctx context.Context, userID, courseID uint) ([]courseModels.Progress, error) {
	enrollment, err := s.FindEnrollment(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	ids, err := lessonIDs(db, courseID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	var seeded []uint
	if err := db.Model(&courseModels.Progress{}).Where("enrollment_id = ?", enrollment.ID).Pluck("lesson_id", &seeded).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if missingAny(ids, seeded) {
		// lazy seeding; a failure here still lets the caller see what exists
		if _, err := s.SeedProgress(ctx, enrollment.ID); err != nil {
			log.Printf("[PROGRESS] Lazy seed for enrollment %d failed: %v", enrollment.ID, err)
		}
	}

	var rows []courseModels.Progress
	err = liveProgress(db).
		Where("progress.enrollment_id = ?", enrollment.ID).
		Order("modules.order_index, lessons.order_index, lessons.id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return rows, nil
}

// OpenLesson records an access to a lesson and returns its progress row,
// creating missing rows on the way
func (s *Service) OpenLesson(ctx context.Context, userID, courseID, lessonID uint) (courseModels.Progress, error) {
	enrollment, row, err := s.lessonProgress(ctx, userID, courseID, lessonID)
	if err != nil {
		return row, err
	}

	row.LastAccessed = s.now()
	if err := s.db.WithContext(ctx).Model(&row).Update("last_accessed", row.LastAccessed).Error; err != nil {
		return row, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if enrollment.Status == courseModels.EnrollmentStatusEnrolled {
		err := s.db.WithContext(ctx).Model(&enrollment).Update("status", courseModels.EnrollmentStatusInProgress).Error
		if err != nil {
			log.Printf("[PROGRESS] Could not mark enrollment %d in progress: %v", enrollment.ID, err)
		}
	}
	return row, nil
}

// CompleteLesson marks a lesson complete, refreshes the enrollment aggregate
// and issues the certificate once every lesson is done
func (s *Service) CompleteLesson(ctx context.Context, userID, courseID, lessonID uint) (LessonResult, error) {
	enrollment, row, err := s.lessonProgress(ctx, userID, courseID, lessonID)
	if err != nil {
		return LessonResult{}, err
	}

	var result LessonResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		if !row.Completed {
			row.Completed = true
			row.Progress = 100
			row.CompletedAt = &now
		}
		row.LastAccessed = now
		if err := tx.Model(&row).Updates(map[string]interface{}{
			"completed":     row.Completed,
			"progress":      row.Progress,
			"completed_at":  row.CompletedAt,
			"last_accessed": row.LastAccessed,
		}).Error; err != nil {
			return err
		}

		ids, err := lessonIDs(tx, courseID)
		if err != nil {
			return err
		}
		updated, err := s.recalculate(tx, enrollment.ID, len(ids))
		if err != nil {
			return err
		}
		result.Progress = row
		result.Enrollment = updated

		if updated.Status != courseModels.EnrollmentStatusCompleted {
			return nil
		}
		certificate, issued, err := s.issueCertificate(tx, updated)
		if err != nil {
			return err
		}
		result.Certificate = &certificate
		result.CertificateIssued = issued
		return nil
	})
	if err != nil {
		return LessonResult{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if result.CertificateIssued {
		s.notifyCertificate(ctx, result.Certificate)
	}
	return result, nil
}

// lessonProgress loads the enrollment and the progress row for a lesson,
// lazily seeding when the row is missing
func (s *Service) lessonProgress(ctx context.Context, userID, courseID, lessonID uint) (courseModels.Enrollment, courseModels.Progress, error) {
	var row courseModels.Progress

	enrollment, err := s.FindEnrollment(ctx, userID, courseID)
	if err != nil {
		return enrollment, row, err
	}

	db := s.db.WithContext(ctx)
	ids, err := lessonIDs(db, courseID)
	if err != nil {
		return enrollment, row, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !containsID(ids, lessonID) {
		return enrollment, row, fmt.Errorf("%w: lesson %d course %d", ErrLessonNotFound, lessonID, courseID)
	}

	err = db.Where("enrollment_id = ? AND lesson_id = ?", enrollment.ID, lessonID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if _, err := s.SeedProgress(ctx, enrollment.ID); err != nil {
			return enrollment, row, err
		}
		err = db.Where("enrollment_id = ? AND lesson_id = ?", enrollment.ID, lessonID).First(&row).Error
	}
	if err != nil {
		return enrollment, row, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return enrollment, row, nil
}

// issueCertificate creates the certificate for a completed enrollment unless
// one exists already
func (s *Service) issueCertificate(tx *gorm.DB, enrollment courseModels.Enrollment) (courseModels.Certificate, bool, error) {
	certificate := courseModels.Certificate{
		UserID:            enrollment.UserID,
		CourseID:          enrollment.CourseID,
		EnrollmentID:      enrollment.ID,
		CertificateNumber: certificateNumber(enrollment),
		IssuedAt:          s.now(),
	}
	result := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoNothing: true,
	}).Create(&certificate)
	if result.Error != nil {
		return certificate, false, result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("[CERTIFICATE] Issued %s to user %d for course %d", certificate.CertificateNumber, enrollment.UserID, enrollment.CourseID)
		return certificate, true, nil
	}

	var existing courseModels.Certificate
	err := tx.Where("user_id = ? AND course_id = ?", enrollment.UserID, enrollment.CourseID).First(&existing).Error
	return existing, false, err
}

func (s *Service) notifyCertificate(ctx context.Context, certificate *courseModels.Certificate) {
	if s.mailer == nil {
		return
	}
	var user models.User
	var course courseModels.Course
	db := s.db.WithContext(ctx)
	if err := db.First(&user, certificate.UserID).Error; err != nil {
		log.Printf("[CERTIFICATE] Could not load user %d for email: %v", certificate.UserID, err)
		return
	}
	if err := db.First(&course, certificate.CourseID).Error; err != nil {
		log.Printf("[CERTIFICATE] Could not load course %d for email: %v", certificate.CourseID, err)
		return
	}
	s.mailer.SendCertificateEmail(user.Email, user.Name, course.Title, certificate.CertificateNumber)
}

func certificateNumber(enrollment courseModels.Enrollment) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("CERT-%d-%d-%s", enrollment.CourseID, enrollment.UserID, suffix)
}

// missingAny reports whether some id in want is absent from have
func missingAny(want, have []uint) bool {
	seen := make(map[uint]bool, len(have))
	for _, id := range have {
		seen[id] = true
	}
	for _, id := range want {
		if !seen[id] {
			return true
		}
	}
	return false
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
