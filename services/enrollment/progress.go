package enrollment

import (
	courseModels "academy/models/course"
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const seedSavepoint = "seed_progress"

var progressConflict = clause.OnConflict{
	Columns:   []clause.Column{{Name: "enrollment_id"}, {Name: "lesson_id"}},
	DoNothing: true,
}

// lessonIDs returns the live lessons of a course ordered by module then lesson
func lessonIDs(db *gorm.DB, courseID uint) ([]uint, error) {
	var ids []uint
	err := db.Model(&courseModels.Lesson{}).
		Joins("JOIN modules ON modules.id = lessons.module_id AND modules.deleted_at IS NULL").
		Where("modules.course_id = ? AND modules.is_deleted = ? AND lessons.is_deleted = ?", courseID, false, false).
		Order("modules.order_index, lessons.order_index, lessons.id").
		Pluck("lessons.id", &ids).Error
	return ids, err
}

// liveProgress limits a progress query to rows whose lesson is still part of
// the course
func liveProgress(db *gorm.DB) *gorm.DB {
	return db.
		Joins("JOIN lessons ON lessons.id = progress.lesson_id AND lessons.deleted_at IS NULL AND lessons.is_deleted = ?", false).
		Joins("JOIN modules ON modules.id = lessons.module_id AND modules.deleted_at IS NULL AND modules.is_deleted = ?", false)
}

// seedInSavepoint inserts the progress rows of a new enrollment. On failure
// only the savepoint is rolled back so the enrollment survives.
func (s *Service) seedInSavepoint(tx *gorm.DB, enrollment *courseModels.Enrollment) (int, error) {
	if err := tx.SavePoint(seedSavepoint).Error; err != nil {
		return 0, err
	}

	n, err := s.seedBatch(tx, enrollment)
	if err != nil {
		if rbErr := tx.RollbackTo(seedSavepoint).Error; rbErr != nil {
			return 0, fmt.Errorf("%v (rollback to savepoint: %w)", err, rbErr)
		}
		return 0, err
	}
	return n, nil
}

func (s *Service) seedBatch(tx *gorm.DB, enrollment *courseModels.Enrollment) (int, error) {
	ids, err := lessonIDs(tx, enrollment.CourseID)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	now := s.now()
	rows := make([]courseModels.Progress, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, courseModels.Progress{
			EnrollmentID: enrollment.ID,
			LessonID:     id,
			LastAccessed: now,
		})
	}

	result := tx.Clauses(progressConflict).CreateInBatches(&rows, 100)
	if result.Error != nil {
		return 0, result.Error
	}

	if err := tx.Model(enrollment).Update("total_lessons", len(ids)).Error; err != nil {
		return 0, err
	}
	enrollment.TotalLessons = len(ids)
	return int(result.RowsAffected), nil
}

// SeedProgress creates any missing progress rows for an enrollment. Each row
// is inserted on its own with a bounded retry, so it is safe to call at any
// time and any number of times.
func (s *Service) SeedProgress(ctx context.Context, enrollmentID uint) (int, error) {
	db := s.db.WithContext(ctx)

	var enrollment courseModels.Enrollment
	if err := db.First(&enrollment, enrollmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: %d", ErrEnrollmentNotFound, enrollmentID)
		}
		return 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	ids, err := lessonIDs(db, enrollment.CourseID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	var seeded []uint
	if err := db.Model(&courseModels.Progress{}).Where("enrollment_id = ?", enrollmentID).Pluck("lesson_id", &seeded).Error; err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	have := make(map[uint]bool, len(seeded))
	for _, id := range seeded {
		have[id] = true
	}

	inserted := 0
	for _, lessonID := range ids {
		if have[lessonID] {
			continue
		}
		lessonID := lessonID
		err := s.withRetry(ctx, s.seedAttempts, fmt.Sprintf("seed lesson %d of enrollment %d", lessonID, enrollmentID), func() error {
			row := courseModels.Progress{EnrollmentID: enrollmentID, LessonID: lessonID, LastAccessed: s.now()}
			result := db.Clauses(progressConflict).Create(&row)
			if result.Error != nil {
				return result.Error
			}
			inserted += int(result.RowsAffected)
			return nil
		})
		if err != nil {
			log.Printf("[PROGRESS] PartialSeedFailure for enrollment %d after %d rows: %v", enrollmentID, inserted, err)
			return inserted, err
		}
	}

	if _, err := s.recalculate(db, enrollmentID, len(ids)); err != nil {
		return inserted, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if inserted > 0 {
		log.Printf("[PROGRESS] Seeded %d missing progress rows for enrollment %d", inserted, enrollmentID)
	}
	return inserted, nil
}

// ReseedIncomplete seeds every enrollment that lacks a progress row for at
// least one live lesson of its course
func (s *Service) ReseedIncomplete(ctx context.Context) (int, error) {
	db := s.db.WithContext(ctx)

	missingLesson := db.Model(&courseModels.Lesson{}).
		Select("1").
		Joins("JOIN modules ON modules.id = lessons.module_id AND modules.deleted_at IS NULL").
		Where("modules.course_id = enrollments.course_id AND modules.is_deleted = ? AND lessons.is_deleted = ?", false, false).
		Where("NOT EXISTS (SELECT 1 FROM progress WHERE progress.enrollment_id = enrollments.id AND progress.lesson_id = lessons.id)")

	var ids []uint
	err := db.Model(&courseModels.Enrollment{}).
		Where("EXISTS (?)", missingLesson).
		Pluck("enrollments.id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	total := 0
	for _, id := range ids {
		n, err := s.SeedProgress(ctx, id)
		total += n
		if err != nil {
			// keep going, the next sweep picks it up again
			log.Printf("[PROGRESS] Reseed of enrollment %d failed: %v", id, err)
		}
	}
	return total, nil
}

// recalculate refreshes the aggregate progress of an enrollment from its rows
func (s *Service) recalculate(db *gorm.DB, enrollmentID uint, totalLessons int) (courseModels.Enrollment, error) {
	var enrollment courseModels.Enrollment
	if err := db.First(&enrollment, enrollmentID).Error; err != nil {
		return enrollment, err
	}

	var completed int64
	err := liveProgress(db.Model(&courseModels.Progress{})).
		Where("progress.enrollment_id = ? AND progress.completed = ?", enrollmentID, true).
		Count(&completed).Error
	if err != nil {
		return enrollment, err
	}

	percent := 0.0
	if totalLessons > 0 {
		percent = float64(completed) * 100 / float64(totalLessons)
		if percent > 100 {
			percent = 100
		}
	}

	// status only moves forward; a completed course that gains lessons keeps
	// its completion and certificate while the percentage drops
	status := enrollment.Status
	if status == "" {
		status = courseModels.EnrollmentStatusEnrolled
	}
	switch {
	case status == courseModels.EnrollmentStatusCompleted:
	case totalLessons > 0 && int(completed) >= totalLessons:
		status = courseModels.EnrollmentStatusCompleted
	case completed > 0:
		status = courseModels.EnrollmentStatusInProgress
	}

	updates := map[string]interface{}{
		"progress":          percent,
		"completed_lessons": int(completed),
		"total_lessons":     totalLessons,
		"status":            status,
	}
	if status == courseModels.EnrollmentStatusCompleted && enrollment.CompletedAt == nil {
		completedAt := s.now()
		updates["completed_at"] = completedAt
		enrollment.CompletedAt = &completedAt
	}
	if err := db.Model(&enrollment).Updates(updates).Error; err != nil {
		return enrollment, err
	}

	enrollment.Progress = percent
	enrollment.CompletedLessons = int(completed)
	enrollment.TotalLessons = totalLessons
	enrollment.Status = status
	return enrollment, nil
}
