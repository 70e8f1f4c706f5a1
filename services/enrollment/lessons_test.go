package enrollment

import (
	"academy/database/dbtest"
	courseModels "academy/models/course"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestListProgressFollowsLessonOrder(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := dbtest.CreateUser(t, db, "l@example.com")
	course := dbtest.CreateCourse(t, db, "l", 0, 2, 3)

	_, err := svc.Enroll(context.Background(), user.ID, course.ID)
	require.NoError(t, err)

	rows, err := svc.ListProgress(context.Background(), user.ID, course.ID)
	require.NoError(t, err)

	want := dbtest.LessonIDs(t, db, course.ID)
	got := make([]uint, 0, len(rows))
	for _, r := range rows {
		got = append(got, r.LessonID)
		assert.False(t, r.Completed)
		assert.Zero(t, r.Progress)
		assert.False(t, r.LastAccessed.IsZero())
	}
	assert.Equal(t, want, got)

	_, err = svc.ListProgress(context.Background(), user.ID+1, course.ID)
	assert.ErrorIs(t, err, ErrEnrollmentNotFound)
}

func TestOpenLessonSeedsLessonsAddedLater(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := dbtest.CreateUser(t, db, "late@example.com")
	course := dbtest.CreateCourse(t, db, "late", 0, 1)
	other := dbtest.CreateCourse(t, db, "other", 0, 1)
	ctx := context.Background()

	out, err := svc.Enroll(ctx, user.ID, course.ID)
	require.NoError(t, err)
	require.Equal(t, 1, out.Seeded)

	var module courseModels.Module
	require.NoError(t, db.Where("course_id = ?", course.ID).First(&module).Error)
	added := courseModels.Lesson{ModuleID: module.ID, Title: "Bonus", OrderIndex: 5}
	require.NoError(t, db.Create(&added).Error)

	row, err := svc.OpenLesson(ctx, user.ID, course.ID, added.ID)
	require.NoError(t, err)
	assert.Equal(t, added.ID, row.LessonID)
	assert.Equal(t, int64(2), dbtest.Count(t, db, &courseModels.Progress{}, "enrollment_id = ?", out.Enrollment.ID))

	var enrollment courseModels.Enrollment
	require.NoError(t, db.First(&enrollment, out.Enrollment.ID).Error)
	assert.Equal(t, courseModels.EnrollmentStatusInProgress, enrollment.Status)
	assert.Equal(t, 2, enrollment.TotalLessons)

	foreign := dbtest.LessonIDs(t, db, other.ID)[0]
	_, err = svc.OpenLesson(ctx, user.ID, course.ID, foreign)
	assert.ErrorIs(t, err, ErrLessonNotFound)

	_, err = svc.OpenLesson(ctx, user.ID, other.ID, foreign)
	assert.ErrorIs(t, err, ErrEnrollmentNotFound)
}

func TestCompleteLessonIssuesCertificateOnce(t *testing.T) {
	svc, db, mailer := newTestService(t)
	user := dbtest.CreateUser(t, db, "grad@example.com")
	course := dbtest.CreateCourse(t, db, "grad", 0, 2, 1)
	ctx := context.Background()

	_, err := svc.Enroll(ctx, user.ID, course.ID)
	require.NoError(t, err)

	lessons := dbtest.LessonIDs(t, db, course.ID)
	require.Len(t, lessons, 3)

	for i, lessonID := range lessons {
		result, err := svc.CompleteLesson(ctx, user.ID, course.ID, lessonID)
		require.NoError(t, err)
		assert.True(t, result.Progress.Completed)
		assert.Equal(t, float64(100), result.Progress.Progress)
		assert.Equal(t, i+1, result.Enrollment.CompletedLessons)

		if i < len(lessons)-1 {
			assert.Equal(t, courseModels.EnrollmentStatusInProgress, result.Enrollment.Status)
			assert.Nil(t, result.Certificate)
			continue
		}
		assert.Equal(t, courseModels.EnrollmentStatusCompleted, result.Enrollment.Status)
		assert.Equal(t, float64(100), result.Enrollment.Progress)
		require.NotNil(t, result.Certificate)
		assert.True(t, result.CertificateIssued)
		assert.Contains(t, result.Certificate.CertificateNumber, "CERT-")
	}

	// completing again is harmless and does not issue a second certificate
	again, err := svc.CompleteLesson(ctx, user.ID, course.ID, lessons[0])
	require.NoError(t, err)
	require.NotNil(t, again.Certificate)
	assert.False(t, again.CertificateIssued)

	assert.Equal(t, int64(1), dbtest.Count(t, db, &courseModels.Certificate{}))
	assert.Equal(t, 1, mailer.count("certificate"))
	assert.Equal(t, 1, mailer.count("enrollment"))
}

func TestProgressFollowsLessonReplacement(t *testing.T) {
	svc, db, mailer := newTestService(t)
	user := dbtest.CreateUser(t, db, "swap@example.com")
	course := dbtest.CreateCourse(t, db, "swap", 0, 2)
	ctx := context.Background()

	out, err := svc.Enroll(ctx, user.ID, course.ID)
	require.NoError(t, err)
	lessons := dbtest.LessonIDs(t, db, course.ID)
	require.Len(t, lessons, 2)

	// progress on a lesson that is about to be withdrawn must not count later
	_, err = svc.CompleteLesson(ctx, user.ID, course.ID, lessons[1])
	require.NoError(t, err)

	require.NoError(t, db.Model(&courseModels.Lesson{}).Where("id = ?", lessons[1]).Update("is_deleted", true).Error)
	var module courseModels.Module
	require.NoError(t, db.Where("course_id = ?", course.ID).First(&module).Error)
	added := courseModels.Lesson{ModuleID: module.ID, Title: "Replacement", OrderIndex: 9}
	require.NoError(t, db.Create(&added).Error)

	seeded, err := svc.ReseedIncomplete(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, seeded)
	assert.Equal(t, int64(1), dbtest.Count(t, db, &courseModels.Progress{}, "enrollment_id = ? AND lesson_id = ?", out.Enrollment.ID, added.ID))

	rows, err := svc.ListProgress(ctx, user.ID, course.ID)
	require.NoError(t, err)
	got := make([]uint, 0, len(rows))
	for _, r := range rows {
		got = append(got, r.LessonID)
	}
	assert.Equal(t, []uint{lessons[0], added.ID}, got)

	result, err := svc.CompleteLesson(ctx, user.ID, course.ID, lessons[0])
	require.NoError(t, err)
	assert.Equal(t, courseModels.EnrollmentStatusInProgress, result.Enrollment.Status)
	assert.Equal(t, 1, result.Enrollment.CompletedLessons)
	assert.Equal(t, float64(50), result.Enrollment.Progress)
	assert.Nil(t, result.Certificate)

	result, err = svc.CompleteLesson(ctx, user.ID, course.ID, added.ID)
	require.NoError(t, err)
	assert.Equal(t, courseModels.EnrollmentStatusCompleted, result.Enrollment.Status)
	assert.True(t, result.CertificateIssued)
	assert.Equal(t, 1, mailer.count("certificate"))
}

func TestListProgressHealsAfterLessonSwap(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := dbtest.CreateUser(t, db, "lazy@example.com")
	course := dbtest.CreateCourse(t, db, "lazy", 0, 2)
	ctx := context.Background()

	_, err := svc.Enroll(ctx, user.ID, course.ID)
	require.NoError(t, err)
	lessons := dbtest.LessonIDs(t, db, course.ID)

	require.NoError(t, db.Delete(&courseModels.Lesson{}, lessons[0]).Error)
	var module courseModels.Module
	require.NoError(t, db.Where("course_id = ?", course.ID).First(&module).Error)
	added := courseModels.Lesson{ModuleID: module.ID, Title: "New", OrderIndex: 9}
	require.NoError(t, db.Create(&added).Error)

	rows, err := svc.ListProgress(ctx, user.ID, course.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, lessons[1], rows[0].LessonID)
	assert.Equal(t, added.ID, rows[1].LessonID)
}

func TestCompletedEnrollmentStaysCompletedWhenLessonsAreAdded(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := dbtest.CreateUser(t, db, "done@example.com")
	course := dbtest.CreateCourse(t, db, "done", 0, 1)
	ctx := context.Background()

	out, err := svc.Enroll(ctx, user.ID, course.ID)
	require.NoError(t, err)
	lesson := dbtest.LessonIDs(t, db, course.ID)[0]

	result, err := svc.CompleteLesson(ctx, user.ID, course.ID, lesson)
	require.NoError(t, err)
	require.Equal(t, courseModels.EnrollmentStatusCompleted, result.Enrollment.Status)
	require.True(t, result.CertificateIssued)

	var module courseModels.Module
	require.NoError(t, db.Where("course_id = ?", course.ID).First(&module).Error)
	require.NoError(t, db.Create(&courseModels.Lesson{ModuleID: module.ID, Title: "Encore", OrderIndex: 1}).Error)

	seeded, err := svc.SeedProgress(ctx, out.Enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, seeded)

	var enrollment courseModels.Enrollment
	require.NoError(t, db.First(&enrollment, out.Enrollment.ID).Error)
	assert.Equal(t, courseModels.EnrollmentStatusCompleted, enrollment.Status)
	assert.NotNil(t, enrollment.CompletedAt)
	assert.Equal(t, float64(50), enrollment.Progress)
	assert.Equal(t, 2, enrollment.TotalLessons)
	assert.Equal(t, int64(1), dbtest.Count(t, db, &courseModels.Certificate{}))
}

func TestOpenLessonSurvivesStatusUpdateFailure(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := dbtest.CreateUser(t, db, "flaky@example.com")
	course := dbtest.CreateCourse(t, db, "flaky", 0, 1)
	ctx := context.Background()

	out, err := svc.Enroll(ctx, user.ID, course.ID)
	require.NoError(t, err)
	lesson := dbtest.LessonIDs(t, db, course.ID)[0]

	name := "test:fail_enrollment_update"
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register(name, func(d *gorm.DB) {
		if d.Statement.Table == "enrollments" {
			_ = d.AddError(errors.New("injected failure on enrollments"))
		}
	}))
	t.Cleanup(func() { _ = db.Callback().Update().Remove(name) })

	row, err := svc.OpenLesson(ctx, user.ID, course.ID, lesson)
	require.NoError(t, err)
	assert.Equal(t, lesson, row.LessonID)

	var enrollment courseModels.Enrollment
	require.NoError(t, db.First(&enrollment, out.Enrollment.ID).Error)
	assert.Equal(t, courseModels.EnrollmentStatusEnrolled, enrollment.Status)
}
