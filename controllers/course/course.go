package courseController

import (
	"academy/middleware"
	courseModels "academy/models/course"
	"academy/services/enrollment"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Controller struct {
	db          *gorm.DB
	enrollments *enrollment.Service
}

func New(db *gorm.DB, enrollments *enrollment.Service) *Controller {
	return &Controller{db: db, enrollments: enrollments}
}

// enrollmentError maps service errors to a response
func enrollmentError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, enrollment.ErrEnrollmentNotFound):
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "You are not enrolled in this course!", nil)
	case errors.Is(err, enrollment.ErrLessonNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found!", nil)
	default:
		log.Printf("[PROGRESS] %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process your request!", nil)
	}
}

// GetUserEnrollments lists the caller's enrollments with their courses
func (cc *Controller) GetUserEnrollments(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var enrollments []courseModels.Enrollment
	if err := cc.db.Where("user_id = ?", userID).Order("enrolled_at desc").Find(&enrollments).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch enrollments!", nil)
	}

	courseIDs := make([]uint, 0, len(enrollments))
	for _, e := range enrollments {
		courseIDs = append(courseIDs, e.CourseID)
	}
	var courses []courseModels.Course
	if len(courseIDs) > 0 {
		if err := cc.db.Where("id IN ?", courseIDs).Find(&courses).Error; err != nil {
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch enrollments!", nil)
		}
	}
	byID := make(map[uint]courseModels.Course, len(courses))
	for _, course := range courses {
		byID[course.ID] = course
	}

	items := make([]fiber.Map, 0, len(enrollments))
	for _, e := range enrollments {
		items = append(items, fiber.Map{
			"enrollment": e,
			"course":     byID[e.CourseID],
		})
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollments fetched successfully!", fiber.Map{
		"enrollments": items,
		"total":       len(items),
	})
}

// GetCourseProgress returns the caller's progress rows in lesson order
func (cc *Controller) GetCourseProgress(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	courseID := c.Locals("courseID").(uint)

	rows, err := cc.enrollments.ListProgress(c.UserContext(), userID, courseID)
	if err != nil {
		return enrollmentError(c, err)
	}
	current, err := cc.enrollments.FindEnrollment(c.UserContext(), userID, courseID)
	if err != nil {
		return enrollmentError(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress fetched successfully!", fiber.Map{
		"enrollment": current,
		"lessons":    rows,
	})
}

// OpenLesson returns a lesson and records the access
func (cc *Controller) OpenLesson(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	courseID := c.Locals("courseID").(uint)
	lessonID := c.Locals("lessonID").(uint)

	row, err := cc.enrollments.OpenLesson(c.UserContext(), userID, courseID, lessonID)
	if err != nil {
		return enrollmentError(c, err)
	}

	var lesson courseModels.Lesson
	if err := cc.db.First(&lesson, lessonID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson fetched successfully!", fiber.Map{
		"lesson":   lesson,
		"progress": row,
	})
}

// CompleteLesson marks a lesson complete for the caller
func (cc *Controller) CompleteLesson(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	courseID := c.Locals("courseID").(uint)
	lessonID := c.Locals("lessonID").(uint)

	result, err := cc.enrollments.CompleteLesson(c.UserContext(), userID, courseID, lessonID)
	if err != nil {
		return enrollmentError(c, err)
	}

	message := "Lesson completed!"
	if result.CertificateIssued {
		message = "Course completed, your certificate has been issued!"
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, message, result)
}

// GetUserCertificates lists the caller's certificates
func (cc *Controller) GetUserCertificates(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var certificates []courseModels.Certificate
	if err := cc.db.Where("user_id = ?", userID).Order("issued_at desc").Find(&certificates).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch certificates!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificates fetched successfully!", certificates)
}
