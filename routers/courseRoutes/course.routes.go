package courseRoutes

import (
	controllers "academy/controllers/course"
	validators "academy/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes sets up the learner facing course routes
func SetupCourseRoutes(app *fiber.App, course *controllers.Controller, jwt fiber.Handler) {
	courseGroup := app.Group("/course")

	// Progress and lessons
	courseGroup.Get("/:course_id/progress", jwt, validators.CourseID("course_id"), course.GetCourseProgress)
	courseGroup.Get("/:course_id/lesson/:lesson_id", jwt, validators.Lesson(), course.OpenLesson)
	courseGroup.Post("/:course_id/lesson/:lesson_id/complete", jwt, validators.Lesson(), course.CompleteLesson)

	userGroup := app.Group("/user")
	userGroup.Get("/enrollments", jwt, course.GetUserEnrollments)
	userGroup.Get("/certificates", jwt, course.GetUserCertificates)
}
