package courseValidator

import (
	"academy/middleware"
	"academy/validators"

	"github.com/gofiber/fiber/v2"
)

// CourseID validates a course id route param and stores it in
// c.Locals("courseID")
func CourseID(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok := validators.ParseID(c.Params(param))
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Course ID!", nil)
		}

		c.Locals("courseID", courseID)
		return c.Next()
	}
}

// Lesson validates the course_id and lesson_id route params
func Lesson() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok := validators.ParseID(c.Params("course_id"))
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Course ID!", nil)
		}
		lessonID, ok := validators.ParseID(c.Params("lesson_id"))
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Lesson ID!", nil)
		}

		c.Locals("courseID", courseID)
		c.Locals("lessonID", lessonID)
		return c.Next()
	}
}
