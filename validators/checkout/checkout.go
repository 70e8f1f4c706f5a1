package checkoutValidator

import (
	"academy/middleware"
	"academy/validators"
	"strings"

	"github.com/gofiber/fiber/v2"
)

type VerifyQuery struct {
	SessionID string `query:"session_id" validate:"required,max=255"`
}

// Verify validates the session_id query of the checkout return page
func Verify() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(VerifyQuery)
		if err := c.QueryParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request query!", nil)
		}
		reqData.SessionID = strings.TrimSpace(reqData.SessionID)

		if errors := validators.Struct(reqData); errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("sessionID", reqData.SessionID)
		return c.Next()
	}
}
