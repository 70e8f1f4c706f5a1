package adminValidator

import (
	"academy/middleware"
	"academy/validators"

	"github.com/gofiber/fiber/v2"
)

type PaymentListQuery struct {
	Status string `query:"status" validate:"omitempty,oneof=pending succeeded failed"`
	UserID uint   `query:"user_id"`
	Page   int    `query:"page" validate:"omitempty,min=1"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

// EnrollmentID validates the :id param of enrollment admin routes
func EnrollmentID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		enrollmentID, ok := validators.ParseID(c.Params("id"))
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Enrollment ID!", nil)
		}

		c.Locals("enrollmentID", enrollmentID)
		return c.Next()
	}
}

// PaymentList validates the payment ledger filters
func PaymentList() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(PaymentListQuery)
		if err := c.QueryParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request query!", nil)
		}

		if errors := validators.Struct(reqData); errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}

		if reqData.Page == 0 {
			reqData.Page = 1
		}
		if reqData.Limit == 0 {
			reqData.Limit = 20
		}

		c.Locals("validatedPaymentList", reqData)
		return c.Next()
	}
}
