package webhookController

import (
	"academy/middleware"
	"academy/services/enrollment"
	"academy/services/intake"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
)

type Controller struct {
	intake      *intake.Intake
	enrollments *enrollment.Service
}

func New(in *intake.Intake, enrollments *enrollment.Service) *Controller {
	return &Controller{intake: in, enrollments: enrollments}
}

// HandlePaymentWebhook answers 200 only once the event is durably processed,
// so the provider keeps redelivering anything that failed
func (wc *Controller) HandlePaymentWebhook(c *fiber.Ctx) error {
	purchase, err := wc.intake.ParseWebhook(c.Body(), c.Get(intake.SignatureHeader))
	switch {
	case errors.Is(err, intake.ErrInvalidSignature):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid signature!", nil)
	case errors.Is(err, intake.ErrUnhandledEvent):
		log.Printf("[WEBHOOK] Ignoring event: %v", err)
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Event ignored.", nil)
	case err != nil:
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Malformed payload!", nil)
	}

	log.Printf("[WEBHOOK] %s %s for user %d course %d (%s)", purchase.EventType, purchase.Reference, purchase.UserID, purchase.CourseID, purchase.Status)

	out, err := wc.enrollments.Complete(c.UserContext(), purchase)
	if err != nil {
		if enrollment.IsFatal(err) {
			log.Printf("[WEBHOOK] Event %s cannot be applied: %v", purchase.EventID, err)
			return middleware.JsonResponse(c, fiber.StatusUnprocessableEntity, false, "Purchase references unknown data!", nil)
		}
		log.Printf("[WEBHOOK] Event %s failed, provider will retry: %v", purchase.EventID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process event!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Event processed.", fiber.Map{
		"paymentStatus": out.Payment.Status,
		"enrolled":      out.Enrollment != nil,
		"created":       out.Created,
	})
}
