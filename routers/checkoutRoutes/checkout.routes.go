package checkoutRoutes

import (
	checkoutControllers "academy/controllers/checkout"
	webhookControllers "academy/controllers/webhook"
	checkoutValidators "academy/validators/checkout"
	courseValidators "academy/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCheckoutRoutes sets up the purchase flow: checkout creation, the
// return page verification and the provider webhook
func SetupCheckoutRoutes(app *fiber.App, checkout *checkoutControllers.Controller, webhook *webhookControllers.Controller, jwt fiber.Handler) {
	app.Post("/course/:id/checkout", jwt, courseValidators.CourseID("id"), checkout.CreateCheckout)
	app.Get("/checkout/verify", jwt, checkoutValidators.Verify(), checkout.VerifyCheckout)

	// Authenticated by the payload signature, not a user token
	app.Post("/webhook/payment", webhook.HandlePaymentWebhook)
}
