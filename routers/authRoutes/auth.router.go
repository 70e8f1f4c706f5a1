package authRoutes

import (
	authControllers "academy/controllers/auth"
	authValidators "academy/validators/auth"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(app *fiber.App, auth *authControllers.Controller) {
	authGroup := app.Group("/auth")

	authGroup.Post("/signup", authValidators.Signup(), auth.Signup)
	authGroup.Post("/login", authValidators.Login(), auth.Login)
}
