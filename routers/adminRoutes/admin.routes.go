package adminRoutes

import (
	adminControllers "academy/controllers/admin"
	"academy/middleware"
	"academy/models"
	adminValidators "academy/validators/admin"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupAdminRoutes sets up the operator routes, restricted to admins
func SetupAdminRoutes(app *fiber.App, db *gorm.DB, admin *adminControllers.Controller, jwt fiber.Handler) {
	adminGroup := app.Group("/admin", jwt, middleware.RequireRole(db, models.RoleAdmin))

	adminGroup.Post("/enrollment/:id/reseed", adminValidators.EnrollmentID(), admin.ReseedEnrollment)
	adminGroup.Get("/payments", adminValidators.PaymentList(), admin.ListPayments)
}
