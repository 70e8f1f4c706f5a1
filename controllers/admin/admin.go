package adminController

import (
	"academy/middleware"
	"academy/models"
	"academy/services/enrollment"
	adminValidator "academy/validators/admin"
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

// ReseedEnrollment creates any missing progress rows for one enrollment
func (ac *Controller) ReseedEnrollment(c *fiber.Ctx) error {
	enrollmentID := c.Locals("enrollmentID").(uint)

	seeded, err := ac.enrollments.SeedProgress(c.UserContext(), enrollmentID)
	if err != nil {
		if errors.Is(err, enrollment.ErrEnrollmentNotFound) {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Enrollment not found!", nil)
		}
		log.Printf("[PROGRESS] Admin reseed of enrollment %d failed: %v", enrollmentID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to reseed progress!", fiber.Map{
			"seeded": seeded,
		})
	}

	log.Printf("[PROGRESS] Admin reseeded enrollment %d, %d rows created", enrollmentID, seeded)
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress reseeded successfully!", fiber.Map{
		"enrollmentId": enrollmentID,
		"seeded":       seeded,
	})
}

// ListPayments pages through the payment ledger
func (ac *Controller) ListPayments(c *fiber.Ctx) error {
	reqData := c.Locals("validatedPaymentList").(*adminValidator.PaymentListQuery)

	query := ac.db.Model(&models.Payment{})
	if reqData.Status != "" {
		query = query.Where("status = ?", reqData.Status)
	}
	if reqData.UserID != 0 {
		query = query.Where("user_id = ?", reqData.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch payments!", nil)
	}

	var payments []models.Payment
	offset := (reqData.Page - 1) * reqData.Limit
	if err := query.Order("created_at desc").Offset(offset).Limit(reqData.Limit).Find(&payments).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch payments!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Payments fetched successfully!", fiber.Map{
		"payments": payments,
		"pagination": fiber.Map{
			"total": total,
			"page":  reqData.Page,
			"limit": reqData.Limit,
		},
	})
}
