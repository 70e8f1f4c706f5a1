package checkoutController

import (
	"academy/middleware"
	"academy/models"
	courseModels "academy/models/course"
	"academy/services/enrollment"
	"academy/services/gateway"
	"academy/services/intake"
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const providerName = "checkout"

// SessionCreator opens hosted checkout sessions
type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, req gateway.CheckoutRequest) (*gateway.Session, error)
}

type Controller struct {
	db          *gorm.DB
	sessions    SessionCreator
	intake      *intake.Intake
	enrollments *enrollment.Service
	successURL  string
	cancelURL   string
}

func New(db *gorm.DB, sessions SessionCreator, in *intake.Intake, enrollments *enrollment.Service, successURL, cancelURL string) *Controller {
	return &Controller{
		db:          db,
		sessions:    sessions,
		intake:      in,
		enrollments: enrollments,
		successURL:  successURL,
		cancelURL:   cancelURL,
	}
}

// CreateCheckout opens a checkout session for a paid course and records the
// pending payment. Free courses are enrolled right away.
func (cc *Controller) CreateCheckout(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	courseID := c.Locals("courseID").(uint)

	var user models.User
	if err := cc.db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	var course courseModels.Course
	if err := cc.db.Where("id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	if _, err := cc.enrollments.FindEnrollment(c.UserContext(), userID, courseID); err == nil {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "You are already enrolled in this course!", nil)
	}

	if course.Price <= 0 {
		out, err := cc.enrollments.Enroll(c.UserContext(), userID, courseID)
		if err != nil {
			log.Printf("[ENROLLMENT] Free enrollment of user %d in course %d failed: %v", userID, courseID, err)
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to enroll in course!", nil)
		}
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrolled in course successfully!", fiber.Map{
			"enrolled":   true,
			"enrollment": out.Enrollment,
		})
	}

	session, err := cc.sessions.CreateCheckoutSession(c.UserContext(), gateway.CheckoutRequest{
		LineItems: []gateway.LineItem{{
			Name:     course.Title,
			Amount:   course.Price,
			Currency: course.Currency,
			Quantity: 1,
		}},
		SuccessURL:        cc.successURL,
		CancelURL:         cc.cancelURL,
		ClientReferenceID: fmt.Sprint(userID),
		Metadata: map[string]string{
			"userId":   fmt.Sprint(userID),
			"courseId": fmt.Sprint(courseID),
		},
	})
	if err != nil {
		log.Printf("[CHECKOUT] Creating session for user %d course %d failed: %v", userID, courseID, err)
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false, "Payment provider is unavailable, please try again!", nil)
	}

	payment := models.Payment{
		UserID:            userID,
		CourseID:          courseID,
		Provider:          providerName,
		ExternalReference: session.ID,
		Amount:            course.Price,
		Currency:          course.Currency,
		Status:            models.PaymentStatusPending,
		Metadata: map[string]interface{}{
			"userId":   fmt.Sprint(userID),
			"courseId": fmt.Sprint(courseID),
		},
	}
	err = cc.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_reference"}},
		DoNothing: true,
	}).Create(&payment).Error
	if err != nil {
		log.Printf("[CHECKOUT] Recording pending payment %s failed: %v", session.ID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to start checkout!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Checkout session created.", fiber.Map{
		"sessionId": session.ID,
		"url":       session.URL,
	})
}

// VerifyCheckout confirms a session on the return page. The provider is the
// source of truth, so a delayed webhook cannot leave the buyer without access.
func (cc *Controller) VerifyCheckout(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	sessionID := c.Locals("sessionID").(string)

	purchase, err := cc.intake.VerifySession(c.UserContext(), sessionID, userID)
	switch {
	case errors.Is(err, intake.ErrSessionNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Checkout session not found!", nil)
	case errors.Is(err, intake.ErrOwnershipMismatch):
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "This checkout session does not belong to you!", nil)
	case err != nil:
		log.Printf("[CHECKOUT] Verifying session %s failed: %v", sessionID, err)
		return processing(c)
	}

	out, err := cc.enrollments.Complete(c.UserContext(), purchase)
	if err != nil {
		log.Printf("[CHECKOUT] Completing session %s failed: %v", sessionID, err)
		return processing(c)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Purchase verified.", fiber.Map{
		"success":       out.Payment.Status == models.PaymentStatusSucceeded,
		"paymentStatus": out.Payment.Status,
		"enrollment":    out.Enrollment,
	})
}

func processing(c *fiber.Ctx) error {
	return middleware.JsonResponse(c, fiber.StatusAccepted, true, "We're processing your purchase!", fiber.Map{
		"success":       false,
		"paymentStatus": "processing",
	})
}
