package middleware

import (
	"academy/models"
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// RequireRole only lets active users with the given role through. It must run
// after JWTMiddleware.
func RequireRole(db *gorm.DB, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("userId").(uint)
		if !ok {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized: User ID not found", nil)
		}

		var user models.User
		err := db.WithContext(c.UserContext()).
			Where("id = ? AND is_deleted = ?", userID, false).
			First(&user).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
			}
			return JsonResponse(c, fiber.StatusInternalServerError, false, "Server error while checking permissions!", nil)
		}

		if user.Role != role {
			return JsonResponse(c, fiber.StatusForbidden, false, "You do not have permission to access this resource!", nil)
		}

		return c.Next()
	}
}
