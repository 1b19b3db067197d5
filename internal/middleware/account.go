package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pvolkov/filecrate/internal/apperr"
	"github.com/pvolkov/filecrate/internal/models"
	"gorm.io/gorm"
)

const accountKey = "account"

// LoadAccount turns the verified JWT into a live account. The account is
// loaded from the database on every request, never cached, so a deactivated
// or soft-deleted account loses access immediately even while its token is
// still cryptographically valid. Failures are uniform.
func LoadAccount(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tok, ok := c.Locals("user").(*jwt.Token)
		if !ok || tok == nil {
			return apperr.Unauthorized("invalid token")
		}

		claims, ok := tok.Claims.(jwt.MapClaims)
		if !ok {
			return apperr.Unauthorized("invalid token")
		}

		purpose, _ := claims["purpose"].(string)
		if purpose != "access" {
			return apperr.Unauthorized("invalid token")
		}

		sub, _ := claims["sub"].(string)
		userID, err := uuid.Parse(sub)
		if err != nil {
			return apperr.Unauthorized("invalid token")
		}

		var user models.User
		if err := db.First(&user, "id = ?", userID).Error; err != nil {
			return apperr.Unauthorized("invalid token")
		}
		if !user.IsActive {
			return apperr.Unauthorized("invalid token")
		}

		c.Locals(accountKey, &user)
		return c.Next()
	}
}

// RequireRoles allows only the listed roles through. The allow-list is
// explicit per route; admins are not implicitly granted anything.
func RequireRoles(roles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := Account(c)
		if user == nil {
			return apperr.Unauthorized("invalid token")
		}
		for _, r := range roles {
			if user.Role == r {
				return c.Next()
			}
		}
		return apperr.AccessDenied("insufficient permissions")
	}
}

// Account returns the account stored by LoadAccount, or nil.
func Account(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(accountKey).(*models.User)
	return user
}
