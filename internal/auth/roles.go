package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mov-ti/helpdesk-service/internal/domain"
	apperrors "github.com/mov-ti/helpdesk-service/pkg/util/errorutil"
)

// RequireRole guards a route group for the given roles.
func RequireRole(roles ...domain.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		for _, role := range roles {
			if principal.User.Role == role {
				return c.Next()
			}
		}
		return apperrors.NewForbidden("insufficient role")
	}
}
