package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/domain"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

// Authorize compares the identity's role against the required one. It is a
// pure check: the identity is already verified, so a mismatch is Forbidden
// rather than Unauthorized.
func Authorize(identity domain.Identity, required domain.Role) error {
	if identity.Role != required {
		return apperrors.NewForbidden("insufficient role")
	}
	return nil
}

// RequireRole gates a route on the attached identity carrying the required
// role. It must be layered after Middleware.Handle.
func RequireRole(required domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if err := Authorize(identity, required); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequireAuthenticated passes any verified identity regardless of role.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := IdentityFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
