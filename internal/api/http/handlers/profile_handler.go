package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/observability"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

// ProfileHandler serves the protected routes behind the auth middleware.
type ProfileHandler struct {
	metrics *observability.Metrics
}

// NewProfileHandler constructs handler.
func NewProfileHandler(metrics *observability.Metrics) *ProfileHandler {
	return &ProfileHandler{metrics: metrics}
}

// Me handles GET /protected/me, echoing the verified identity.
func (h *ProfileHandler) Me(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"subject_id": identity.SubjectID,
			"role":       identity.Role,
		},
	})
}

// Admin handles GET /protected/admin. The role gate runs before this
// handler, so reaching it means the caller is an admin.
func (h *ProfileHandler) Admin(c *fiber.Ctx) error {
	identity, _ := auth.IdentityFromContext(c)

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"message":       "admin area",
			"subject_id":    identity.SubjectID,
			"auth_failures": h.metrics.AuthFailures(),
		},
	})
}
