package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/observability"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

const identityKey = "auth_identity"

// TokenVerifier is the part of the codec the middleware needs.
type TokenVerifier interface {
	Verify(token string, now time.Time) (*Claims, error)
}

// Middleware validates bearer tokens and attaches the verified identity to
// the request. Every token failure is folded into the same unauthorized
// response; the cause is only logged and counted internally.
type Middleware struct {
	tokens  TokenVerifier
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens TokenVerifier, logger *zap.Logger, metrics *observability.Metrics) *Middleware {
	return &Middleware{tokens: tokens, logger: logger, metrics: metrics}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return m.reject(c, "missing_header", nil)
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return m.reject(c, "bad_scheme", nil)
	}

	claims, err := m.tokens.Verify(parts[1], time.Now())
	if err != nil {
		return m.reject(c, failureCause(err), err)
	}

	c.Locals(identityKey, claims.Identity())
	return c.Next()
}

func (m *Middleware) reject(c *fiber.Ctx, cause string, err error) error {
	m.metrics.RecordAuthFailure(cause)
	if m.logger != nil {
		m.logger.Debug("auth rejected",
			zap.String("cause", cause),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return apperrors.NewUnauthorized("authentication required")
}

func failureCause(err error) string {
	switch {
	case errors.Is(err, ErrTokenSignatureMismatch):
		return "signature_mismatch"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	default:
		return "malformed"
	}
}

// IdentityFromContext retrieves the identity attached by Handle. The second
// return is false on routes the middleware has not run for.
func IdentityFromContext(c *fiber.Ctx) (domain.Identity, bool) {
	val := c.Locals(identityKey)
	if val == nil {
		return domain.Identity{}, false
	}
	identity, ok := val.(domain.Identity)
	return identity, ok
}
