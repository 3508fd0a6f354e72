package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/observability"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

type stubVerifier struct {
	calls  int
	claims *Claims
	err    error
}

func (s *stubVerifier) Verify(_ string, _ time.Time) (*Claims, error) {
	s.calls++
	return s.claims, s.err
}

func newTestApp(m *Middleware) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"code": domainErr.Code})
		},
	})
	app.Get("/protected", m.Handle, func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewInternalError(nil)
		}
		return c.JSON(fiber.Map{"subject_id": identity.SubjectID, "role": identity.Role})
	})
	return app
}

func TestMiddleware_MissingHeaderSkipsVerifier(t *testing.T) {
	verifier := &stubVerifier{}
	app := newTestApp(NewMiddleware(verifier, zap.NewNop(), observability.NewMetrics()))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, verifier.calls, "codec must not run without a bearer header")
}

func TestMiddleware_BadScheme(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"no token", "Bearer"},
		{"scheme only with space", "Bearer "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &stubVerifier{}
			app := newTestApp(NewMiddleware(verifier, zap.NewNop(), observability.NewMetrics()))

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", tt.header)
			resp, err := app.Test(req)
			require.NoError(t, err)

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestMiddleware_TokenErrorsFoldToUnauthorized(t *testing.T) {
	// Every verification failure maps to the same 401; the cause is only
	// visible in internal metrics.
	tests := []struct {
		name      string
		verifyErr error
		cause     string
	}{
		{"malformed", ErrTokenMalformed, "malformed"},
		{"signature mismatch", ErrTokenSignatureMismatch, "signature_mismatch"},
		{"expired", ErrTokenExpired, "expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &stubVerifier{err: tt.verifyErr}
			metrics := observability.NewMetrics()
			app := newTestApp(NewMiddleware(verifier, zap.NewNop(), metrics))

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer some-token")
			resp, err := app.Test(req)
			require.NoError(t, err)

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, int64(1), metrics.AuthFailures()[tt.cause])
			assert.Equal(t, 1, verifier.calls)
		})
	}
}

func TestMiddleware_AttachesIdentity(t *testing.T) {
	verifier := &stubVerifier{claims: &Claims{Role: domain.RoleAdmin}}
	verifier.claims.Subject = "admin-1"
	app := newTestApp(NewMiddleware(verifier, zap.NewNop(), observability.NewMetrics()))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMiddleware_BearerSchemeCaseInsensitive(t *testing.T) {
	verifier := &stubVerifier{claims: &Claims{Role: domain.RoleUser}}
	verifier.claims.Subject = "user-1"
	app := newTestApp(NewMiddleware(verifier, zap.NewNop(), observability.NewMetrics()))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "bearer valid-token")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
