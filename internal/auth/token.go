package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/auth-service/internal/domain"
)

// Sentinel token verification failures. All three map to the same
// unauthorized response externally; they are distinguished for internal
// logging and metrics only.
var (
	ErrTokenMalformed         = errors.New("token malformed")
	ErrTokenSignatureMismatch = errors.New("token signature mismatch")
	ErrTokenExpired           = errors.New("token expired")
)

// Claims describes the signed token payload.
type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Identity derives the per-request identity from verified claims.
func (c *Claims) Identity() domain.Identity {
	return domain.Identity{SubjectID: c.Subject, Role: c.Role}
}

// TokenCodec issues and verifies HS256-signed tokens. The secret and
// lifetime are fixed at construction and shared read-only across requests.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenCodec builds a codec.
func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenCodec{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the subject, valid from now until now+ttl. The
// caller supplies now so issuance is deterministic and testable against a
// fixed clock.
func (tc *TokenCodec) Issue(subjectID string, role domain.Role, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(tc.ttl)
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tc.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify decodes the token, checks the signature, then checks expiry against
// the supplied now. Signature classification takes precedence over expiry so
// a tampered-but-expired token is reported as tampered, never trusted.
// Expiry is validated here rather than by the parser so that the boundary
// instant now == expiresAt is still accepted.
func (tc *TokenCodec) Verify(tokenStr string, now time.Time) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenSignatureMismatch
		}
		return tc.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, ErrTokenSignatureMismatch):
			return nil, ErrTokenSignatureMismatch
		default:
			return nil, ErrTokenMalformed
		}
	}

	if !parsed.Valid || claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrTokenMalformed
	}
	if now.After(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}
