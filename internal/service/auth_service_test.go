package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/repository"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:             "0123456789abcdef0123456789abcdef",
		AccessTokenTTLMinutes: 60,
		Argon2Time:            1,
		Argon2MemoryKiB:       1024,
		Argon2Threads:         1,
	}
}

func newTestService(limiter LoginLimiter) (*AuthService, *repository.MemoryUserRepository) {
	repo := repository.NewMemoryUserRepository()
	return NewAuthService(testAuthConfig(), repo, limiter, nil), repo
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	user, token, exp, err := svc.Register(ctx, "Alice", "alice@example.com", "s3cret-password")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.NotEmpty(t, token)
	assert.True(t, exp.After(time.Now()))
	assert.NotEqual(t, "s3cret-password", user.PasswordHash)

	loggedIn, token, _, err := svc.Login(ctx, "alice@example.com", "s3cret-password")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	claims, err := svc.TokenCodec().Verify(token, time.Now())
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
	assert.Equal(t, domain.RoleUser, claims.Role)
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, "Alice", "alice@example.com", "s3cret-password")
	require.NoError(t, err)

	_, _, _, err = svc.Register(ctx, "Other Alice", "alice@example.com", "another-password")
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestAuthService_LoginFailures(t *testing.T) {
	svc, repo := newTestService(nil)
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, "Alice", "alice@example.com", "s3cret-password")
	require.NoError(t, err)

	t.Run("wrong password", func(t *testing.T) {
		_, _, _, err := svc.Login(ctx, "alice@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, _, err := svc.Login(ctx, "nobody@example.com", "s3cret-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("suspended account", func(t *testing.T) {
		user, err := repo.GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		user.Status = domain.UserStatusSuspended
		require.NoError(t, repo.Update(ctx, user))

		_, _, _, loginErr := svc.Login(ctx, "alice@example.com", "s3cret-password")
		assert.ErrorIs(t, loginErr, ErrInvalidCredentials)
	})
}

func TestAuthService_LoginThrottled(t *testing.T) {
	limiter := NewMemoryLoginLimiter(2, time.Minute)
	svc, _ := newTestService(limiter)
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, "Alice", "alice@example.com", "s3cret-password")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, _, _, err := svc.Login(ctx, "alice@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// Third attempt in the window is throttled even with the right password.
	_, _, _, err = svc.Login(ctx, "alice@example.com", "s3cret-password")
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	// Other keys are unaffected.
	_, _, _, err = svc.Login(ctx, "bob@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_ChangePassword(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	user, _, _, err := svc.Register(ctx, "Alice", "alice@example.com", "old-password")
	require.NoError(t, err)

	t.Run("wrong current password", func(t *testing.T) {
		err := svc.ChangePassword(ctx, user.ID, "not-the-password", "new-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("success", func(t *testing.T) {
		require.NoError(t, svc.ChangePassword(ctx, user.ID, "old-password", "new-password"))

		_, _, _, err := svc.Login(ctx, "alice@example.com", "old-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		_, _, _, err = svc.Login(ctx, "alice@example.com", "new-password")
		assert.NoError(t, err)
	})
}

type failingLimiter struct {
	err error
}

func (l *failingLimiter) Allow(_ context.Context, _ string) (bool, error) {
	return true, l.err
}

func TestAuthService_LimiterErrorFailsOpenAndIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	repo := repository.NewMemoryUserRepository()
	limiter := &failingLimiter{err: errors.New("redis: connection refused")}
	svc := NewAuthService(testAuthConfig(), repo, limiter, zap.New(core))
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, "Alice", "alice@example.com", "s3cret-password")
	require.NoError(t, err)

	// Login still succeeds while the throttle backend is down.
	_, _, _, err = svc.Login(ctx, "alice@example.com", "s3cret-password")
	require.NoError(t, err)

	entries := logs.FilterMessage("login throttle backend unavailable").All()
	require.Len(t, entries, 1)
}

func TestMemoryLoginLimiter_WindowReset(t *testing.T) {
	limiter := NewMemoryLoginLimiter(1, 10*time.Millisecond)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "key")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _ = limiter.Allow(ctx, "key")
	assert.False(t, allowed)

	time.Sleep(15 * time.Millisecond)

	allowed, _ = limiter.Allow(ctx, "key")
	assert.True(t, allowed)
}
