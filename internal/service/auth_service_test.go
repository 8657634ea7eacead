package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dhoini/attendance-service/internal/auth"
	"github.com/Dhoini/attendance-service/internal/domain"
	"github.com/Dhoini/attendance-service/internal/metrics"
	"github.com/Dhoini/attendance-service/internal/repository"
	"github.com/Dhoini/attendance-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	auth  AuthService
	subs  SubscriptionService
	clock *fakeClock
	pub   *recordingPublisher
	repo  repository.SubscriptionRepository
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	subs, clock, pub, repo := newTestService(t)
	users := repository.NewInMemoryUserRepository(logger.NewNop())
	tokens := auth.NewJWTManager("secret", "test", time.Hour)
	svc := NewAuthService(users, subs, tokens, metrics.NopSubscriptionMetrics{}, logger.NewNop())

	ctx := context.Background()
	for _, u := range []struct {
		name string
		role domain.Role
	}{
		{"dev", domain.RoleDeveloper},
		{"admin", domain.RoleAdmin},
		{"assistant", domain.RoleAssistant},
		{"student", domain.RoleStudent},
	} {
		_, err := svc.EnsureUser(ctx, u.name, "pw-"+u.name, u.role)
		require.NoError(t, err)
	}

	return authFixture{auth: svc, subs: subs, clock: clock, pub: pub, repo: repo}
}

func accessCode(t *testing.T, err error) string {
	t.Helper()
	var accessErr *domain.AccessError
	require.True(t, errors.As(err, &accessErr), "expected AccessError, got %v", err)
	return accessErr.Code
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.auth.Login(ctx, domain.LoginRequest{Username: "admin", Password: "wrong"})
	assert.Equal(t, domain.CodeInvalidCredentials, accessCode(t, err))

	_, err = f.auth.Login(ctx, domain.LoginRequest{Username: "ghost", Password: "x"})
	assert.Equal(t, domain.CodeInvalidCredentials, accessCode(t, err))
}

func TestLoginWithoutSubscription(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.auth.Login(ctx, domain.LoginRequest{Username: "admin", Password: "pw-admin"})
	assert.Equal(t, domain.CodeSubscriptionInactive, accessCode(t, err))

	_, err = f.auth.Login(ctx, domain.LoginRequest{Username: "assistant", Password: "pw-assistant"})
	assert.Equal(t, domain.CodeSubscriptionInactive, accessCode(t, err))

	res, err := f.auth.Login(ctx, domain.LoginRequest{Username: "dev", Password: "pw-dev"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	_, err = f.auth.Login(ctx, domain.LoginRequest{Username: "student", Password: "pw-student"})
	assert.NoError(t, err)
}

func TestLoginWithActiveSubscription(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.subs.Create(ctx, dailyRequest(1, 10.0))
	require.NoError(t, err)

	res, err := f.auth.Login(ctx, domain.LoginRequest{Username: "Admin", Password: "pw-admin"})
	require.NoError(t, err)
	assert.True(t, res.Subscription.Active)
	assert.Equal(t, domain.RoleAdmin, res.User.Role)
}

func TestLoginClearsJustExpiredRecordInSameRequest(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.subs.Create(ctx, dailyRequest(1, 10.0))
	require.NoError(t, err)
	f.clock.Advance(24*time.Hour + time.Millisecond)

	_, err = f.auth.Login(ctx, domain.LoginRequest{Username: "admin", Password: "pw-admin"})
	assert.Equal(t, domain.CodeSubscriptionExpired, accessCode(t, err))
	assert.ErrorIs(t, err, domain.ErrSubscriptionExpired)

	raw, _ := f.repo.Get(ctx)
	assert.True(t, raw.IsEmpty())
	assert.Equal(t, []string{ExpireSourceLogin}, f.pub.expiredSources())

	// Второй вход видит уже очищенную запись
	_, err = f.auth.Login(ctx, domain.LoginRequest{Username: "admin", Password: "pw-admin"})
	assert.Equal(t, domain.CodeSubscriptionInactive, accessCode(t, err))
}

func TestLoginReportsExpiredWhenClearFails(t *testing.T) {
	clock := newFakeClock()
	inner := repository.NewInMemorySubscriptionRepository(logger.NewNop())
	subs := NewSubscriptionService(failingExpireRepo{inner}, &recordingPublisher{}, metrics.NopSubscriptionMetrics{}, logger.NewNop(), WithClock(clock.Now))
	users := repository.NewInMemoryUserRepository(logger.NewNop())
	svc := NewAuthService(users, subs, auth.NewJWTManager("secret", "test", time.Hour), metrics.NopSubscriptionMetrics{}, logger.NewNop())
	ctx := context.Background()

	_, err := svc.EnsureUser(ctx, "admin", "pw-admin", domain.RoleAdmin)
	require.NoError(t, err)
	_, err = subs.Create(ctx, dailyRequest(1, 10.0))
	require.NoError(t, err)
	clock.Advance(24 * time.Hour)

	_, err = svc.Login(ctx, domain.LoginRequest{Username: "admin", Password: "pw-admin"})
	assert.Equal(t, domain.CodeSubscriptionExpired, accessCode(t, err))

	// Запись не очищена, но действующей уже не считается
	raw, _ := inner.Get(ctx)
	assert.True(t, raw.Active)
}

func TestLoginExpiredRecordAllowsPrivilegedRoles(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.subs.Create(ctx, dailyRequest(1, 10.0))
	require.NoError(t, err)
	f.clock.Advance(48 * time.Hour)

	res, err := f.auth.Login(ctx, domain.LoginRequest{Username: "student", Password: "pw-student"})
	require.NoError(t, err)
	assert.False(t, res.Subscription.Active)

	raw, _ := f.repo.Get(ctx)
	assert.True(t, raw.IsEmpty())
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	first, err := f.auth.EnsureUser(ctx, "dev", "other", domain.RoleDeveloper)
	require.NoError(t, err)
	_, err = f.auth.Login(ctx, domain.LoginRequest{Username: first.Username, Password: "pw-dev"})
	assert.NoError(t, err)

	_, err = f.auth.EnsureUser(ctx, "x", "y", domain.Role("root"))
	assert.Error(t, err)
}
