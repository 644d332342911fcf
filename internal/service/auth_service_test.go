package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/repository/memory"
)

func newTestAuthService() AuthService {
	return NewAuthService(memory.NewUserProfileRepository(), "test-secret", time.Hour, logger.NewNop())
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestAuthService()

	user, err := svc.Register(ctx, "alice", " Alice@Example.com ", "s3cret-pass", "")
	require.NoError(t, err)
	assert.NotEmpty(t, user.UserID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.Empty(t, user.PasswordHash)

	_, err = svc.Register(ctx, "alice2", "alice@example.com", "pw", domain.RoleUser)
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
	_, err = svc.Register(ctx, "alice", "other@example.com", "pw", domain.RoleUser)
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
	_, err = svc.Register(ctx, "carol", "carol@example.com", "pw", "superuser")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Register(ctx, "", "dave@example.com", "pw", "")
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = svc.Login(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	_, _, err = svc.Login(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	token, loggedIn, err := svc.Login(ctx, "ALICE@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.UserID, loggedIn.UserID)
	assert.Empty(t, loggedIn.PasswordHash)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, domain.RoleUser, claims.Role)

	id, err := svc.ResolveIdentity(ctx, claims.Email, claims.Role)
	require.NoError(t, err)
	assert.Equal(t, domain.Identity{UserID: user.UserID, Email: "alice@example.com", Role: domain.RoleUser}, id)
}

func TestAuthService_ParseTokenRejects(t *testing.T) {
	ctx := context.Background()
	svc := newTestAuthService()
	_, err := svc.Register(ctx, "bob", "bob@example.com", "pw", domain.RoleAdmin)
	require.NoError(t, err)

	// Issued two hours ago with a one hour lifetime.
	svc.(*authService).now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := svc.Login(ctx, "bob@example.com", "pw")
	require.NoError(t, err)
	_, err = svc.ParseToken(expired)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.ErrorIs(t, err, ErrUnauthorized)

	other := NewAuthService(memory.NewUserProfileRepository(), "another-secret", time.Hour, logger.NewNop())
	_, err = other.Register(ctx, "bob", "bob@example.com", "pw", domain.RoleAdmin)
	require.NoError(t, err)
	forged, _, err := other.Login(ctx, "bob@example.com", "pw")
	require.NoError(t, err)
	_, err = svc.ParseToken(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ParseToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_ResolveIdentity(t *testing.T) {
	ctx := context.Background()
	svc := newTestAuthService()
	user, err := svc.Register(ctx, "root", "root@example.com", "pw", domain.RoleAdmin)
	require.NoError(t, err)

	// The stored role wins over the token's.
	id, err := svc.ResolveIdentity(ctx, "Root@Example.com", domain.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, user.UserID, id.UserID)
	assert.Equal(t, domain.RoleAdmin, id.Role)

	_, err = svc.ResolveIdentity(ctx, "ghost@example.com", domain.RoleUser)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewAuthService_EmptySecretPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewAuthService(memory.NewUserProfileRepository(), "", time.Hour, logger.NewNop())
	})
}
