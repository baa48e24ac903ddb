package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/styleshop/storefront/internal/auth"
	"github.com/styleshop/storefront/internal/models"
)

func newUserService(t *testing.T) *UserService {
	return NewUserService(
		auth.NewMockService(0, zap.NewNop()),
		auth.NewTokenIssuer("test-secret", time.Hour),
		newTestMetrics(t),
		zap.NewNop(),
	)
}

func TestUserService_LoginIssuesToken(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	resp, err := svc.Login(ctx, models.LoginRequest{Email: auth.AdminEmail, Password: "admin123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.True(t, resp.User.IsAdmin)
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	claims, err := svc.Authenticate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.Subject)
	assert.True(t, claims.IsAdmin)
}

func TestUserService_LoginRejected(t *testing.T) {
	svc := newUserService(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody", Password: "x"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestUserService_RegisterAndLogout(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, models.RegisterRequest{Email: "luis@example.com", Password: "hunter22", Name: "Luis"})
	require.NoError(t, err)
	assert.Equal(t, "Luis", resp.User.Name)

	claims, err := svc.Authenticate(resp.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, claims))
	_, err = svc.Authenticate(resp.Token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = svc.Register(ctx, models.RegisterRequest{Email: "bad", Password: "hunter22", Name: "Luis"})
	assert.ErrorIs(t, err, auth.ErrInvalidRegistration)
}
