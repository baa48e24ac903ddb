package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/styleshop/storefront/internal/models"
)

func newService() *MockService {
	return NewMockService(0, zap.NewNop())
}

func TestLoginAdmin(t *testing.T) {
	u, err := newService().Login(context.Background(), "Admin@StyleShop.com ", "admin123")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)
	assert.Equal(t, "Admin User", u.Name)
	assert.Equal(t, AdminEmail, u.Email)
}

func TestLoginAdminWrongPassword(t *testing.T) {
	_, err := newService().Login(context.Background(), AdminEmail, "letmein")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginAnyUser(t *testing.T) {
	svc := newService()

	u, err := svc.Login(context.Background(), "maria@example.com", "secret1")
	require.NoError(t, err)
	assert.False(t, u.IsAdmin)
	assert.Equal(t, "maria", u.Name)

	again, err := svc.Login(context.Background(), "maria@example.com", "another")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID, "ids are stable per email")
}

func TestLoginRejects(t *testing.T) {
	tests := []struct {
		name, email, password string
	}{
		{"missing at sign", "maria.example.com", "secret1"},
		{"short password", "maria@example.com", "12345"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newService().Login(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestRegisterThenLogin(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	u, err := svc.Register(ctx, "luis@example.com", "hunter22", "Luis")
	require.NoError(t, err)
	assert.Equal(t, "Luis", u.Name)

	got, err := svc.Login(ctx, "luis@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, u, got)

	_, err = svc.Login(ctx, "luis@example.com", "wrongpass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Register(ctx, "LUIS@example.com", "hunter22", "Luis")
	assert.ErrorIs(t, err, ErrInvalidRegistration)
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name, email, password, user string
	}{
		{"email", "luis.example.com", "hunter22", "Luis"},
		{"password", "luis@example.com", "short", "Luis"},
		{"password too long", "luis@example.com", strings.Repeat("x", MaxPasswordLength+1), "Luis"},
		{"name", "luis@example.com", "hunter22", "L"},
		{"admin email", AdminEmail, "hunter22", "Luis"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newService().Register(context.Background(), tt.email, tt.password, tt.user)
			assert.ErrorIs(t, err, ErrInvalidRegistration)
		})
	}
}

func TestLatencyHonorsContext(t *testing.T) {
	svc := NewMockService(time.Hour, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := svc.Login(ctx, AdminEmail, "admin123")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLogoutRequiresUser(t *testing.T) {
	svc := newService()
	assert.ErrorIs(t, svc.Logout(context.Background(), nil), ErrInvalidToken)
	assert.NoError(t, svc.Logout(context.Background(), &models.User{ID: "x"}))
}
