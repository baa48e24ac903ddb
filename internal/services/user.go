package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/styleshop/storefront/internal/auth"
	"github.com/styleshop/storefront/internal/metrics"
	"github.com/styleshop/storefront/internal/models"
)

// UserService handles login, registration and bearer tokens
type UserService struct {
	auth    auth.Service
	tokens  *auth.TokenIssuer
	metrics *metrics.AppMetrics
	logger  *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(authService auth.Service, tokens *auth.TokenIssuer, metrics *metrics.AppMetrics, logger *zap.Logger) *UserService {
	return &UserService{
		auth:    authService,
		tokens:  tokens,
		metrics: metrics,
		logger:  logger,
	}
}

// Login checks the credentials and issues a token
func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.auth.Login(ctx, req.Email, req.Password)
	s.metrics.RecordAuth(ctx, "login", err == nil)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", zap.String("user_id", user.ID), zap.Bool("admin", user.IsAdmin))
	return s.issue(user)
}

// Register creates an account and issues a token
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	user, err := s.auth.Register(ctx, req.Email, req.Password, req.Name)
	s.metrics.RecordAuth(ctx, "register", err == nil)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return s.issue(user)
}

// Logout revokes the token the claims came from
func (s *UserService) Logout(ctx context.Context, claims *auth.Claims) error {
	if err := s.auth.Logout(ctx, claims.User()); err != nil {
		return err
	}
	s.tokens.Revoke(claims)
	return nil
}

// Authenticate parses a bearer token
func (s *UserService) Authenticate(token string) (*auth.Claims, error) {
	return s.tokens.Parse(token)
}

func (s *UserService) issue(user *models.User) (*models.AuthResponse, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &models.AuthResponse{Token: token, ExpiresAt: expiresAt, User: user}, nil
}
