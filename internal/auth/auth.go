// Package auth provides the identity capability the storefront depends on and
// a mock implementation of it.
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/styleshop/storefront/internal/models"
)

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRegistration = errors.New("invalid registration")
	ErrInvalidToken        = errors.New("invalid or expired token")
)

// Service is the identity provider used by the API. Production deployments
// plug an external provider in behind it.
type Service interface {
	Login(ctx context.Context, email, password string) (*models.User, error)
	Register(ctx context.Context, email, password, name string) (*models.User, error)
	Logout(ctx context.Context, user *models.User) error
}

// Mock credentials and limits
const (
	AdminEmail        = "admin@styleshop.com"
	adminPassword     = "admin123"
	adminName         = "Admin User"
	MinPasswordLength = 6
	MaxPasswordLength = 72 // bcrypt input limit, in bytes
	MinNameLength     = 2
)

type account struct {
	user models.User
	hash []byte
}

// MockService accepts the built-in admin account, any registered account
// with its password, and otherwise any email containing "@" with a password
// of at least MinPasswordLength characters. Every call waits latency.
type MockService struct {
	latency time.Duration
	logger  *zap.Logger

	mu       sync.RWMutex
	accounts map[string]account
}

// NewMockService returns a mock identity provider.
func NewMockService(latency time.Duration, logger *zap.Logger) *MockService {
	return &MockService{
		latency:  latency,
		logger:   logger,
		accounts: make(map[string]account),
	}
}

// Login authenticates email and password.
func (s *MockService) Login(ctx context.Context, email, password string) (*models.User, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	email = normalizeEmail(email)

	if email == AdminEmail {
		if password != adminPassword {
			return nil, ErrInvalidCredentials
		}
		return &models.User{ID: userID(email), Email: email, Name: adminName, IsAdmin: true}, nil
	}

	s.mu.RLock()
	acct, registered := s.accounts[email]
	s.mu.RUnlock()

	if registered {
		if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(password)); err != nil {
			return nil, ErrInvalidCredentials
		}
		u := acct.user
		return &u, nil
	}

	if !strings.Contains(email, "@") || len(password) < MinPasswordLength {
		return nil, ErrInvalidCredentials
	}
	name, _, _ := strings.Cut(email, "@")
	return &models.User{ID: userID(email), Email: email, Name: name}, nil
}

// Register creates an account. The email must contain "@", the password
// must be between MinPasswordLength characters and MaxPasswordLength bytes
// and the name at least MinNameLength.
func (s *MockService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)

	switch {
	case !strings.Contains(email, "@"):
		return nil, errors.Join(ErrInvalidRegistration, errors.New("email must contain @"))
	case len(password) < MinPasswordLength:
		return nil, errors.Join(ErrInvalidRegistration, errors.New("password too short"))
	case len(password) > MaxPasswordLength:
		return nil, errors.Join(ErrInvalidRegistration, errors.New("password too long"))
	case len([]rune(name)) < MinNameLength:
		return nil, errors.Join(ErrInvalidRegistration, errors.New("name too short"))
	case email == AdminEmail:
		return nil, errors.Join(ErrInvalidRegistration, errors.New("email already registered"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[email]; exists {
		return nil, errors.Join(ErrInvalidRegistration, errors.New("email already registered"))
	}
	u := models.User{ID: userID(email), Email: email, Name: name}
	s.accounts[email] = account{user: u, hash: hash}

	s.logger.Info("account registered", zap.String("user_id", u.ID))
	return &u, nil
}

// Logout has no server-side state in the mock; token revocation is handled
// by the TokenIssuer.
func (s *MockService) Logout(ctx context.Context, user *models.User) error {
	if user == nil {
		return ErrInvalidToken
	}
	s.logger.Debug("logout", zap.String("user_id", user.ID))
	return nil
}

func (s *MockService) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// userID derives a stable id from the email so that order history survives
// logging out and back in.
func userID(email string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+email)).String()
}
