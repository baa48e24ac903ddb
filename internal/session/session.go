// Package session stores per-visitor state: the cart lines, favorites and
// checkout progress.
package session

import (
	"context"
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/styleshop/storefront/internal/checkout"
	"github.com/styleshop/storefront/internal/models"
)

// ErrNotFound is returned by Store.Get for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Session is the state kept for one visitor.
type Session struct {
	ID        string              `json:"id"`
	Lines     []models.CartLine   `json:"lines"`
	Favorites []string            `json:"favorites"`
	Checkout  *checkout.Sequencer `json:"checkout,omitempty"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Store persists sessions by id.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id has the shape of a session id.
func ValidID(id string) bool {
	return uuid.Validate(id) == nil
}

// New returns an empty session.
func New(id string) *Session {
	return &Session{ID: id, Lines: []models.CartLine{}, Favorites: []string{}}
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	c := *s
	c.Lines = make([]models.CartLine, len(s.Lines))
	for i, l := range s.Lines {
		l.Product = l.Product.Clone()
		c.Lines[i] = l
	}
	c.Favorites = slices.Clone(s.Favorites)
	if c.Favorites == nil {
		c.Favorites = []string{}
	}
	if s.Checkout != nil {
		co := *s.Checkout
		co.Errors = maps.Clone(s.Checkout.Errors)
		c.Checkout = &co
	}
	return &c
}

// ToggleFavorite adds productID to the favorites, or removes it if already
// present. It reports whether the product is a favorite afterwards.
func (s *Session) ToggleFavorite(productID string) bool {
	if i := slices.Index(s.Favorites, productID); i >= 0 {
		s.Favorites = slices.Delete(s.Favorites, i, i+1)
		return false
	}
	s.Favorites = append(s.Favorites, productID)
	return true
}

// IsFavorite reports whether productID is in the favorites.
func (s *Session) IsFavorite(productID string) bool {
	return slices.Contains(s.Favorites, productID)
}
