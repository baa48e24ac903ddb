package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/styleshop/storefront/internal/cart"
	"github.com/styleshop/storefront/internal/catalog"
	"github.com/styleshop/storefront/internal/checkout"
	"github.com/styleshop/storefront/internal/metrics"
	"github.com/styleshop/storefront/internal/models"
	"github.com/styleshop/storefront/internal/session"
)

// ErrInvalidVariant is returned when a size or color is not offered by the
// product.
var ErrInvalidVariant = errors.New("variant not available for product")

// CartService handles cart and favorites operations on visitor sessions
type CartService struct {
	sessions session.Store
	catalog  *catalog.Store
	pricing  cart.Pricing
	currency string
	metrics  *metrics.AppMetrics
	logger   *zap.Logger
	locks    sessionLocks
}

// NewCartService creates a new cart service
func NewCartService(sessions session.Store, store *catalog.Store, pricing cart.Pricing, currency string,
	metrics *metrics.AppMetrics, logger *zap.Logger) *CartService {
	return &CartService{
		sessions: sessions,
		catalog:  store,
		pricing:  pricing,
		currency: currency,
		metrics:  metrics,
		logger:   logger,
	}
}

// RunActiveCartsMonitor periodically records the number of live sessions
// until ctx is done.
func (s *CartService) RunActiveCartsMonitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.recordActiveCarts(ctx)
		}
	}
}

func (s *CartService) recordActiveCarts(ctx context.Context) {
	count, err := s.sessions.Count(ctx)
	if err != nil {
		s.logger.Warn("failed to count sessions", zap.Error(err))
		return
	}
	s.metrics.ActiveCartsCount.Record(ctx, int64(count), metric.WithAttributes(s.metrics.WithServiceName([]attribute.KeyValue{})...))
}

// GetCart returns the cart with its lines and totals
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*models.CartResponse, error) {
	sess, err := s.view(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.cartResponse(sess), nil
}

// AddToCart adds quantity units of a product variant
func (s *CartService) AddToCart(ctx context.Context, sessionID string, req models.AddToCartRequest) (*models.CartResponse, error) {
	p, err := s.catalog.Get(req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("product %q: %w", req.ProductID, err)
	}
	if err := checkVariant(p, req.Size, req.Color); err != nil {
		return nil, err
	}

	sess, err := s.update(ctx, sessionID, func(sess *session.Session) error {
		c := cart.New(sess.Lines...)
		if err := c.AddLine(p, req.Quantity, req.Size, req.Color); err != nil {
			return err
		}
		sess.Lines = c.Lines()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("added to cart",
		zap.String("session_id", sessionID),
		zap.String("product_id", p.ID),
		zap.Int("quantity", req.Quantity),
	)
	return s.cartResponse(sess), nil
}

// UpdateQuantity sets the quantity of a line; zero or less removes it
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID string, req models.UpdateCartRequest) (*models.CartResponse, error) {
	key := models.LineKey{ProductID: req.ProductID, Size: req.Size, Color: req.Color}
	sess, err := s.update(ctx, sessionID, func(sess *session.Session) error {
		c := cart.New(sess.Lines...)
		c.UpdateQuantity(key, req.Quantity)
		sess.Lines = c.Lines()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.cartResponse(sess), nil
}

// RemoveFromCart removes a line; removing a missing line is a no-op
func (s *CartService) RemoveFromCart(ctx context.Context, sessionID string, req models.RemoveFromCartRequest) (*models.CartResponse, error) {
	key := models.LineKey{ProductID: req.ProductID, Size: req.Size, Color: req.Color}
	sess, err := s.update(ctx, sessionID, func(sess *session.Session) error {
		c := cart.New(sess.Lines...)
		c.RemoveLine(key)
		sess.Lines = c.Lines()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.cartResponse(sess), nil
}

// ClearCart empties the cart
func (s *CartService) ClearCart(ctx context.Context, sessionID string) (*models.CartResponse, error) {
	sess, err := s.update(ctx, sessionID, func(sess *session.Session) error {
		sess.Lines = []models.CartLine{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.cartResponse(sess), nil
}

// Favorites returns the favorite products in the order they were added.
// Products no longer in the catalog are skipped.
func (s *CartService) Favorites(ctx context.Context, sessionID string) ([]models.Product, error) {
	sess, err := s.view(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Product, 0, len(sess.Favorites))
	for _, id := range sess.Favorites {
		if p, err := s.catalog.Get(id); err == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

// ToggleFavorite flips a product in or out of the favorites and reports
// whether it is now a favorite
func (s *CartService) ToggleFavorite(ctx context.Context, sessionID, productID string) (bool, error) {
	if _, err := s.catalog.Get(productID); err != nil {
		return false, fmt.Errorf("product %q: %w", productID, err)
	}
	var favorite bool
	_, err := s.update(ctx, sessionID, func(sess *session.Session) error {
		favorite = sess.ToggleFavorite(productID)
		return nil
	})
	return favorite, err
}

func (s *CartService) cartResponse(sess *session.Session) *models.CartResponse {
	c := cart.New(sess.Lines...)
	return &models.CartResponse{
		Lines:     c.Lines(),
		ItemCount: c.Len(),
		Totals:    c.Totals(s.pricing, cart.ShippingUnset).Rounded(),
		Currency:  s.currency,
	}
}

// view loads a session for reading. Unknown sessions read as empty and are
// not stored.
func (s *CartService) view(ctx context.Context, sessionID string) (*session.Session, error) {
	return s.load(ctx, sessionID)
}

// update runs fn on the session under its lock and saves the result. Errors
// from fn abort without saving, except validation failures, which are part
// of the checkout state.
func (s *CartService) update(ctx context.Context, sessionID string, fn func(*session.Session) error) (*session.Session, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	fnErr := fn(sess)
	if fnErr != nil && !errors.Is(fnErr, checkout.ErrValidation) {
		return nil, fnErr
	}

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	s.metrics.CartItemsCount.Record(ctx, int64(len(sess.Lines)), metric.WithAttributes(s.metrics.WithServiceName([]attribute.KeyValue{})...))
	return sess, fnErr
}

func (s *CartService) load(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		s.metrics.SessionMisses.Add(ctx, 1, metric.WithAttributes(s.metrics.WithServiceName([]attribute.KeyValue{})...))
		return session.New(sessionID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	s.metrics.SessionHits.Add(ctx, 1, metric.WithAttributes(s.metrics.WithServiceName([]attribute.KeyValue{})...))
	return sess, nil
}

func checkVariant(p models.Product, size, color string) error {
	if size != "" && !slices.Contains(p.Sizes, size) {
		return fmt.Errorf("%w: size %q", ErrInvalidVariant, size)
	}
	if color != "" && !slices.Contains(p.Colors, color) {
		return fmt.Errorf("%w: color %q", ErrInvalidVariant, color)
	}
	return nil
}
