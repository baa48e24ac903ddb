package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/styleshop/storefront/internal/cart"
	"github.com/styleshop/storefront/internal/checkout"
	"github.com/styleshop/storefront/internal/metrics"
	"github.com/styleshop/storefront/internal/models"
	"github.com/styleshop/storefront/internal/session"
)

// CheckoutView is the checkout state together with the cart it will price.
type CheckoutView struct {
	Checkout  *checkout.Sequencer      `json:"checkout"`
	Lines     []models.CartLine        `json:"lines"`
	Totals    models.Totals            `json:"totals"`
	Currency  string                   `json:"currency"`
	Shipping  []cart.ShippingOption    `json:"shipping_options"`
	Payment   []checkout.PaymentOption `json:"payment_options"`
	Remaining string                   `json:"remaining_for_free_shipping"`
}

// CheckoutService drives the checkout steps of a session and places orders
type CheckoutService struct {
	carts     *CartService
	orders    *OrderService
	processor checkout.Processor
	metrics   *metrics.AppMetrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(carts *CartService, orders *OrderService, processor checkout.Processor,
	metrics *metrics.AppMetrics, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		carts:     carts,
		orders:    orders,
		processor: processor,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// GetCheckout returns the current checkout state
func (s *CheckoutService) GetCheckout(ctx context.Context, sessionID string) (*CheckoutView, error) {
	sess, err := s.carts.view(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.checkoutView(sess), nil
}

// SetShipping stores the shipping form
func (s *CheckoutService) SetShipping(ctx context.Context, sessionID string, info models.ShippingInfo) (*CheckoutView, error) {
	return s.mutate(ctx, sessionID, func(seq *checkout.Sequencer) error {
		return seq.SetShipping(info)
	})
}

// SetPayment stores the payment form
func (s *CheckoutService) SetPayment(ctx context.Context, sessionID string, info models.PaymentInfo) (*CheckoutView, error) {
	return s.mutate(ctx, sessionID, func(seq *checkout.Sequencer) error {
		return seq.SetPayment(info)
	})
}

// SetShippingMethod selects the shipping option
func (s *CheckoutService) SetShippingMethod(ctx context.Context, sessionID, method string) (*CheckoutView, error) {
	return s.mutate(ctx, sessionID, func(seq *checkout.Sequencer) error {
		return seq.SetShippingMethod(cart.ShippingMethod(method))
	})
}

// Next advances to the following step when the current one validates. On
// a validation failure the view is returned along with the error.
func (s *CheckoutService) Next(ctx context.Context, sessionID string) (*CheckoutView, error) {
	return s.mutate(ctx, sessionID, func(seq *checkout.Sequencer) error {
		from := seq.Step
		err := seq.Next()
		if blocked := errors.Is(err, checkout.ErrValidation); err == nil || blocked {
			s.metrics.RecordCheckoutStep(ctx, string(from), string(seq.Step), blocked)
		}
		return err
	})
}

// Back returns to the previous step
func (s *CheckoutService) Back(ctx context.Context, sessionID string) (*CheckoutView, error) {
	return s.mutate(ctx, sessionID, func(seq *checkout.Sequencer) error {
		from := seq.Step
		if err := seq.Back(); err != nil {
			return err
		}
		s.metrics.RecordCheckoutStep(ctx, string(from), string(seq.Step), false)
		return nil
	})
}

// Reset discards the checkout state and starts over at the shipping step
func (s *CheckoutService) Reset(ctx context.Context, sessionID string) (*CheckoutView, error) {
	sess, err := s.carts.update(ctx, sessionID, func(sess *session.Session) error {
		sess.Checkout = checkout.New()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.checkoutView(sess), nil
}

// Submit places the order. The session lock is held while the payment is
// processed so a second submit sees the submitted state. On success the
// order is stored for user (nil for guests) and the cart is emptied.
func (s *CheckoutService) Submit(ctx context.Context, sessionID string, user *models.User) (*models.Order, error) {
	var order *models.Order
	_, err := s.carts.update(ctx, sessionID, func(sess *session.Session) error {
		seq := sequencer(sess)
		placed, err := seq.Submit(ctx, cart.New(sess.Lines...), s.carts.pricing, s.processor)
		if err != nil {
			return err
		}

		placed.Currency = s.carts.currency
		placed.CreatedAt = s.now().UTC()
		if user != nil {
			placed.UserID = user.ID
		}
		if err := s.orders.CreateOrder(ctx, placed); err != nil {
			return err
		}

		s.metrics.RecordCheckoutStep(ctx, string(checkout.StepConfirmation), string(checkout.StepSubmitted), false)
		sess.Lines = []models.CartLine{}
		order = placed
		return nil
	})
	if err != nil {
		s.logger.Warn("checkout submit failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}
	return order, nil
}

func (s *CheckoutService) mutate(ctx context.Context, sessionID string, fn func(*checkout.Sequencer) error) (*CheckoutView, error) {
	sess, err := s.carts.update(ctx, sessionID, func(sess *session.Session) error {
		return fn(sequencer(sess))
	})
	if sess == nil {
		return nil, err
	}
	return s.checkoutView(sess), err
}

func (s *CheckoutService) checkoutView(sess *session.Session) *CheckoutView {
	seq := sequencer(sess)
	c := cart.New(sess.Lines...)
	totals := c.Totals(s.carts.pricing, seq.ShippingMethod)
	return &CheckoutView{
		Checkout:  seq,
		Lines:     c.Lines(),
		Totals:    totals.Rounded(),
		Currency:  s.carts.currency,
		Shipping:  cart.ShippingOptions,
		Payment:   checkout.PaymentOptions,
		Remaining: s.carts.pricing.RemainingForFreeShipping(totals.Subtotal).StringFixed(2),
	}
}

// sequencer returns the session's checkout, starting one if needed
func sequencer(sess *session.Session) *checkout.Sequencer {
	if sess.Checkout == nil {
		sess.Checkout = checkout.New()
	}
	return sess.Checkout
}
