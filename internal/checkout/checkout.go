// Package checkout implements the order submission flow: a linear sequence
// of shipping, payment and confirmation steps, each gated by validation,
// ending in a simulated payment.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/styleshop/storefront/internal/cart"
	"github.com/styleshop/storefront/internal/models"
)

var (
	// ErrEmptyCart is returned when submitting with nothing in the cart.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrAlreadySubmitted is returned for any change after submission.
	ErrAlreadySubmitted = errors.New("checkout already submitted")
	// ErrInvalidTransition is returned when an operation does not apply to
	// the current step.
	ErrInvalidTransition = errors.New("invalid checkout transition")
)

// Step is a checkout state.
type Step string

const (
	StepShipping     Step = "shipping"
	StepPayment      Step = "payment"
	StepConfirmation Step = "confirmation"
	StepSubmitted    Step = "submitted"
)

// DefaultCountry is prefilled in the shipping address.
const DefaultCountry = "España"

// Sequencer tracks one visitor's progress through checkout. Fields are
// exported so the whole state can be stored with the session.
type Sequencer struct {
	Step           Step                `json:"step"`
	Shipping       models.ShippingInfo `json:"shipping"`
	Payment        models.PaymentInfo  `json:"payment"`
	ShippingMethod cart.ShippingMethod `json:"shipping_method"`
	Errors         ValidationErrors    `json:"errors,omitempty"`
	OrderNumber    string              `json:"order_number,omitempty"`
}

// New returns a sequencer on the shipping step with standard shipping and
// card payment selected.
func New() *Sequencer {
	return &Sequencer{
		Step:           StepShipping,
		Shipping:       models.ShippingInfo{Country: DefaultCountry},
		Payment:        models.PaymentInfo{Method: PaymentCard},
		ShippingMethod: cart.ShippingStandard,
	}
}

// SetShipping replaces the shipping address. Errors reported for fields
// that are now filled in are cleared.
func (s *Sequencer) SetShipping(info models.ShippingInfo) error {
	if s.Step == StepSubmitted {
		return ErrAlreadySubmitted
	}
	if info.Country == "" {
		info.Country = DefaultCountry
	}
	s.Shipping = info
	s.pruneErrors(ValidateShipping(models.ShippingInfo{}), ValidateShipping(info))
	return nil
}

// SetPayment replaces the payment details.
func (s *Sequencer) SetPayment(info models.PaymentInfo) error {
	if s.Step == StepSubmitted {
		return ErrAlreadySubmitted
	}
	if info.Method == "" {
		info.Method = PaymentCard
	}
	s.Payment = info
	owned := ValidatePayment(models.PaymentInfo{Method: PaymentCard})
	owned["method"] = ""
	s.pruneErrors(owned, ValidatePayment(info))
	return nil
}

// SetShippingMethod selects the shipping method priced into the totals.
func (s *Sequencer) SetShippingMethod(m cart.ShippingMethod) error {
	if s.Step == StepSubmitted {
		return ErrAlreadySubmitted
	}
	if _, err := cart.ParseShippingMethod(string(m)); err != nil {
		return ValidationErrors{"shippingMethod": err.Error()}
	}
	s.ShippingMethod = m
	return nil
}

// Validate checks the fields owned by the current step.
func (s *Sequencer) Validate() ValidationErrors {
	switch s.Step {
	case StepShipping:
		return ValidateShipping(s.Shipping)
	case StepPayment:
		return ValidatePayment(s.Payment)
	default:
		return ValidationErrors{}
	}
}

// Next advances one step if the current step validates. On failure the
// step is unchanged and the returned ValidationErrors are also kept in
// s.Errors. Confirmation is left only through Submit.
func (s *Sequencer) Next() error {
	var next Step
	switch s.Step {
	case StepShipping:
		next = StepPayment
	case StepPayment:
		next = StepConfirmation
	case StepSubmitted:
		return ErrAlreadySubmitted
	default:
		return ErrInvalidTransition
	}

	if errs := s.Validate(); len(errs) > 0 {
		s.Errors = errs
		return errs
	}
	s.Errors = nil
	s.Step = next
	return nil
}

// Back returns to the previous step without validating. Entered values are
// kept. Going back from the shipping step is a no-op.
func (s *Sequencer) Back() error {
	switch s.Step {
	case StepPayment:
		s.Step = StepShipping
	case StepConfirmation:
		s.Step = StepPayment
	case StepSubmitted:
		return ErrAlreadySubmitted
	}
	s.Errors = nil
	return nil
}

// Submit places the order from the confirmation step. Shipping and payment
// are validated again, the order is priced from c under pricing and handed
// to p. The sequencer only moves to StepSubmitted when p succeeds; the cart
// is left untouched.
func (s *Sequencer) Submit(ctx context.Context, c *cart.Cart, pricing cart.Pricing, p Processor) (*models.Order, error) {
	switch s.Step {
	case StepConfirmation:
	case StepSubmitted:
		return nil, ErrAlreadySubmitted
	default:
		return nil, ErrInvalidTransition
	}
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	errs := ValidateShipping(s.Shipping)
	for f, msg := range ValidatePayment(s.Payment) {
		errs[f] = msg
	}
	if len(errs) > 0 {
		s.Errors = errs
		return nil, errs
	}

	order := &models.Order{
		Status:         models.OrderStatusPending,
		Lines:          c.Lines(),
		Shipping:       s.Shipping,
		ShippingMethod: string(s.ShippingMethod),
		PaymentMethod:  s.Payment.Method,
		Totals:         c.Totals(pricing, s.ShippingMethod),
	}
	if s.Payment.Method == PaymentCard {
		order.CardLast4 = cardLast4(s.Payment.CardNumber)
	}

	number, err := p.Process(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("process payment: %w", err)
	}
	order.Number = number

	s.Step = StepSubmitted
	s.OrderNumber = number
	s.Errors = nil
	s.Payment.CardNumber = ""
	s.Payment.CVV = ""
	return order, nil
}

// pruneErrors drops recorded errors for fields in owned that no longer
// fail.
func (s *Sequencer) pruneErrors(owned, current ValidationErrors) {
	for f := range s.Errors {
		_, mine := owned[f]
		_, still := current[f]
		if mine && !still {
			delete(s.Errors, f)
		}
	}
	if len(s.Errors) == 0 {
		s.Errors = nil
	}
}
