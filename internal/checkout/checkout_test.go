package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/styleshop/storefront/internal/cart"
	"github.com/styleshop/storefront/internal/models"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var validShipping = models.ShippingInfo{
	Email:      "ana@example.com",
	FirstName:  "Ana",
	LastName:   "García",
	Address:    "Calle Mayor 1",
	City:       "Madrid",
	PostalCode: "28013",
}

var validCard = models.PaymentInfo{
	Method:     PaymentCard,
	CardNumber: "4242 4242 4242 4242",
	ExpiryDate: "12/30",
	CVV:        "123",
	CardName:   "Ana García",
}

func filledCart(t *testing.T) *cart.Cart {
	t.Helper()
	c := cart.New()
	require.NoError(t, c.AddLine(models.Product{ID: "1", Name: "Tee", Price: decimal.RequireFromString("10")}, 2, "M", ""))
	require.NoError(t, c.AddLine(models.Product{ID: "2", Name: "Cap", Price: decimal.RequireFromString("5")}, 1, "", ""))
	return c
}

func atConfirmation(t *testing.T) *Sequencer {
	t.Helper()
	s := New()
	require.NoError(t, s.SetShipping(validShipping))
	require.NoError(t, s.Next())
	require.NoError(t, s.SetPayment(validCard))
	require.NoError(t, s.Next())
	require.Equal(t, StepConfirmation, s.Step)
	return s
}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestNewDefaults(t *testing.T) {
	s := New()
	assert.Equal(t, StepShipping, s.Step)
	assert.Equal(t, DefaultCountry, s.Shipping.Country)
	assert.Equal(t, PaymentCard, s.Payment.Method)
	assert.Equal(t, cart.ShippingStandard, s.ShippingMethod)
}

func TestShippingStepGate(t *testing.T) {
	s := New()

	err := s.Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, StepShipping, s.Step)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.ElementsMatch(t,
		[]string{"email", "firstName", "lastName", "address", "city", "postalCode"},
		keys(verrs))
	assert.NotContains(t, verrs, "country")

	require.NoError(t, s.SetShipping(validShipping))
	assert.Nil(t, s.Errors, "filling every field clears recorded errors")
	require.NoError(t, s.Next())
	assert.Equal(t, StepPayment, s.Step)
}

func TestSetShippingClearsOnlyFixedFields(t *testing.T) {
	s := New()
	require.Error(t, s.Next())

	partial := models.ShippingInfo{Email: "ana@example.com"}
	require.NoError(t, s.SetShipping(partial))
	assert.NotContains(t, s.Errors, "email")
	assert.Contains(t, s.Errors, "city")
}

func TestCardRequiredOnlyForCardMethod(t *testing.T) {
	s := New()
	require.NoError(t, s.SetShipping(validShipping))
	require.NoError(t, s.Next())

	require.NoError(t, s.SetPayment(models.PaymentInfo{
		Method:     PaymentCard,
		ExpiryDate: "12/30",
		CVV:        "123",
		CardName:   "Ana",
	}))
	err := s.Next()
	require.Error(t, err)
	assert.Equal(t, StepPayment, s.Step)
	assert.Contains(t, s.Errors, "cardNumber")

	require.NoError(t, s.SetPayment(models.PaymentInfo{Method: PaymentPayPal}))
	assert.NotContains(t, s.Errors, "cardNumber")
	require.NoError(t, s.Next())
	assert.Equal(t, StepConfirmation, s.Step)
}

func TestValidatePaymentNoChecksum(t *testing.T) {
	info := validCard
	info.CardNumber = "1234"
	assert.Empty(t, ValidatePayment(info))
}

func TestValidatePaymentUnknownMethod(t *testing.T) {
	errs := ValidatePayment(models.PaymentInfo{Method: "crypto"})
	assert.Contains(t, errs, "method")
}

func TestBackKeepsValues(t *testing.T) {
	s := atConfirmation(t)

	require.NoError(t, s.Back())
	assert.Equal(t, StepPayment, s.Step)
	require.NoError(t, s.Back())
	assert.Equal(t, StepShipping, s.Step)
	require.NoError(t, s.Back())
	assert.Equal(t, StepShipping, s.Step)

	assert.Equal(t, validShipping.Email, s.Shipping.Email)
	assert.Equal(t, validCard.CardNumber, s.Payment.CardNumber)
}

func TestBackSkipsValidation(t *testing.T) {
	s := atConfirmation(t)
	s.Payment = models.PaymentInfo{Method: PaymentCard}

	require.NoError(t, s.Back())
	assert.Equal(t, StepPayment, s.Step)
}

func TestNextFromConfirmationRequiresSubmit(t *testing.T) {
	s := atConfirmation(t)
	assert.ErrorIs(t, s.Next(), ErrInvalidTransition)
}

func TestSetShippingMethod(t *testing.T) {
	s := New()
	require.NoError(t, s.SetShippingMethod(cart.ShippingExpress))
	assert.Equal(t, cart.ShippingExpress, s.ShippingMethod)

	err := s.SetShippingMethod("teleport")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, cart.ShippingExpress, s.ShippingMethod)
}

func TestSubmit(t *testing.T) {
	s := atConfirmation(t)
	require.NoError(t, s.SetShippingMethod(cart.ShippingExpress))
	c := filledCart(t)
	p := &SimulatedProcessor{Prefix: "SH", Now: fixedClock(1_700_000_123_456)}

	order, err := s.Submit(context.Background(), c, cart.DefaultPricing(), p)
	require.NoError(t, err)

	assert.Equal(t, "SH123456", order.Number)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, "4242", order.CardLast4)
	assert.Equal(t, "express", order.ShippingMethod)
	assert.Len(t, order.Lines, 2)
	assert.Equal(t, "25", order.Totals.Subtotal.String())
	assert.Equal(t, "9.99", order.Totals.Shipping.String())
	assert.Equal(t, "5.25", order.Totals.Tax.String())
	assert.Equal(t, "40.24", order.Totals.Total.String())

	assert.Equal(t, StepSubmitted, s.Step)
	assert.Equal(t, "SH123456", s.OrderNumber)
	assert.Empty(t, s.Payment.CardNumber)
	assert.Empty(t, s.Payment.CVV)
	assert.Equal(t, 2, c.Len(), "submit does not clear the cart")

	_, err = s.Submit(context.Background(), c, cart.DefaultPricing(), p)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.ErrorIs(t, s.Back(), ErrAlreadySubmitted)
	assert.ErrorIs(t, s.SetShipping(validShipping), ErrAlreadySubmitted)
}

func TestSubmitRequiresConfirmation(t *testing.T) {
	s := New()
	_, err := s.Submit(context.Background(), filledCart(t), cart.DefaultPricing(), &SimulatedProcessor{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSubmitEmptyCart(t *testing.T) {
	s := atConfirmation(t)
	_, err := s.Submit(context.Background(), cart.New(), cart.DefaultPricing(), &SimulatedProcessor{})
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, StepConfirmation, s.Step)
}

func TestSubmitRevalidates(t *testing.T) {
	s := atConfirmation(t)
	s.Shipping.City = ""

	_, err := s.Submit(context.Background(), filledCart(t), cart.DefaultPricing(), &SimulatedProcessor{})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, s.Errors, "city")
	assert.Equal(t, StepConfirmation, s.Step)
}

func TestSubmitCancelled(t *testing.T) {
	s := atConfirmation(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewSimulatedProcessor(time.Hour, "SH")
	_, err := s.Submit(ctx, filledCart(t), cart.DefaultPricing(), p)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StepConfirmation, s.Step)
}

func TestSimulatedProcessorWaitsLatency(t *testing.T) {
	p := NewSimulatedProcessor(20*time.Millisecond, "SH")
	start := time.Now()
	number, err := p.Process(context.Background(), &models.Order{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Regexp(t, `^SH\d{6}$`, number)
}

func TestOrderNumberPadsDigits(t *testing.T) {
	assert.Equal(t, "SH000042", OrderNumber("SH", time.UnixMilli(5_000_000_042)))
}

func TestValidationErrorsMessage(t *testing.T) {
	err := ValidationErrors{"city": "city is required", "email": "email is required"}
	assert.EqualError(t, err, "invalid fields: city, email")
}

func keys(m ValidationErrors) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
