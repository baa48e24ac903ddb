package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/styleshop/storefront/internal/cart"
	"github.com/styleshop/storefront/internal/catalog"
	"github.com/styleshop/storefront/internal/checkout"
	"github.com/styleshop/storefront/internal/metrics"
	"github.com/styleshop/storefront/internal/models"
	"github.com/styleshop/storefront/internal/session"
)

type fixture struct {
	catalog  *catalog.Store
	sessions *session.MemoryStore
	orders   *MemoryOrderStore
	carts    *CartService
	orderSvc *OrderService
	checkout *CheckoutService
}

func newTestMetrics(t *testing.T) *metrics.AppMetrics {
	t.Helper()
	m, err := metrics.New(noop.NewMeterProvider().Meter("test"), "storefront-test")
	require.NoError(t, err)
	return m
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := catalog.Default()
	require.NoError(t, err)

	m := newTestMetrics(t)
	logger := zap.NewNop()
	f := &fixture{
		catalog:  store,
		sessions: session.NewMemoryStore(time.Hour),
		orders:   NewMemoryOrderStore(),
	}
	f.carts = NewCartService(f.sessions, store, cart.DefaultPricing(), "EUR", m, logger)
	f.orderSvc = NewOrderService(f.orders, m, logger)
	processor := &checkout.SimulatedProcessor{
		Prefix: "SH",
		Now:    func() time.Time { return time.UnixMilli(1700000123456) },
	}
	f.checkout = NewCheckoutService(f.carts, f.orderSvc, processor, m, logger)
	f.checkout.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	return f
}

var testShipping = models.ShippingInfo{
	Email:      "ana@example.com",
	FirstName:  "Ana",
	LastName:   "García",
	Address:    "Calle Mayor 1",
	City:       "Madrid",
	PostalCode: "28013",
}

var testCard = models.PaymentInfo{
	Method:     checkout.PaymentCard,
	CardNumber: "4242 4242 4242 4242",
	ExpiryDate: "12/30",
	CVV:        "123",
	CardName:   "Ana García",
}
