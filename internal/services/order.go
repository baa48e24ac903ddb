package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/styleshop/storefront/internal/metrics"
	"github.com/styleshop/storefront/internal/models"
)

// ErrInvalidFilter is returned for unknown order history tabs.
var ErrInvalidFilter = errors.New("invalid order filter")

// OrderService handles order-related operations
type OrderService struct {
	store   OrderStore
	metrics *metrics.AppMetrics
	logger  *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store OrderStore, metrics *metrics.AppMetrics, logger *zap.Logger) *OrderService {
	return &OrderService{
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// CreateOrder persists a placed order and records the sales metrics
func (s *OrderService) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := s.store.Save(ctx, order); err != nil {
		return fmt.Errorf("failed to save order %s: %w", order.Number, err)
	}

	s.recordSales(ctx, order, order.Status)

	s.logger.Info("order created",
		zap.String("order_number", order.Number),
		zap.String("status", order.Status),
		zap.String("total", order.Totals.Total.StringFixed(2)),
		zap.String("currency", order.Currency),
		zap.Int("items", len(order.Lines)),
	)
	return nil
}

// GetOrder returns an order by number
func (s *OrderService) GetOrder(ctx context.Context, number string) (*models.Order, error) {
	return s.store.FindByNumber(ctx, strings.TrimSpace(number))
}

// LookupOrder returns an order when email matches its shipping email. A
// mismatch reads as not found so order numbers cannot be guessed.
func (s *OrderService) LookupOrder(ctx context.Context, number, email string) (*models.Order, error) {
	order, err := s.GetOrder(ctx, number)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(strings.TrimSpace(email), order.Shipping.Email) {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListUserOrders returns the user's orders for one history tab, newest first
func (s *OrderService) ListUserOrders(ctx context.Context, userID, filter string) ([]models.Order, error) {
	switch filter {
	case "", OrderFilterAll, OrderFilterDelivered, OrderFilterActive, OrderFilterCancelled:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilter, filter)
	}

	orders, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if matchesFilter(o, filter) {
			out = append(out, o)
		}
	}
	return out, nil
}

// UpdateOrderStatus updates the status of an order
func (s *OrderService) UpdateOrderStatus(ctx context.Context, number, status string) error {
	if !validStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if err := s.store.UpdateStatus(ctx, number, status); err != nil {
		return err
	}

	if status == models.OrderStatusDelivered {
		order, err := s.store.FindByNumber(ctx, number)
		if err != nil {
			s.logger.Warn("could not fetch order for metrics", zap.String("order_number", number), zap.Error(err))
			return nil
		}
		s.recordSales(ctx, order, status)
	}
	return nil
}

// recordSales adds the order count and revenue per product category
func (s *OrderService) recordSales(ctx context.Context, order *models.Order, status string) {
	categoryRevenue := make(map[string]decimal.Decimal)
	categoryOrders := make(map[string]int)
	for _, l := range order.Lines {
		category := l.Product.Category
		if category == "" {
			category = "unknown"
		}
		categoryRevenue[category] = categoryRevenue[category].Add(l.LineTotal())
		categoryOrders[category]++
	}

	for category, count := range categoryOrders {
		orderAttrs := s.metrics.WithServiceName([]attribute.KeyValue{
			attribute.String("order_status", status),
			attribute.String("payment_method", order.PaymentMethod),
			attribute.String("product_category", category),
		})
		s.metrics.OrdersCreated.Add(ctx, int64(count), metric.WithAttributes(orderAttrs...))

		amount, _ := categoryRevenue[category].Float64()
		revenueAttrs := s.metrics.WithServiceName([]attribute.KeyValue{
			attribute.String("currency", order.Currency),
			attribute.String("payment_method", order.PaymentMethod),
			attribute.String("product_category", category),
			attribute.String("order_status", status),
		})
		s.metrics.RevenueTotal.Add(ctx, amount, metric.WithAttributes(revenueAttrs...))
	}
}
