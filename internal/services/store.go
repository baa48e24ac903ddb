package services

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/styleshop/storefront/internal/models"
)

var (
	// ErrOrderNotFound is returned for unknown order numbers, and for lookups
	// whose email does not match the order.
	ErrOrderNotFound = errors.New("order not found")
	// ErrDuplicateOrder is returned when an order number is already taken.
	ErrDuplicateOrder = errors.New("order number already exists")
	// ErrInvalidStatus is returned for unknown order statuses.
	ErrInvalidStatus = errors.New("invalid order status")
)

// OrderStore persists placed orders.
type OrderStore interface {
	Save(ctx context.Context, order *models.Order) error
	FindByNumber(ctx context.Context, number string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	UpdateStatus(ctx context.Context, number, status string) error
}

// MemoryOrderStore keeps orders for the life of the process.
type MemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[string]models.Order
}

// NewMemoryOrderStore returns an empty store.
func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{orders: make(map[string]models.Order)}
}

func (m *MemoryOrderStore) Save(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orders[order.Number]; exists {
		return ErrDuplicateOrder
	}
	m.orders[order.Number] = cloneOrder(*order)
	return nil
}

func (m *MemoryOrderStore) FindByNumber(_ context.Context, number string) (*models.Order, error) {
	m.mu.RLock()
	o, ok := m.orders[number]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrOrderNotFound
	}
	o = cloneOrder(o)
	return &o, nil
}

// ListByUser returns the user's orders, newest first.
func (m *MemoryOrderStore) ListByUser(_ context.Context, userID string) ([]models.Order, error) {
	m.mu.RLock()
	var out []models.Order
	for _, o := range m.orders {
		if o.UserID != "" && o.UserID == userID {
			out = append(out, cloneOrder(o))
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.Number, a.Number)
	})
	return out, nil
}

func (m *MemoryOrderStore) UpdateStatus(_ context.Context, number, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[number]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = status
	m.orders[number] = o
	return nil
}

func cloneOrder(o models.Order) models.Order {
	lines := make([]models.CartLine, len(o.Lines))
	for i, l := range o.Lines {
		l.Product = l.Product.Clone()
		lines[i] = l
	}
	o.Lines = lines
	return o
}

// validStatus reports whether status is a known order status.
func validStatus(status string) bool {
	switch status {
	case models.OrderStatusPending, models.OrderStatusProcessing, models.OrderStatusShipped,
		models.OrderStatusDelivered, models.OrderStatusCancelled:
		return true
	}
	return false
}

// Order history tabs
const (
	OrderFilterAll       = "all"
	OrderFilterDelivered = "delivered"
	OrderFilterActive    = "active"
	OrderFilterCancelled = "cancelled"
)

// matchesFilter applies an order history tab. Active covers every order
// that has not been delivered or cancelled.
func matchesFilter(o models.Order, filter string) bool {
	switch filter {
	case "", OrderFilterAll:
		return true
	case OrderFilterDelivered:
		return o.Status == models.OrderStatusDelivered
	case OrderFilterCancelled:
		return o.Status == models.OrderStatusCancelled
	case OrderFilterActive:
		return o.Status == models.OrderStatusPending ||
			o.Status == models.OrderStatusProcessing ||
			o.Status == models.OrderStatusShipped
	}
	return false
}
