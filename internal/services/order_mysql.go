package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/styleshop/storefront/internal/db"
	"github.com/styleshop/storefront/internal/metrics"
	"github.com/styleshop/storefront/internal/models"
)

const (
	orderColumns = "number, user_id, status, email, first_name, last_name, address, city, postal_code, country, " +
		"shipping_method, payment_method, card_last4, subtotal, shipping, tax, total, currency, created_at"

	insertOrderQuery = "INSERT INTO orders (" + orderColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	insertItemQuery  = "INSERT INTO order_items (order_number, line_no, product_id, product_name, category, price, quantity, selected_size, selected_color) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
	selectOrderQuery = "SELECT " + orderColumns + " FROM orders WHERE number = ?"
	userOrdersQuery  = "SELECT " + orderColumns + " FROM orders WHERE user_id = ? ORDER BY created_at DESC, number DESC"
	updateStatusSQL  = "UPDATE orders SET status = ? WHERE number = ?"
	orderExistsQuery = "SELECT EXISTS(SELECT 1 FROM orders WHERE number = ?)"
	itemsQueryPrefix = "SELECT order_number, product_id, product_name, category, price, quantity, selected_size, selected_color FROM order_items WHERE order_number IN "

	mysqlDuplicateEntry = 1062
)

// MySQLOrderStore persists orders in MySQL.
type MySQLOrderStore struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewMySQLOrderStore creates an order store on database
func NewMySQLOrderStore(database *db.DB, metrics *metrics.AppMetrics) *MySQLOrderStore {
	return &MySQLOrderStore{db: database, metrics: metrics}
}

// Save writes the order and its lines in one transaction.
func (s *MySQLOrderStore) Save(ctx context.Context, o *models.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	start := time.Now()
	_, err = tx.ExecContext(ctx, insertOrderQuery,
		o.Number, nullString(o.UserID), o.Status,
		o.Shipping.Email, o.Shipping.FirstName, o.Shipping.LastName, o.Shipping.Address,
		o.Shipping.City, o.Shipping.PostalCode, o.Shipping.Country,
		o.ShippingMethod, o.PaymentMethod, nullString(o.CardLast4),
		o.Totals.Subtotal, o.Totals.Shipping, o.Totals.Tax, o.Totals.Total,
		o.Currency, o.CreatedAt,
	)
	s.metrics.RecordDBQuery(ctx, "INSERT", "orders", insertOrderQuery, start, err == nil)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	for i, l := range o.Lines {
		start = time.Now()
		_, err = tx.ExecContext(ctx, insertItemQuery,
			o.Number, i, l.Product.ID, l.Product.Name, l.Product.Category,
			l.Product.Price, l.Quantity, l.SelectedSize, l.SelectedColor,
		)
		s.metrics.RecordDBQuery(ctx, "INSERT", "order_items", insertItemQuery, start, err == nil)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// FindByNumber loads one order with its lines.
func (s *MySQLOrderStore) FindByNumber(ctx context.Context, number string) (*models.Order, error) {
	start := time.Now()
	o, err := scanOrder(s.db.QueryRowContext(ctx, selectOrderQuery, number))
	s.metrics.RecordDBQuery(ctx, "SELECT", "orders", selectOrderQuery, start, err == nil || errors.Is(err, sql.ErrNoRows))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	orders := []models.Order{*o}
	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListByUser returns the user's orders, newest first.
func (s *MySQLOrderStore) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, userOrdersQuery, userID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "orders", userOrdersQuery, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus changes the status of an order.
func (s *MySQLOrderStore) UpdateStatus(ctx context.Context, number, status string) error {
	start := time.Now()
	result, err := s.db.ExecContext(ctx, updateStatusSQL, status, number)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "orders", updateStatusSQL, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	// MySQL reports zero affected rows when the status is unchanged
	start = time.Now()
	var exists bool
	err = s.db.QueryRowContext(ctx, orderExistsQuery, number).Scan(&exists)
	s.metrics.RecordDBQuery(ctx, "SELECT", "orders", orderExistsQuery, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to check order: %w", err)
	}
	if !exists {
		return ErrOrderNotFound
	}
	return nil
}

// attachItems loads the lines of every order in one query.
func (s *MySQLOrderStore) attachItems(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	args := make([]interface{}, len(orders))
	placeholders := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		args[i] = o.Number
		placeholders[i] = "?"
		index[o.Number] = i
		orders[i].Lines = []models.CartLine{}
	}
	query := itemsQueryPrefix + "(" + strings.Join(placeholders, ",") + ") ORDER BY order_number, line_no"

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	s.metrics.RecordDBQuery(ctx, "SELECT", "order_items", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var number string
		var l models.CartLine
		if err := rows.Scan(&number, &l.Product.ID, &l.Product.Name, &l.Product.Category,
			&l.Product.Price, &l.Quantity, &l.SelectedSize, &l.SelectedColor); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if i, ok := index[number]; ok {
			orders[i].Lines = append(orders[i].Lines, l)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	var userID, cardLast4 sql.NullString
	err := row.Scan(
		&o.Number, &userID, &o.Status,
		&o.Shipping.Email, &o.Shipping.FirstName, &o.Shipping.LastName, &o.Shipping.Address,
		&o.Shipping.City, &o.Shipping.PostalCode, &o.Shipping.Country,
		&o.ShippingMethod, &o.PaymentMethod, &cardLast4,
		&o.Totals.Subtotal, &o.Totals.Shipping, &o.Totals.Tax, &o.Totals.Total,
		&o.Currency, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.UserID = userID.String
	o.CardLast4 = cardLast4.String
	return &o, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
