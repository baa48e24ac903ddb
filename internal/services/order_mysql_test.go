package services

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/styleshop/storefront/internal/db"
	"github.com/styleshop/storefront/internal/models"
)

var orderRowColumns = []string{
	"number", "user_id", "status", "email", "first_name", "last_name", "address", "city", "postal_code", "country",
	"shipping_method", "payment_method", "card_last4", "subtotal", "shipping", "tax", "total", "currency", "created_at",
}

var itemRowColumns = []string{
	"order_number", "product_id", "product_name", "category", "price", "quantity", "selected_size", "selected_color",
}

func newMockStore(t *testing.T) (*MySQLOrderStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return NewMySQLOrderStore(db.Wrap(sqlDB, zap.NewNop()), newTestMetrics(t)), mock
}

func orderRow(rows *sqlmock.Rows, number, userID string, created time.Time) *sqlmock.Rows {
	var uid interface{}
	if userID != "" {
		uid = userID
	}
	return rows.AddRow(number, uid, "pending", "ana@example.com", "Ana", "García", "Calle Mayor 1", "Madrid", "28013", "España",
		"standard", "card", "4242", "51.98", "4.99", "10.9158", "67.8858", "EUR", created)
}

func TestMySQLOrderStore_Save(t *testing.T) {
	store, mock := newMockStore(t)
	o := sampleOrder("SH000001", "u1", models.OrderStatusPending, time.Now())

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(insertOrderQuery)).
		WithArgs("SH000001", "u1", "pending", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "standard", "card", "4242",
			"51.98", "4.99", "10.9158", "67.8858", "EUR", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertItemQuery)).
		WithArgs("SH000001", 0, "1", "Tee", "Camisetas", "25.99", 2, "", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Save(context.Background(), o))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLOrderStore_SaveDuplicate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(insertOrderQuery)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'SH000001' for key 'PRIMARY'"})
	mock.ExpectRollback()

	err := store.Save(context.Background(), sampleOrder("SH000001", "", models.OrderStatusPending, time.Now()))
	assert.ErrorIs(t, err, ErrDuplicateOrder)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLOrderStore_FindByNumber(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(selectOrderQuery)).
		WithArgs("SH000001").
		WillReturnRows(orderRow(sqlmock.NewRows(orderRowColumns), "SH000001", "", created))
	mock.ExpectQuery(regexp.QuoteMeta(itemsQueryPrefix)).
		WithArgs("SH000001").
		WillReturnRows(sqlmock.NewRows(itemRowColumns).
			AddRow("SH000001", "1", "Tee", "Camisetas", "25.99", 2, "M", "#000000"))

	o, err := store.FindByNumber(context.Background(), "SH000001")
	require.NoError(t, err)
	assert.Empty(t, o.UserID)
	assert.Equal(t, "4242", o.CardLast4)
	assert.Equal(t, "67.8858", o.Totals.Total.String())
	assert.Equal(t, created, o.CreatedAt)
	require.Len(t, o.Lines, 1)
	assert.Equal(t, "M", o.Lines[0].SelectedSize)
	assert.Equal(t, "25.99", o.Lines[0].Product.Price.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLOrderStore_FindByNumberMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectOrderQuery)).
		WithArgs("SH404404").
		WillReturnError(sql.ErrNoRows)

	_, err := store.FindByNumber(context.Background(), "SH404404")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMySQLOrderStore_ListByUser(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(orderRowColumns)
	orderRow(rows, "SH000002", "u1", now)
	orderRow(rows, "SH000001", "u1", now.Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta(userOrdersQuery)).
		WithArgs("u1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta(itemsQueryPrefix)).
		WithArgs("SH000002", "SH000001").
		WillReturnRows(sqlmock.NewRows(itemRowColumns).
			AddRow("SH000001", "1", "Tee", "Camisetas", "25.99", 1, "", "").
			AddRow("SH000002", "2", "Jeans", "Pantalones", "79.99", 1, "30", "").
			AddRow("SH000002", "3", "Dress", "Vestidos", "89.99", 1, "", ""))

	orders, err := store.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "SH000002", orders[0].Number)
	assert.Len(t, orders[0].Lines, 2)
	assert.Len(t, orders[1].Lines, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLOrderStore_UpdateStatus(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta(updateStatusSQL)).
		WithArgs("shipped", "SH000001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.UpdateStatus(ctx, "SH000001", "shipped"))

	// unchanged status on an existing order
	mock.ExpectExec(regexp.QuoteMeta(updateStatusSQL)).
		WithArgs("shipped", "SH000001").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(orderExistsQuery)).
		WithArgs("SH000001").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	require.NoError(t, store.UpdateStatus(ctx, "SH000001", "shipped"))

	mock.ExpectExec(regexp.QuoteMeta(updateStatusSQL)).
		WithArgs("shipped", "SH404404").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(orderExistsQuery)).
		WithArgs("SH404404").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	assert.ErrorIs(t, store.UpdateStatus(ctx, "SH404404", "shipped"), ErrOrderNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
