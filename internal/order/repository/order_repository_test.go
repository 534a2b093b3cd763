package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/orderbus/internal/order/domain"
	"github.com/allisson/orderbus/internal/testutil"
)

var orderRowColumns = []string{
	"id", "seller_id", "customer_id", "total_amount", "currency", "status", "version", "created_at", "updated_at",
}

func newOrder(t *testing.T) *domain.Order {
	t.Helper()
	order, _, err := domain.NewOrder(uuid.New(), uuid.New(), 4990, "BRL", time.Now())
	require.NoError(t, err)
	return order
}

func TestPostgreSQLOrderRepository_Create(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewPostgreSQLOrderRepository(db)
	order := newOrder(t)

	mock.ExpectExec(`INSERT INTO orders`).
		WithArgs(order.ID, order.SellerID, order.CustomerID, order.TotalAmount, order.Currency,
			order.Status, order.Version, order.CreatedAt, order.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), order))
}

func TestPostgreSQLOrderRepository_Get(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewPostgreSQLOrderRepository(db)
		order := newOrder(t)

		mock.ExpectQuery(`SELECT .* FROM orders WHERE id = \$1`).
			WithArgs(order.ID).
			WillReturnRows(sqlmock.NewRows(orderRowColumns).AddRow(
				order.ID.String(), order.SellerID.String(), order.CustomerID.String(), order.TotalAmount,
				order.Currency, "PAID", 2, order.CreatedAt, order.UpdatedAt))

		got, err := repo.Get(context.Background(), order.ID)
		require.NoError(t, err)
		assert.Equal(t, order.ID, got.ID)
		assert.Equal(t, domain.StatusPaid, got.Status)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("NotFound", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewPostgreSQLOrderRepository(db)

		mock.ExpectQuery(`SELECT .* FROM orders`).WillReturnRows(sqlmock.NewRows(orderRowColumns))

		_, err := repo.Get(context.Background(), uuid.New())
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})
}

func TestPostgreSQLOrderRepository_Update(t *testing.T) {
	t.Run("BumpsVersion", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewPostgreSQLOrderRepository(db)
		order := newOrder(t)

		mock.ExpectExec(`UPDATE orders\s+SET status = \$1, updated_at = \$2, version = version \+ 1\s+WHERE id = \$3 AND version = \$4`).
			WithArgs(order.Status, order.UpdatedAt, order.ID, int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Update(context.Background(), order))
		assert.Equal(t, int64(2), order.Version)
	})

	t.Run("StaleVersion", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewPostgreSQLOrderRepository(db)
		order := newOrder(t)

		mock.ExpectExec(`UPDATE orders`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(context.Background(), order)
		assert.ErrorIs(t, err, domain.ErrOrderVersionConflict)
		assert.Equal(t, int64(1), order.Version)
	})

	t.Run("ExecError", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewPostgreSQLOrderRepository(db)

		mock.ExpectExec(`UPDATE orders`).WillReturnError(errors.New("connection reset"))

		err := repo.Update(context.Background(), newOrder(t))
		assert.ErrorContains(t, err, "failed to update order")
	})
}

func TestPostgreSQLOrderRepository_ListBySeller(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewPostgreSQLOrderRepository(db)
	order := newOrder(t)

	mock.ExpectQuery(`(?s)WHERE seller_id = \$1.*LIMIT \$2 OFFSET \$3`).
		WithArgs(order.SellerID, 10, 20).
		WillReturnRows(sqlmock.NewRows(orderRowColumns).AddRow(
			order.ID.String(), order.SellerID.String(), order.CustomerID.String(), order.TotalAmount,
			order.Currency, "PENDING", 1, order.CreatedAt, order.UpdatedAt))

	orders, err := repo.ListBySeller(context.Background(), order.SellerID, 20, 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.SellerID, orders[0].SellerID)
}

func TestMySQLOrderRepository_Create(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLOrderRepository(db)
	order := newOrder(t)

	mock.ExpectExec(`INSERT INTO orders`).
		WithArgs(testutil.BinaryID(t, order.ID), testutil.BinaryID(t, order.SellerID),
			testutil.BinaryID(t, order.CustomerID), order.TotalAmount, order.Currency,
			order.Status, order.Version, order.CreatedAt, order.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), order))
}

func TestMySQLOrderRepository_Get(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLOrderRepository(db)
	order := newOrder(t)

	mock.ExpectQuery(`SELECT .* FROM orders WHERE id = \?`).
		WithArgs(testutil.BinaryID(t, order.ID)).
		WillReturnRows(sqlmock.NewRows(orderRowColumns).AddRow(
			testutil.BinaryID(t, order.ID), testutil.BinaryID(t, order.SellerID),
			testutil.BinaryID(t, order.CustomerID), order.TotalAmount, order.Currency,
			"DELIVERED", 7, order.CreatedAt, order.UpdatedAt))

	got, err := repo.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.CustomerID, got.CustomerID)
	assert.Equal(t, domain.StatusDelivered, got.Status)
	assert.Equal(t, int64(7), got.Version)
}

func TestMySQLOrderRepository_Update(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLOrderRepository(db)
	order := newOrder(t)

	mock.ExpectExec(`UPDATE orders`).
		WithArgs(order.Status, order.UpdatedAt, testutil.BinaryID(t, order.ID), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Update(context.Background(), order), domain.ErrOrderVersionConflict)
}
