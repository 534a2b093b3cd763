package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/orderbus/internal/returns/domain"
	"github.com/allisson/orderbus/internal/testutil"
)

var returnRowColumns = []string{
	"id", "order_id", "seller_id", "reason", "status", "version", "created_at", "updated_at",
}

func newReturn(t *testing.T) *domain.Return {
	t.Helper()
	ret, _, err := domain.NewReturn(uuid.New(), uuid.New(), "wrong size", time.Now())
	require.NoError(t, err)
	return ret
}

func TestPostgreSQLReturnRepository_Create(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewPostgreSQLReturnRepository(db)
	ret := newReturn(t)

	mock.ExpectExec(`INSERT INTO returns`).
		WithArgs(ret.ID, ret.OrderID, ret.SellerID, "wrong size", ret.Status, ret.Version,
			ret.CreatedAt, ret.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), ret))
}

func TestPostgreSQLReturnRepository_Get(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewPostgreSQLReturnRepository(db)
		ret := newReturn(t)

		mock.ExpectQuery(`SELECT .* FROM returns WHERE id = \$1`).
			WithArgs(ret.ID).
			WillReturnRows(sqlmock.NewRows(returnRowColumns).AddRow(
				ret.ID.String(), ret.OrderID.String(), ret.SellerID.String(), "wrong size", "APPROVED", 2,
				ret.CreatedAt, ret.UpdatedAt))

		got, err := repo.Get(context.Background(), ret.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusApproved, got.Status)
		assert.Equal(t, "wrong size", got.Reason)
	})

	t.Run("NotFound", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewPostgreSQLReturnRepository(db)

		mock.ExpectQuery(`SELECT .* FROM returns`).WillReturnRows(sqlmock.NewRows(returnRowColumns))

		_, err := repo.Get(context.Background(), uuid.New())
		assert.ErrorIs(t, err, domain.ErrReturnNotFound)
	})
}

func TestPostgreSQLReturnRepository_Update(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewPostgreSQLReturnRepository(db)
	ret := newReturn(t)

	mock.ExpectExec(`UPDATE returns`).
		WithArgs(ret.Status, ret.UpdatedAt, ret.ID, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), ret))
	assert.Equal(t, int64(2), ret.Version)
}

func TestMySQLReturnRepository_Update(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLReturnRepository(db)
	ret := newReturn(t)

	mock.ExpectExec(`UPDATE returns`).
		WithArgs(ret.Status, ret.UpdatedAt, testutil.BinaryID(t, ret.ID), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Update(context.Background(), ret), domain.ErrReturnVersionConflict)
}

func TestMySQLReturnRepository_ListByOrder(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLReturnRepository(db)
	ret := newReturn(t)

	mock.ExpectQuery(`WHERE order_id = \?`).
		WithArgs(testutil.BinaryID(t, ret.OrderID)).
		WillReturnRows(sqlmock.NewRows(returnRowColumns).AddRow(
			testutil.BinaryID(t, ret.ID), testutil.BinaryID(t, ret.OrderID), testutil.BinaryID(t, ret.SellerID),
			"wrong size", "REQUESTED", 1, ret.CreatedAt, ret.UpdatedAt))

	returns, err := repo.ListByOrder(context.Background(), ret.OrderID)
	require.NoError(t, err)
	require.Len(t, returns, 1)
	assert.Equal(t, ret.ID, returns[0].ID)
	assert.Equal(t, domain.StatusRequested, returns[0].Status)
}
