package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/storeops/backend/internal/domain/order"
	"github.com/storeops/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockOrderRepository creates a GormOrderRepository with a mocked SQL connection
func newMockOrderRepository(t *testing.T) (*GormOrderRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormOrderRepository(gormDB), mock, mockDB
}

func TestGormOrderRepository_FindByShopifyID(t *testing.T) {
	t.Run("finds existing order", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		orderID := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "shopify_order_id", "order_number", "status"}).
			AddRow(orderID, "9001", "#1001", "paid")

		mock.ExpectQuery(`SELECT \* FROM "orders" WHERE shopify_order_id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs("9001", 1).
			WillReturnRows(rows)

		found, err := repo.FindByShopifyID(context.Background(), "9001")

		assert.NoError(t, err)
		assert.Equal(t, orderID, found.ID)
		assert.Equal(t, order.StatusPaid, found.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps record-not-found to domain error", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "orders" WHERE shopify_order_id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs("9001", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		found, err := repo.FindByShopifyID(context.Background(), "9001")

		assert.Nil(t, found)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty id short-circuits without querying", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		found, err := repo.FindByShopifyID(context.Background(), "")

		assert.Nil(t, found)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormOrderRepository_ClaimNotification(t *testing.T) {
	t.Run("wins the claim when the flag is unset", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		orderID := uuid.New()
		mock.ExpectExec(`UPDATE "orders" SET .* WHERE id = \$3 AND created_notified = \$4`).
			WithArgs(true, sqlmock.AnyArg(), orderID, false).
			WillReturnResult(sqlmock.NewResult(0, 1))

		won, err := repo.ClaimNotification(context.Background(), orderID, order.NotifyCreated)

		assert.NoError(t, err)
		assert.True(t, won)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("loses the claim when the flag is already set", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		orderID := uuid.New()
		mock.ExpectExec(`UPDATE "orders" SET .* WHERE id = \$3 AND fulfilled_notified = \$4`).
			WithArgs(true, sqlmock.AnyArg(), orderID, false).
			WillReturnResult(sqlmock.NewResult(0, 0))

		won, err := repo.ClaimNotification(context.Background(), orderID, order.NotifyFulfilled)

		assert.NoError(t, err)
		assert.False(t, won)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects unknown notification kinds", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		won, err := repo.ClaimNotification(context.Background(), uuid.New(), order.NotificationKind("bogus"))

		assert.Error(t, err)
		assert.False(t, won)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormOrderRepository_ReleaseNotification(t *testing.T) {
	repo, mock, mockDB := newMockOrderRepository(t)
	defer mockDB.Close()

	orderID := uuid.New()
	mock.ExpectExec(`UPDATE "orders" SET .* WHERE id = \$3`).
		WithArgs(false, sqlmock.AnyArg(), orderID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ReleaseNotification(context.Background(), orderID, order.NotifyCreated)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOrderRepository_UpdateStatus(t *testing.T) {
	t.Run("updates a stored order", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		orderID := uuid.New()
		mock.ExpectExec(`UPDATE "orders" SET .* WHERE id = \$3`).
			WithArgs("fulfilled", sqlmock.AnyArg(), orderID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateStatus(context.Background(), orderID, order.StatusFulfilled)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown order returns not found", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		orderID := uuid.New()
		mock.ExpectExec(`UPDATE "orders" SET .* WHERE id = \$3`).
			WithArgs("fulfilled", sqlmock.AnyArg(), orderID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateStatus(context.Background(), orderID, order.StatusFulfilled)

		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormOrderRepository_MarkRecoveryPending(t *testing.T) {
	t.Run("stamps recovery fields with checkout link", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		orderID := uuid.New()
		nextCheck := time.Now().Add(time.Hour)

		mock.ExpectExec(`UPDATE "orders" SET .* WHERE id = \$5 AND \(recovery_status IS NULL OR recovery_status = ''\)`).
			WithArgs("https://tienda.example.com/checkout/tok", sqlmock.AnyArg(), "pending", sqlmock.AnyArg(), orderID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.MarkRecoveryPending(context.Background(), orderID, nextCheck,
			"https://tienda.example.com/checkout/tok")

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("omits checkout link column when empty", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		orderID := uuid.New()
		mock.ExpectExec(`UPDATE "orders" SET .* WHERE id = \$4 AND \(recovery_status IS NULL OR recovery_status = ''\)`).
			WithArgs(sqlmock.AnyArg(), "pending", sqlmock.AnyArg(), orderID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.MarkRecoveryPending(context.Background(), orderID, time.Now().Add(time.Hour), "")

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
