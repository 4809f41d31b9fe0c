package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/storeops/backend/internal/domain/order"
	"github.com/storeops/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.AbandonedCheckoutModel{})
	require.NoError(t, err)

	return db
}

func TestGormCheckoutRepository_UpsertByShopifyID(t *testing.T) {
	db := setupCheckoutTestDB(t)
	repo := NewGormCheckoutRepository(db)
	ctx := context.Background()
	clientID := uuid.New()

	firstCheck := time.Date(2026, 8, 31, 13, 0, 0, 0, time.UTC)
	chk := order.NewAbandonedCheckout("31337", clientID, firstCheck)
	chk.Email = "ana@example.com"
	chk.Currency = "MXN"
	require.NoError(t, repo.UpsertByShopifyID(ctx, chk))

	t.Run("repeated upserts collapse into one row", func(t *testing.T) {
		update := order.NewAbandonedCheckout("31337", clientID, firstCheck.Add(2*time.Hour))
		update.Email = "ana.torres@example.com"
		update.CheckoutURL = "https://tienda.example.com/checkout/tok"
		update.Currency = "MXN"
		require.NoError(t, repo.UpsertByShopifyID(ctx, update))

		var count int64
		require.NoError(t, db.Model(&models.AbandonedCheckoutModel{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)

		var stored models.AbandonedCheckoutModel
		require.NoError(t, db.Where("shopify_checkout_id = ?", "31337").First(&stored).Error)
		assert.Equal(t, "ana.torres@example.com", stored.Email)
		assert.Equal(t, "https://tienda.example.com/checkout/tok", stored.CheckoutURL)
	})

	t.Run("conflict update keeps the original recovery schedule", func(t *testing.T) {
		var stored models.AbandonedCheckoutModel
		require.NoError(t, db.Where("shopify_checkout_id = ?", "31337").First(&stored).Error)
		assert.Equal(t, order.RecoveryPending, stored.RecoveryStatus)
		require.NotNil(t, stored.RecoveryNextCheckAt)
		assert.Equal(t, firstCheck.Unix(), stored.RecoveryNextCheckAt.Unix())
	})
}
