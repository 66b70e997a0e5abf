package refunds

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mkasimov/beat808-backend/pkg/db/models"
	"github.com/mkasimov/beat808-backend/pkg/enums"
	"github.com/mkasimov/beat808-backend/pkg/pagination"
)

func setupPurchasesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	purchases := `
CREATE TABLE IF NOT EXISTS purchases (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  buyer_id TEXT,
  buyer_name TEXT NOT NULL,
  buyer_email TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  seller_name TEXT NOT NULL,
  beat_id TEXT NOT NULL,
  beat_title TEXT NOT NULL,
  license TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  seller_amount_cents INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'completed',
  refunded_by TEXT,
  refunded_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(purchases).Error)
	return db
}

func seedPurchase(t *testing.T, db *gorm.DB, status enums.PurchaseStatus, createdAt time.Time) *models.Purchase {
	t.Helper()
	purchase := &models.Purchase{
		ID:                uuid.New(),
		OrderID:           uuid.New(),
		BuyerName:         "Prod Kass",
		BuyerEmail:        "kass@example.com",
		SellerID:          uuid.New(),
		SellerName:        "Beatsmith",
		BeatID:            uuid.New(),
		BeatTitle:         "Night Drive",
		License:           enums.LicenseWAV,
		PriceCents:        2999,
		SellerAmountCents: 2699,
		Status:            status,
		CreatedAt:         createdAt,
	}
	require.NoError(t, db.Create(purchase).Error)
	return purchase
}

func TestRepositoryMarkRefundedOnlyOnce(t *testing.T) {
	db := setupPurchasesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	adminID := uuid.New()

	purchase := seedPurchase(t, db, enums.PurchaseStatusCompleted, time.Now().UTC())

	ok, err := repo.MarkRefunded(ctx, purchase.ID, adminID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkRefunded(ctx, purchase.ID, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindByID(ctx, purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseStatusRefunded, stored.Status)
	require.NotNil(t, stored.RefundedBy)
	assert.Equal(t, adminID, *stored.RefundedBy)
	assert.NotNil(t, stored.RefundedAt)
}

func TestRepositoryReleaseRequiresHold(t *testing.T) {
	db := setupPurchasesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	held := seedPurchase(t, db, enums.PurchaseStatusHold, time.Now().UTC())
	completed := seedPurchase(t, db, enums.PurchaseStatusCompleted, time.Now().UTC())

	ok, err := repo.Release(ctx, held.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Release(ctx, completed.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindByID(ctx, held.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseStatusCompleted, stored.Status)
}

func TestRepositoryListFiltersAndPaginates(t *testing.T) {
	db := setupPurchasesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	seedPurchase(t, db, enums.PurchaseStatusHold, base)
	seedPurchase(t, db, enums.PurchaseStatusCompleted, base.Add(time.Minute))
	seedPurchase(t, db, enums.PurchaseStatusCompleted, base.Add(2*time.Minute))

	hold := enums.PurchaseStatusHold
	rows, _, err := repo.List(ctx, &hold, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	first, cursor, err := repo.List(ctx, nil, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NotEmpty(t, cursor)

	second, next, err := repo.List(ctx, nil, pagination.Params{Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Empty(t, next)
}
