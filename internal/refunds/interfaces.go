package refunds

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mkasimov/beat808-backend/internal/orders"
	"github.com/mkasimov/beat808-backend/pkg/db/models"
	"github.com/mkasimov/beat808-backend/pkg/enums"
	"github.com/mkasimov/beat808-backend/pkg/pagination"
)

// Repository defines persistence operations for fulfilled purchases.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Purchase, error)
	List(ctx context.Context, status *enums.PurchaseStatus, params pagination.Params) ([]models.Purchase, string, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Purchase, string, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Purchase, string, error)
	// MarkRefunded flips the purchase to refunded. Returns false when
	// it was already refunded.
	MarkRefunded(ctx context.Context, purchaseID uuid.UUID, refundedBy uuid.UUID) (bool, error)
	// Release moves a held purchase to completed. Returns false when
	// the purchase was not on hold.
	Release(ctx context.Context, purchaseID uuid.UUID) (bool, error)
}

// Notifier delivers best-effort operator notifications about refunds.
type Notifier interface {
	NotifyRefund(ctx context.Context, purchase *models.Purchase)
}

// Service is the purchase record and refund surface.
type Service interface {
	Get(ctx context.Context, purchaseID uuid.UUID, actor orders.Actor) (*PurchaseView, error)
	List(ctx context.Context, status *enums.PurchaseStatus, params pagination.Params) (*PurchaseList, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*PurchaseList, error)
	ListForSeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*PurchaseList, error)
	// Refund reverses a purchase: the buyer gets the price back, the
	// seller share is clawed out of their wallet, and the purchase is
	// marked refunded. One refund per purchase.
	Refund(ctx context.Context, purchaseID uuid.UUID, admin orders.Actor) (*PurchaseView, error)
	// ReleaseHold settles an admin-delivered purchase: the held seller
	// share becomes spendable.
	ReleaseHold(ctx context.Context, purchaseID uuid.UUID, admin orders.Actor) (*PurchaseView, error)
}
