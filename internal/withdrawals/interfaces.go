package withdrawals

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mkasimov/beat808-backend/internal/orders"
	"github.com/mkasimov/beat808-backend/pkg/db/models"
	"github.com/mkasimov/beat808-backend/pkg/enums"
	"github.com/mkasimov/beat808-backend/pkg/pagination"
)

// Repository defines persistence operations for payout requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, withdrawal *models.Withdrawal) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Withdrawal, string, error)
	List(ctx context.Context, status *enums.WithdrawalStatus, params pagination.Params) ([]models.Withdrawal, string, error)
	// Settle moves a pending request to its final status. Returns
	// false when the request was already processed.
	Settle(ctx context.Context, withdrawalID uuid.UUID, to enums.WithdrawalStatus, processedBy uuid.UUID, rejectReason *string) (bool, error)
}

// Notifier delivers best-effort operator notifications about payouts.
type Notifier interface {
	NotifyWithdrawalRequest(ctx context.Context, withdrawal *models.Withdrawal)
}

// Service is the payout request surface.
type Service interface {
	// Request debits the amount from the caller's available balance and
	// opens a pending payout for admin review.
	Request(ctx context.Context, user orders.Actor, amountCents int64, method, details string) (*WithdrawalView, error)
	Get(ctx context.Context, withdrawalID uuid.UUID, actor orders.Actor) (*WithdrawalView, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*WithdrawalList, error)
	List(ctx context.Context, status *enums.WithdrawalStatus, params pagination.Params) (*WithdrawalList, error)
	// Approve marks the payout as paid out off-platform.
	Approve(ctx context.Context, withdrawalID uuid.UUID, admin orders.Actor) (*WithdrawalView, error)
	// Reject returns the debited amount to the requester's wallet.
	Reject(ctx context.Context, withdrawalID uuid.UUID, admin orders.Actor, reason string) (*WithdrawalView, error)
}
