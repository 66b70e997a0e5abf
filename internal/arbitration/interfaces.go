package arbitration

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mkasimov/beat808-backend/internal/orders"
	"github.com/mkasimov/beat808-backend/pkg/db/models"
	"github.com/mkasimov/beat808-backend/pkg/enums"
	"github.com/mkasimov/beat808-backend/pkg/pagination"
)

// Repository defines persistence operations for arbitration cases.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateCase(ctx context.Context, dispute *models.Dispute) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	FindOpenByOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error)
	List(ctx context.Context, status *enums.DisputeStatus, params pagination.Params) ([]models.Dispute, string, error)
	// Resolve closes an open case. Returns false when the case was
	// already resolved.
	Resolve(ctx context.Context, disputeID uuid.UUID, resolution string, resolvedBy uuid.UUID) (bool, error)
}

// Service is the admin arbitration surface. It also backs dispute-case
// creation for the order state machine.
type Service interface {
	orders.DisputeOpener

	ListCases(ctx context.Context, status *enums.DisputeStatus, params pagination.Params) (*DisputeList, error)
	GetCase(ctx context.Context, disputeID uuid.UUID) (*DisputeView, error)
	// ForceDeliver marks an order fulfilled by admin decision, parking
	// the seller share on hold until the operator releases or refunds.
	ForceDeliver(ctx context.Context, orderID uuid.UUID, admin orders.Actor, notes string) (*orders.OrderView, error)
	// ApproveOrder sends a disputed order back to the normal approved
	// flow so the seller can still deliver it.
	ApproveOrder(ctx context.Context, orderID uuid.UUID, admin orders.Actor, notes string) (*orders.OrderView, error)
	// RejectOrder closes a disputed order against the seller.
	RejectOrder(ctx context.Context, orderID uuid.UUID, admin orders.Actor, notes string) (*orders.OrderView, error)
}
