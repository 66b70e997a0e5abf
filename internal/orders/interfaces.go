package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mkasimov/beat808-backend/pkg/db/models"
	"github.com/mkasimov/beat808-backend/pkg/enums"
	"github.com/mkasimov/beat808-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their
// append-only action log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByRef(ctx context.Context, ref string) (*models.Order, error)
	// UpdateStatusCAS applies updates only if the stored version still
	// matches expectedVersion, bumping version by one. Returns false
	// when another writer won the race.
	UpdateStatusCAS(ctx context.Context, orderID uuid.UUID, expectedVersion int64, updates map[string]any) (bool, error)
	AppendAction(ctx context.Context, entry *models.OrderActionLog) error
	ListActions(ctx context.Context, orderID uuid.UUID) ([]models.OrderActionLog, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	ListByStatus(ctx context.Context, status enums.OrderStatus, params pagination.Params) ([]models.Order, string, error)
	FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
	// CreatePurchase records the fulfilled purchase snapshot once an
	// order reaches a delivered state.
	CreatePurchase(ctx context.Context, purchase *models.Purchase) error
}

// Service defines the order state machine operations.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*OrderView, error)
	Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*OrderView, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListForSeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*OrderList, error)
	Approve(ctx context.Context, orderID uuid.UUID, actor Actor) (*OrderView, error)
	Deliver(ctx context.Context, orderID uuid.UUID, actor Actor) (*OrderView, error)
	Reject(ctx context.Context, orderID uuid.UUID, actor Actor, reason string) (*OrderView, error)
	Cancel(ctx context.Context, orderID uuid.UUID, actor Actor, reason string) (*OrderView, error)
	OpenDispute(ctx context.Context, orderID uuid.UUID, actor Actor, reason string) (*OrderView, error)
	// ExpireStale cancels pending orders created before cutoff on
	// behalf of the system actor. Returns how many orders it closed.
	ExpireStale(ctx context.Context, cutoff time.Time) (int, error)
}

// DisputeOpener records the arbitration case when a dispute opens. The
// implementation lives with the arbitration engine and is injected at
// wiring time.
type DisputeOpener interface {
	OpenCase(ctx context.Context, tx *gorm.DB, order *models.Order, reason string, raisedBy Actor) error
}

// Notifier delivers best-effort operator notifications. Failures are
// logged by the caller and never fail a transition.
type Notifier interface {
	NotifyNewOrder(ctx context.Context, order *models.Order)
	NotifyDispute(ctx context.Context, order *models.Order, reason string, raisedBy enums.ActorRole)
}
