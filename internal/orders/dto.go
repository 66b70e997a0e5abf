package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/mkasimov/beat808-backend/pkg/db/models"
	"github.com/mkasimov/beat808-backend/pkg/enums"
	"github.com/mkasimov/beat808-backend/pkg/money"
)

// Actor identifies who is driving a transition. ID is uuid.Nil for the
// system actor (expiry sweep) and for guest buyers.
type Actor struct {
	ID   uuid.UUID
	Name string
	Role enums.ActorRole
}

// CheckoutInput captures everything the buyer submits at purchase time.
// BuyerID is nil for guest checkouts.
type CheckoutInput struct {
	BuyerID         *uuid.UUID
	BuyerName       string
	BuyerEmail      string
	SellerID        uuid.UUID
	SellerName      string
	SellerContact   string
	BeatID          uuid.UUID
	BeatTitle       string
	BeatCoverRef    *string
	License         enums.LicenseType
	PriceCents      int64
	PaymentProofRef *string
	TransactionID   *string
	PaymentDate     *string
	CardLastFour    *string
}

// ActionView is one audit log entry as returned by the API.
type ActionView struct {
	Action    enums.OrderAction `json:"action"`
	ActorRole enums.ActorRole   `json:"actor_role"`
	ActorID   *uuid.UUID        `json:"actor_id,omitempty"`
	ActorName string            `json:"actor_name"`
	Note      *string           `json:"note,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// OrderView is the order as returned by the API.
type OrderView struct {
	ID            uuid.UUID         `json:"id"`
	OrderRef      string            `json:"order_ref"`
	BuyerID       *uuid.UUID        `json:"buyer_id,omitempty"`
	BuyerName     string            `json:"buyer_name"`
	BuyerEmail    string            `json:"buyer_email"`
	SellerID      uuid.UUID         `json:"seller_id"`
	SellerName    string            `json:"seller_name"`
	BeatID        uuid.UUID         `json:"beat_id"`
	BeatTitle     string            `json:"beat_title"`
	License       enums.LicenseType `json:"license"`
	Price         string            `json:"price"`
	Status        enums.OrderStatus `json:"status"`
	DisputeReason *string           `json:"dispute_reason,omitempty"`
	DisputedBy    *enums.ActorRole  `json:"disputed_by,omitempty"`
	AdminNotes    *string           `json:"admin_notes,omitempty"`
	Actions       []ActionView      `json:"actions,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// OrderSummary is the list-row shape without the action log.
type OrderSummary struct {
	ID         uuid.UUID         `json:"id"`
	OrderRef   string            `json:"order_ref"`
	BuyerName  string            `json:"buyer_name"`
	SellerName string            `json:"seller_name"`
	BeatTitle  string            `json:"beat_title"`
	License    enums.LicenseType `json:"license"`
	Price      string            `json:"price"`
	Status     enums.OrderStatus `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// NewOrderView maps an order row (and optionally its actions) to the
// API shape.
func NewOrderView(order *models.Order, actions []models.OrderActionLog) *OrderView {
	view := &OrderView{
		ID:            order.ID,
		OrderRef:      order.OrderRef,
		BuyerID:       order.BuyerID,
		BuyerName:     order.BuyerName,
		BuyerEmail:    order.BuyerEmail,
		SellerID:      order.SellerID,
		SellerName:    order.SellerName,
		BeatID:        order.BeatID,
		BeatTitle:     order.BeatTitle,
		License:       order.License,
		Price:         money.Format(order.PriceCents),
		Status:        order.Status,
		DisputeReason: order.DisputeReason,
		DisputedBy:    order.DisputedBy,
		AdminNotes:    order.AdminNotes,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
	for _, action := range actions {
		view.Actions = append(view.Actions, ActionView{
			Action:    action.Action,
			ActorRole: action.ActorRole,
			ActorID:   action.ActorID,
			ActorName: action.ActorName,
			Note:      action.Note,
			CreatedAt: action.CreatedAt,
		})
	}
	return view
}

// NewOrderSummary maps an order row to its list shape.
func NewOrderSummary(order models.Order) OrderSummary {
	return OrderSummary{
		ID:         order.ID,
		OrderRef:   order.OrderRef,
		BuyerName:  order.BuyerName,
		SellerName: order.SellerName,
		BeatTitle:  order.BeatTitle,
		License:    order.License,
		Price:      money.Format(order.PriceCents),
		Status:     order.Status,
		CreatedAt:  order.CreatedAt,
	}
}
