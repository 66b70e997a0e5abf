package arbitration

import (
	"time"

	"github.com/google/uuid"

	"github.com/mkasimov/beat808-backend/pkg/db/models"
	"github.com/mkasimov/beat808-backend/pkg/enums"
	"github.com/mkasimov/beat808-backend/pkg/money"
)

// DisputeView is the arbitration case as returned by the admin API.
type DisputeView struct {
	ID         uuid.UUID           `json:"id"`
	OrderID    uuid.UUID           `json:"order_id"`
	BeatID     uuid.UUID           `json:"beat_id"`
	BeatTitle  string              `json:"beat_title"`
	Amount     string              `json:"amount"`
	BuyerID    *uuid.UUID          `json:"buyer_id,omitempty"`
	BuyerName  string              `json:"buyer_name"`
	SellerID   uuid.UUID           `json:"seller_id"`
	SellerName string              `json:"seller_name"`
	Reason     string              `json:"reason"`
	RaisedBy   enums.ActorRole     `json:"raised_by"`
	Status     enums.DisputeStatus `json:"status"`
	Resolution *string             `json:"resolution,omitempty"`
	ResolvedBy *uuid.UUID          `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time          `json:"resolved_at,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

// DisputeList wraps the paginated cases plus the next page cursor.
type DisputeList struct {
	Disputes   []DisputeView `json:"disputes"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

func newDisputeView(dispute models.Dispute) DisputeView {
	return DisputeView{
		ID:         dispute.ID,
		OrderID:    dispute.OrderID,
		BeatID:     dispute.BeatID,
		BeatTitle:  dispute.BeatTitle,
		Amount:     money.Format(dispute.AmountCents),
		BuyerID:    dispute.BuyerID,
		BuyerName:  dispute.BuyerName,
		SellerID:   dispute.SellerID,
		SellerName: dispute.SellerName,
		Reason:     dispute.Reason,
		RaisedBy:   dispute.RaisedBy,
		Status:     dispute.Status,
		Resolution: dispute.Resolution,
		ResolvedBy: dispute.ResolvedBy,
		ResolvedAt: dispute.ResolvedAt,
		CreatedAt:  dispute.CreatedAt,
	}
}
