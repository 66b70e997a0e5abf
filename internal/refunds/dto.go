package refunds

import (
	"time"

	"github.com/google/uuid"

	"github.com/mkasimov/beat808-backend/pkg/db/models"
	"github.com/mkasimov/beat808-backend/pkg/enums"
	"github.com/mkasimov/beat808-backend/pkg/money"
)

// PurchaseView is the purchase record as returned by the API.
type PurchaseView struct {
	ID           uuid.UUID            `json:"id"`
	OrderID      uuid.UUID            `json:"order_id"`
	BuyerID      *uuid.UUID           `json:"buyer_id,omitempty"`
	BuyerName    string               `json:"buyer_name"`
	SellerID     uuid.UUID            `json:"seller_id"`
	SellerName   string               `json:"seller_name"`
	BeatID       uuid.UUID            `json:"beat_id"`
	BeatTitle    string               `json:"beat_title"`
	License      enums.LicenseType    `json:"license"`
	Price        string               `json:"price"`
	SellerAmount string               `json:"seller_amount"`
	Status       enums.PurchaseStatus `json:"status"`
	RefundedBy   *uuid.UUID           `json:"refunded_by,omitempty"`
	RefundedAt   *time.Time           `json:"refunded_at,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
}

// PurchaseList wraps the paginated purchases plus the next page cursor.
type PurchaseList struct {
	Purchases  []PurchaseView `json:"purchases"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func newPurchaseView(purchase models.Purchase) PurchaseView {
	return PurchaseView{
		ID:           purchase.ID,
		OrderID:      purchase.OrderID,
		BuyerID:      purchase.BuyerID,
		BuyerName:    purchase.BuyerName,
		SellerID:     purchase.SellerID,
		SellerName:   purchase.SellerName,
		BeatID:       purchase.BeatID,
		BeatTitle:    purchase.BeatTitle,
		License:      purchase.License,
		Price:        money.Format(purchase.PriceCents),
		SellerAmount: money.Format(purchase.SellerAmountCents),
		Status:       purchase.Status,
		RefundedBy:   purchase.RefundedBy,
		RefundedAt:   purchase.RefundedAt,
		CreatedAt:    purchase.CreatedAt,
	}
}

func newPurchaseList(rows []models.Purchase, next string) *PurchaseList {
	views := make([]PurchaseView, 0, len(rows))
	for _, row := range rows {
		views = append(views, newPurchaseView(row))
	}
	return &PurchaseList{Purchases: views, NextCursor: next}
}
