package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mkasimov/beat808-backend/pkg/enums"
)

// Purchase is the buyer's delivered-goods record, created when an order
// reaches a delivered state. It outlives the order lifecycle so buyers
// keep access to what they bought, and it is the document the refund
// workflow operates on.
type Purchase struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	BuyerID           *uuid.UUID           `gorm:"column:buyer_id;type:uuid;index"`
	BuyerName         string               `gorm:"column:buyer_name;not null"`
	BuyerEmail        string               `gorm:"column:buyer_email;not null"`
	SellerID          uuid.UUID            `gorm:"column:seller_id;type:uuid;not null"`
	SellerName        string               `gorm:"column:seller_name;not null"`
	BeatID            uuid.UUID            `gorm:"column:beat_id;type:uuid;not null"`
	BeatTitle         string               `gorm:"column:beat_title;not null"`
	License           enums.LicenseType    `gorm:"column:license;type:license_type;not null"`
	PriceCents        int64                `gorm:"column:price_cents;not null"`
	SellerAmountCents int64                `gorm:"column:seller_amount_cents;not null"`
	Status            enums.PurchaseStatus `gorm:"column:status;type:purchase_status;not null;default:'completed'"`
	RefundedBy        *uuid.UUID           `gorm:"column:refunded_by;type:uuid"`
	RefundedAt        *time.Time           `gorm:"column:refunded_at"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
