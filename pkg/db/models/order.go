package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mkasimov/beat808-backend/pkg/enums"
)

// Order is the manual-verification escrow order at the center of the
// marketplace. BuyerID is null for guest checkouts; guest orders carry
// only the contact fields captured at purchase time. Version backs the
// conditional update every transition performs.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderRef        string            `gorm:"column:order_ref;not null;uniqueIndex"`
	BuyerID         *uuid.UUID        `gorm:"column:buyer_id;type:uuid"`
	BuyerName       string            `gorm:"column:buyer_name;not null"`
	BuyerEmail      string            `gorm:"column:buyer_email;not null"`
	SellerID        uuid.UUID         `gorm:"column:seller_id;type:uuid;not null"`
	SellerName      string            `gorm:"column:seller_name;not null"`
	SellerContact   string            `gorm:"column:seller_contact;not null"`
	BeatID          uuid.UUID         `gorm:"column:beat_id;type:uuid;not null"`
	BeatTitle       string            `gorm:"column:beat_title;not null"`
	BeatCoverRef    *string           `gorm:"column:beat_cover_ref"`
	License         enums.LicenseType `gorm:"column:license;type:license_type;not null"`
	PriceCents      int64             `gorm:"column:price_cents;not null"`
	SellerCents     int64             `gorm:"column:seller_cents;not null"`
	PaymentProofRef *string           `gorm:"column:payment_proof_ref"`
	TransactionID   *string           `gorm:"column:transaction_id"`
	PaymentDate     *string           `gorm:"column:payment_date"`
	CardLastFour    *string           `gorm:"column:card_last_four"`
	Status          enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	Version         int64             `gorm:"column:version;not null;default:1"`
	DisputeReason   *string           `gorm:"column:dispute_reason"`
	DisputedBy      *enums.ActorRole  `gorm:"column:disputed_by;type:actor_role"`
	AdminNotes      *string           `gorm:"column:admin_notes"`
	Actions         []OrderActionLog  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
