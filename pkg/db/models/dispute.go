package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mkasimov/beat808-backend/pkg/enums"
)

// Dispute is the arbitration case opened when a party contests an order.
// Party and beat fields are snapshots taken at dispute time so the case
// reads standalone in the admin queue.
type Dispute struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	BeatID      uuid.UUID           `gorm:"column:beat_id;type:uuid;not null"`
	BeatTitle   string              `gorm:"column:beat_title;not null"`
	AmountCents int64               `gorm:"column:amount_cents;not null"`
	BuyerID     *uuid.UUID          `gorm:"column:buyer_id;type:uuid"`
	BuyerName   string              `gorm:"column:buyer_name;not null"`
	SellerID    uuid.UUID           `gorm:"column:seller_id;type:uuid;not null"`
	SellerName  string              `gorm:"column:seller_name;not null"`
	Reason      string              `gorm:"column:reason;not null"`
	RaisedBy    enums.ActorRole     `gorm:"column:raised_by;type:actor_role;not null"`
	Status      enums.DisputeStatus `gorm:"column:status;type:dispute_status;not null;default:'open'"`
	Resolution  *string             `gorm:"column:resolution"`
	ResolvedBy  *uuid.UUID          `gorm:"column:resolved_by;type:uuid"`
	ResolvedAt  *time.Time          `gorm:"column:resolved_at"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
