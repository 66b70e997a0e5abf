package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mkasimov/beat808-backend/pkg/enums"
)

// Withdrawal is a seller payout request reviewed by an admin. The amount
// leaves the wallet's available balance at request time and is returned
// only on rejection.
type Withdrawal struct {
	ID           uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	UserName     string                 `gorm:"column:user_name;not null"`
	AmountCents  int64                  `gorm:"column:amount_cents;not null"`
	Method       string                 `gorm:"column:method;not null"`
	Details      string                 `gorm:"column:details;not null"`
	Status       enums.WithdrawalStatus `gorm:"column:status;type:withdrawal_status;not null;default:'pending'"`
	RejectReason *string                `gorm:"column:reject_reason"`
	ProcessedBy  *uuid.UUID             `gorm:"column:processed_by;type:uuid"`
	ProcessedAt  *time.Time             `gorm:"column:processed_at"`
	CreatedAt    time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
