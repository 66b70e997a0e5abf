package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mkasimov/beat808-backend/pkg/enums"
)

// WalletTransaction is one append-only ledger entry. AmountCents is
// signed: credits are positive, deductions negative. Rows advance
// status (pending -> completed/rejected) but are never edited or
// deleted.
type WalletTransaction struct {
	ID             uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	Type           enums.TransactionType   `gorm:"column:type;type:transaction_type;not null"`
	Status         enums.TransactionStatus `gorm:"column:status;type:transaction_status;not null;default:'pending'"`
	AmountCents    int64                   `gorm:"column:amount_cents;not null"`
	RelatedOrderID *uuid.UUID              `gorm:"column:related_order_id;type:uuid;index"`
	WithdrawalID   *uuid.UUID              `gorm:"column:withdrawal_id;type:uuid"`
	Description    string                  `gorm:"column:description;not null"`
	CreatedAt      time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
