package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a seller's settled and escrowed balances in cents.
type Wallet struct {
	UserID         uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	AvailableCents int64     `gorm:"column:available_cents;not null;default:0"`
	HoldCents      int64     `gorm:"column:hold_cents;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
