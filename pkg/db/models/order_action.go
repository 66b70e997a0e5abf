package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mkasimov/beat808-backend/pkg/enums"
)

// OrderActionLog is one append-only audit entry on an order. Rows are
// never updated or deleted; Seq gives a stable append order.
type OrderActionLog struct {
	Seq       int64             `gorm:"column:seq;primaryKey;autoIncrement"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	Action    enums.OrderAction `gorm:"column:action;type:order_action;not null"`
	ActorRole enums.ActorRole   `gorm:"column:actor_role;type:actor_role;not null"`
	ActorID   *uuid.UUID        `gorm:"column:actor_id;type:uuid"`
	ActorName string            `gorm:"column:actor_name;not null"`
	Note      *string           `gorm:"column:note"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}
