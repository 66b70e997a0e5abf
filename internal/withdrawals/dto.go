package withdrawals

import (
	"time"

	"github.com/google/uuid"

	"github.com/mkasimov/beat808-backend/pkg/db/models"
	"github.com/mkasimov/beat808-backend/pkg/enums"
	"github.com/mkasimov/beat808-backend/pkg/money"
)

// WithdrawalView is the payout request as returned by the API.
type WithdrawalView struct {
	ID           uuid.UUID              `json:"id"`
	UserID       uuid.UUID              `json:"user_id"`
	UserName     string                 `json:"user_name"`
	Amount       string                 `json:"amount"`
	Method       string                 `json:"method"`
	Details      string                 `json:"details"`
	Status       enums.WithdrawalStatus `json:"status"`
	RejectReason *string                `json:"reject_reason,omitempty"`
	ProcessedBy  *uuid.UUID             `json:"processed_by,omitempty"`
	ProcessedAt  *time.Time             `json:"processed_at,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// WithdrawalList wraps the paginated requests plus the next page cursor.
type WithdrawalList struct {
	Withdrawals []WithdrawalView `json:"withdrawals"`
	NextCursor  string           `json:"next_cursor,omitempty"`
}

func newWithdrawalView(withdrawal models.Withdrawal) WithdrawalView {
	return WithdrawalView{
		ID:           withdrawal.ID,
		UserID:       withdrawal.UserID,
		UserName:     withdrawal.UserName,
		Amount:       money.Format(withdrawal.AmountCents),
		Method:       withdrawal.Method,
		Details:      withdrawal.Details,
		Status:       withdrawal.Status,
		RejectReason: withdrawal.RejectReason,
		ProcessedBy:  withdrawal.ProcessedBy,
		ProcessedAt:  withdrawal.ProcessedAt,
		CreatedAt:    withdrawal.CreatedAt,
	}
}

func newWithdrawalList(rows []models.Withdrawal, next string) *WithdrawalList {
	views := make([]WithdrawalView, 0, len(rows))
	for _, row := range rows {
		views = append(views, newWithdrawalView(row))
	}
	return &WithdrawalList{Withdrawals: views, NextCursor: next}
}
