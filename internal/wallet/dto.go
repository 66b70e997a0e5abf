package wallet

import (
	"time"

	"github.com/google/uuid"

	"github.com/mkasimov/beat808-backend/pkg/db/models"
	"github.com/mkasimov/beat808-backend/pkg/enums"
	"github.com/mkasimov/beat808-backend/pkg/money"
)

// BalanceView is the wallet snapshot returned to its owner. Amounts are
// decimal strings; cents stay internal.
type BalanceView struct {
	UserID    uuid.UUID `json:"user_id"`
	Available string    `json:"available"`
	Hold      string    `json:"hold"`
}

// TransactionView is one ledger entry as returned by the API.
type TransactionView struct {
	ID             uuid.UUID               `json:"id"`
	Type           enums.TransactionType   `json:"type"`
	Status         enums.TransactionStatus `json:"status"`
	Amount         string                  `json:"amount"`
	RelatedOrderID *uuid.UUID              `json:"related_order_id,omitempty"`
	Description    string                  `json:"description"`
	CreatedAt      time.Time               `json:"created_at"`
}

// TransactionList wraps the paginated ledger plus the next page cursor.
type TransactionList struct {
	Transactions []TransactionView `json:"transactions"`
	NextCursor   string            `json:"next_cursor,omitempty"`
}

func newTransactionView(txn models.WalletTransaction) TransactionView {
	return TransactionView{
		ID:             txn.ID,
		Type:           txn.Type,
		Status:         txn.Status,
		Amount:         money.Format(txn.AmountCents),
		RelatedOrderID: txn.RelatedOrderID,
		Description:    txn.Description,
		CreatedAt:      txn.CreatedAt,
	}
}
