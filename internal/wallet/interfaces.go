package wallet

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mkasimov/beat808-backend/pkg/db/models"
	"github.com/mkasimov/beat808-backend/pkg/enums"
	"github.com/mkasimov/beat808-backend/pkg/pagination"
)

// Repository defines persistence operations for wallets and the
// transaction ledger. Balance mutations are single atomic UPDATEs so a
// contended wallet never needs a row lock beyond the statement itself.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	EnsureWallet(ctx context.Context, userID uuid.UUID) error
	FindWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	Credit(ctx context.Context, userID uuid.UUID, amountCents int64) error
	Debit(ctx context.Context, userID uuid.UUID, amountCents int64) error
	ForceDebit(ctx context.Context, userID uuid.UUID, amountCents int64) error
	Hold(ctx context.Context, userID uuid.UUID, amountCents int64) error
	ReleaseHold(ctx context.Context, userID uuid.UUID, amountCents int64) error
	AppendTransaction(ctx context.Context, txn *models.WalletTransaction) error
	AdvanceOrderTransaction(ctx context.Context, orderID uuid.UUID, txType enums.TransactionType, to enums.TransactionStatus) (int64, error)
	CountOrderTransactions(ctx context.Context, orderID uuid.UUID, txType enums.TransactionType) (int64, error)
	AdvanceWithdrawalTransaction(ctx context.Context, withdrawalID uuid.UUID, to enums.TransactionStatus) (int64, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, string, error)
}

// Service exposes the read surface for wallet owners.
type Service interface {
	Balance(ctx context.Context, userID uuid.UUID) (*BalanceView, error)
	Transactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TransactionList, error)
}
