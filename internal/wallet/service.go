package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/mkasimov/beat808-backend/pkg/errors"
	"github.com/mkasimov/beat808-backend/pkg/money"
	"github.com/mkasimov/beat808-backend/pkg/pagination"
)

// ErrInsufficientFunds is returned when a debit would take the
// available balance below zero.
var ErrInsufficientFunds = errors.New("insufficient available balance")

type service struct {
	repo Repository
}

// NewService builds a wallet service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (*BalanceView, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	wallet, err := s.repo.FindWallet(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Wallets are created lazily; an absent row is an empty wallet.
			return &BalanceView{
				UserID:    userID,
				Available: money.Format(0),
				Hold:      money.Format(0),
			}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}

	return &BalanceView{
		UserID:    wallet.UserID,
		Available: money.Format(wallet.AvailableCents),
		Hold:      money.Format(wallet.HoldCents),
	}, nil
}

func (s *service) Transactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TransactionList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	rows, next, err := s.repo.ListTransactions(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}

	views := make([]TransactionView, 0, len(rows))
	for _, row := range rows {
		views = append(views, newTransactionView(row))
	}
	return &TransactionList{Transactions: views, NextCursor: next}, nil
}
