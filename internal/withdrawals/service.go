package withdrawals

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mkasimov/beat808-backend/internal/orders"
	"github.com/mkasimov/beat808-backend/internal/wallet"
	"github.com/mkasimov/beat808-backend/pkg/db/models"
	"github.com/mkasimov/beat808-backend/pkg/enums"
	pkgerrors "github.com/mkasimov/beat808-backend/pkg/errors"
	"github.com/mkasimov/beat808-backend/pkg/logger"
	"github.com/mkasimov/beat808-backend/pkg/money"
	"github.com/mkasimov/beat808-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo     Repository
	wallets  wallet.Repository
	tx       txRunner
	notifier Notifier
	logg     *logger.Logger
}

// NewService builds the withdrawals service with the required
// dependencies.
func NewService(repo Repository, wallets wallet.Repository, tx txRunner, notifier Notifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("withdrawals repository required")
	}
	if wallets == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, wallets: wallets, tx: tx, notifier: notifier, logg: logg}, nil
}

func (s *service) Request(ctx context.Context, user orders.Actor, amountCents int64, method, details string) (*WithdrawalView, error) {
	if user.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if amountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if strings.TrimSpace(method) == "" || strings.TrimSpace(details) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout method and details are required")
	}

	withdrawal := &models.Withdrawal{
		ID:          uuid.New(),
		UserID:      user.ID,
		UserName:    user.Name,
		AmountCents: amountCents,
		Method:      method,
		Details:     details,
		Status:      enums.WithdrawalStatusPending,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		wallets := s.wallets.WithTx(tx)

		if err := wallets.Debit(ctx, user.ID, amountCents); err != nil {
			if errors.Is(err, wallet.ErrInsufficientFunds) {
				return pkgerrors.New(pkgerrors.CodeValidation, "insufficient available balance")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit wallet")
		}
		if err := repo.Create(ctx, withdrawal); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create withdrawal")
		}
		withdrawalID := withdrawal.ID
		return wallets.AppendTransaction(ctx, &models.WalletTransaction{
			UserID:       user.ID,
			Type:         enums.TransactionTypeWithdrawal,
			Status:       enums.TransactionStatusPending,
			AmountCents:  -amountCents,
			WithdrawalID: &withdrawalID,
			Description:  fmt.Sprintf("Withdrawal via %s (%s)", method, money.Format(amountCents)),
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyWithdrawalRequest(ctx, withdrawal)

	view := newWithdrawalView(*withdrawal)
	return &view, nil
}

func (s *service) Get(ctx context.Context, withdrawalID uuid.UUID, actor orders.Actor) (*WithdrawalView, error) {
	withdrawal, err := s.load(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	if actor.Role != enums.ActorRoleAdmin && actor.ID != withdrawal.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "withdrawal does not belong to actor")
	}
	view := newWithdrawalView(*withdrawal)
	return &view, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*WithdrawalList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, next, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user withdrawals")
	}
	return newWithdrawalList(rows, next), nil
}

func (s *service) List(ctx context.Context, status *enums.WithdrawalStatus, params pagination.Params) (*WithdrawalList, error) {
	rows, next, err := s.repo.List(ctx, status, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list withdrawals")
	}
	return newWithdrawalList(rows, next), nil
}

func (s *service) Approve(ctx context.Context, withdrawalID uuid.UUID, admin orders.Actor) (*WithdrawalView, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	withdrawal, err := s.load(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	if withdrawal.Status != enums.WithdrawalStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "withdrawal already processed")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		wallets := s.wallets.WithTx(tx)

		ok, err := repo.Settle(ctx, withdrawal.ID, enums.WithdrawalStatusCompleted, admin.ID, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle withdrawal")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "withdrawal already processed")
		}
		if _, err := wallets.AdvanceWithdrawalTransaction(ctx, withdrawal.ID, enums.TransactionStatusCompleted); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete withdrawal transaction")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ctx, withdrawal.ID)
}

func (s *service) Reject(ctx context.Context, withdrawalID uuid.UUID, admin orders.Actor, reason string) (*WithdrawalView, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required")
	}
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	withdrawal, err := s.load(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	if withdrawal.Status != enums.WithdrawalStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "withdrawal already processed")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		wallets := s.wallets.WithTx(tx)

		ok, err := repo.Settle(ctx, withdrawal.ID, enums.WithdrawalStatusRejected, admin.ID, &reason)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle withdrawal")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "withdrawal already processed")
		}
		if _, err := wallets.AdvanceWithdrawalTransaction(ctx, withdrawal.ID, enums.TransactionStatusRejected); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject withdrawal transaction")
		}
		if err := wallets.Credit(ctx, withdrawal.UserID, withdrawal.AmountCents); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "return funds")
		}
		withdrawalRef := withdrawal.ID
		return wallets.AppendTransaction(ctx, &models.WalletTransaction{
			UserID:       withdrawal.UserID,
			Type:         enums.TransactionTypeWithdrawalRefund,
			Status:       enums.TransactionStatusCompleted,
			AmountCents:  withdrawal.AmountCents,
			WithdrawalID: &withdrawalRef,
			Description:  fmt.Sprintf("Returned withdrawal: %s", reason),
		})
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ctx, withdrawal.ID)
}

func (s *service) load(ctx context.Context, withdrawalID uuid.UUID) (*models.Withdrawal, error) {
	if withdrawalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal id required")
	}
	withdrawal, err := s.repo.FindByID(ctx, withdrawalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal")
	}
	return withdrawal, nil
}

func (s *service) reload(ctx context.Context, withdrawalID uuid.UUID) (*WithdrawalView, error) {
	withdrawal, err := s.repo.FindByID(ctx, withdrawalID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal")
	}
	view := newWithdrawalView(*withdrawal)
	return &view, nil
}

func requireAdmin(admin orders.Actor) error {
	if admin.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if admin.Role != enums.ActorRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}
