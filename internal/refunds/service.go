package refunds

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mkasimov/beat808-backend/internal/orders"
	"github.com/mkasimov/beat808-backend/internal/wallet"
	"github.com/mkasimov/beat808-backend/pkg/db/models"
	"github.com/mkasimov/beat808-backend/pkg/enums"
	pkgerrors "github.com/mkasimov/beat808-backend/pkg/errors"
	"github.com/mkasimov/beat808-backend/pkg/logger"
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

// NewService builds the refund service with the required dependencies.
func NewService(repo Repository, wallets wallet.Repository, tx txRunner, notifier Notifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("purchases repository required")
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

func (s *service) Get(ctx context.Context, purchaseID uuid.UUID, actor orders.Actor) (*PurchaseView, error) {
	purchase, err := s.loadPurchase(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if err := authorizeRead(purchase, actor); err != nil {
		return nil, err
	}
	view := newPurchaseView(*purchase)
	return &view, nil
}

func (s *service) List(ctx context.Context, status *enums.PurchaseStatus, params pagination.Params) (*PurchaseList, error) {
	rows, next, err := s.repo.List(ctx, status, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchases")
	}
	return newPurchaseList(rows, next), nil
}

func (s *service) ListForBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*PurchaseList, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, next, err := s.repo.ListByBuyer(ctx, buyerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list buyer purchases")
	}
	return newPurchaseList(rows, next), nil
}

func (s *service) ListForSeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*PurchaseList, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, next, err := s.repo.ListBySeller(ctx, sellerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list seller purchases")
	}
	return newPurchaseList(rows, next), nil
}

func (s *service) Refund(ctx context.Context, purchaseID uuid.UUID, admin orders.Actor) (*PurchaseView, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	purchase, err := s.loadPurchase(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if purchase.Status == enums.PurchaseStatusRefunded {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "purchase already refunded")
	}

	wasOnHold := purchase.Status == enums.PurchaseStatusHold

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		wallets := s.wallets.WithTx(tx)

		ok, err := repo.MarkRefunded(ctx, purchase.ID, admin.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark purchase refunded")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "purchase already refunded")
		}

		// buyer leg: guests paid off-platform and are reimbursed the
		// same way, so only registered buyers get a wallet credit
		if purchase.BuyerID != nil {
			if err := wallets.EnsureWallet(ctx, *purchase.BuyerID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure buyer wallet")
			}
			if err := wallets.Credit(ctx, *purchase.BuyerID, purchase.PriceCents); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit buyer")
			}
			orderRef := purchase.OrderID
			if err := wallets.AppendTransaction(ctx, &models.WalletTransaction{
				UserID:         *purchase.BuyerID,
				Type:           enums.TransactionTypeRefund,
				Status:         enums.TransactionStatusCompleted,
				AmountCents:    purchase.PriceCents,
				RelatedOrderID: &orderRef,
				Description:    fmt.Sprintf("Refund for %s (%s)", purchase.BeatTitle, purchase.License),
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append refund transaction")
			}
		}

		// seller leg: claw the share back from wherever it sits
		if wasOnHold {
			if err := wallets.ReleaseHold(ctx, purchase.SellerID, purchase.SellerAmountCents); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release seller hold")
			}
		} else {
			if err := wallets.ForceDebit(ctx, purchase.SellerID, purchase.SellerAmountCents); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit seller")
			}
		}
		orderRef := purchase.OrderID
		return wallets.AppendTransaction(ctx, &models.WalletTransaction{
			UserID:         purchase.SellerID,
			Type:           enums.TransactionTypeRefundDeduct,
			Status:         enums.TransactionStatusCompleted,
			AmountCents:    -purchase.SellerAmountCents,
			RelatedOrderID: &orderRef,
			Description:    fmt.Sprintf("Refund deduction for %s (%s)", purchase.BeatTitle, purchase.License),
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyRefund(ctx, purchase)

	return s.reload(ctx, purchase.ID)
}

func (s *service) ReleaseHold(ctx context.Context, purchaseID uuid.UUID, admin orders.Actor) (*PurchaseView, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	purchase, err := s.loadPurchase(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if purchase.Status != enums.PurchaseStatusHold {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "purchase is not on hold")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		wallets := s.wallets.WithTx(tx)

		ok, err := repo.Release(ctx, purchase.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release purchase")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "purchase is not on hold")
		}
		if err := wallets.ReleaseHold(ctx, purchase.SellerID, purchase.SellerAmountCents); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release seller hold")
		}
		if err := wallets.Credit(ctx, purchase.SellerID, purchase.SellerAmountCents); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit seller")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ctx, purchase.ID)
}

func (s *service) loadPurchase(ctx context.Context, purchaseID uuid.UUID) (*models.Purchase, error) {
	if purchaseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase id required")
	}
	purchase, err := s.repo.FindByID(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase")
	}
	return purchase, nil
}

func (s *service) reload(ctx context.Context, purchaseID uuid.UUID) (*PurchaseView, error) {
	purchase, err := s.repo.FindByID(ctx, purchaseID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase")
	}
	view := newPurchaseView(*purchase)
	return &view, nil
}

func authorizeRead(purchase *models.Purchase, actor orders.Actor) error {
	switch actor.Role {
	case enums.ActorRoleAdmin:
		return nil
	case enums.ActorRoleSeller:
		if actor.ID == purchase.SellerID {
			return nil
		}
	case enums.ActorRoleBuyer:
		if purchase.BuyerID != nil && actor.ID == *purchase.BuyerID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "purchase does not belong to actor")
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
