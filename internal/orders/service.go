package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mkasimov/beat808-backend/internal/wallet"
	"github.com/mkasimov/beat808-backend/pkg/db"
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

const orderRefAttempts = 3

type service struct {
	repo             Repository
	wallets          wallet.Repository
	tx               txRunner
	disputes         DisputeOpener
	notifier         Notifier
	logg             *logger.Logger
	sellerCutPercent int
}

// NewService builds the order state machine with the required
// dependencies.
func NewService(repo Repository, wallets wallet.Repository, tx txRunner, disputes DisputeOpener, notifier Notifier, logg *logger.Logger, sellerCutPercent int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if wallets == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if disputes == nil {
		return nil, fmt.Errorf("dispute opener required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if sellerCutPercent < 0 || sellerCutPercent > 100 {
		return nil, fmt.Errorf("seller cut percent out of range")
	}
	return &service{
		repo:             repo,
		wallets:          wallets,
		tx:               tx,
		disputes:         disputes,
		notifier:         notifier,
		logg:             logg,
		sellerCutPercent: sellerCutPercent,
	}, nil
}

func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*OrderView, error) {
	if input.SellerID == uuid.Nil || input.BeatID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller and beat are required")
	}
	if strings.TrimSpace(input.BuyerName) == "" || strings.TrimSpace(input.BuyerEmail) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer name and email are required")
	}
	if !input.License.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid license type")
	}
	if input.PriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}

	order := &models.Order{
		ID:              uuid.New(),
		BuyerID:         input.BuyerID,
		BuyerName:       input.BuyerName,
		BuyerEmail:      input.BuyerEmail,
		SellerID:        input.SellerID,
		SellerName:      input.SellerName,
		SellerContact:   input.SellerContact,
		BeatID:          input.BeatID,
		BeatTitle:       input.BeatTitle,
		BeatCoverRef:    input.BeatCoverRef,
		License:         input.License,
		PriceCents:      input.PriceCents,
		SellerCents:     money.SellerCut(input.PriceCents, s.sellerCutPercent),
		PaymentProofRef: input.PaymentProofRef,
		TransactionID:   input.TransactionID,
		PaymentDate:     input.PaymentDate,
		CardLastFour:    input.CardLastFour,
		Status:          enums.OrderStatusPending,
		Version:         1,
	}

	actorName := input.BuyerName
	var actorID *uuid.UUID
	if input.BuyerID != nil {
		id := *input.BuyerID
		actorID = &id
	}

	var err error
	for attempt := 0; attempt < orderRefAttempts; attempt++ {
		order.OrderRef = NewOrderRef(time.Now().UTC())
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if err := repo.Create(ctx, order); err != nil {
				return err
			}
			return repo.AppendAction(ctx, &models.OrderActionLog{
				OrderID:   order.ID,
				Action:    enums.OrderActionCreated,
				ActorRole: enums.ActorRoleBuyer,
				ActorID:   actorID,
				ActorName: actorName,
			})
		})
		if err == nil {
			break
		}
		if !db.IsUniqueViolation(err, "idx_orders_order_ref") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	s.notifier.NotifyNewOrder(ctx, order)

	actions, err := s.repo.ListActions(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load action log")
	}
	return NewOrderView(order, actions), nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*OrderView, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(order, actor); err != nil {
		return nil, err
	}
	actions, err := s.repo.ListActions(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load action log")
	}
	return NewOrderView(order, actions), nil
}

func (s *service) ListForBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, next, err := s.repo.ListByBuyer(ctx, buyerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list buyer orders")
	}
	return newOrderList(rows, next), nil
}

func (s *service) ListForSeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, next, err := s.repo.ListBySeller(ctx, sellerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list seller orders")
	}
	return newOrderList(rows, next), nil
}

func (s *service) Approve(ctx context.Context, orderID uuid.UUID, actor Actor) (*OrderView, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := requireOrderSeller(order, actor); err != nil {
		return nil, err
	}
	if !CanTransition(order.Status, enums.OrderStatusApproved, actor.Role) {
		return nil, InvalidTransitionError(order.Status, enums.OrderStatusApproved, actor.Role)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		wallets := s.wallets.WithTx(tx)

		if err := s.commitTransition(ctx, repo, order, enums.OrderStatusApproved, nil); err != nil {
			return err
		}
		if err := repo.AppendAction(ctx, actionEntry(order.ID, enums.OrderActionApproved, actor, nil)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append action")
		}

		// seller escrow: hold the cut and open the pending sale entry
		if err := wallets.EnsureWallet(ctx, order.SellerID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure seller wallet")
		}
		if err := wallets.Hold(ctx, order.SellerID, order.SellerCents); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "place seller hold")
		}
		orderRef := order.ID
		return wallets.AppendTransaction(ctx, &models.WalletTransaction{
			UserID:         order.SellerID,
			Type:           enums.TransactionTypeSale,
			Status:         enums.TransactionStatusPending,
			AmountCents:    order.SellerCents,
			RelatedOrderID: &orderRef,
			Description:    saleDescription(order),
		})
	})
	if err != nil {
		return nil, err
	}

	order.Status = enums.OrderStatusApproved
	return s.viewWithActions(ctx, order)
}

func (s *service) Deliver(ctx context.Context, orderID uuid.UUID, actor Actor) (*OrderView, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := requireOrderSeller(order, actor); err != nil {
		return nil, err
	}
	if !CanTransition(order.Status, enums.OrderStatusDelivered, actor.Role) {
		return nil, InvalidTransitionError(order.Status, enums.OrderStatusDelivered, actor.Role)
	}

	fromApproved := order.Status == enums.OrderStatusApproved

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		wallets := s.wallets.WithTx(tx)

		if err := s.commitTransition(ctx, repo, order, enums.OrderStatusDelivered, nil); err != nil {
			return err
		}
		if err := repo.AppendAction(ctx, actionEntry(order.ID, enums.OrderActionDelivered, actor, nil)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append action")
		}

		if err := settleSale(ctx, wallets, order, fromApproved); err != nil {
			return err
		}

		return repo.CreatePurchase(ctx, purchaseFromOrder(order, enums.PurchaseStatusCompleted))
	})
	if err != nil {
		return nil, err
	}

	order.Status = enums.OrderStatusDelivered
	return s.viewWithActions(ctx, order)
}

func (s *service) Reject(ctx context.Context, orderID uuid.UUID, actor Actor, reason string) (*OrderView, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required")
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := requireOrderSeller(order, actor); err != nil {
		return nil, err
	}
	if !CanTransition(order.Status, enums.OrderStatusRejected, actor.Role) {
		return nil, InvalidTransitionError(order.Status, enums.OrderStatusRejected, actor.Role)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := s.commitTransition(ctx, repo, order, enums.OrderStatusRejected, nil); err != nil {
			return err
		}
		return repo.AppendAction(ctx, actionEntry(order.ID, enums.OrderActionRejected, actor, &reason))
	})
	if err != nil {
		return nil, err
	}

	order.Status = enums.OrderStatusRejected
	return s.viewWithActions(ctx, order)
}

func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, actor Actor, reason string) (*OrderView, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason is required")
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.Role != enums.ActorRoleSystem {
		if err := requireOrderSeller(order, actor); err != nil {
			return nil, err
		}
	}
	if !CanTransition(order.Status, enums.OrderStatusCancelled, actor.Role) {
		return nil, InvalidTransitionError(order.Status, enums.OrderStatusCancelled, actor.Role)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := s.commitTransition(ctx, repo, order, enums.OrderStatusCancelled, nil); err != nil {
			return err
		}
		return repo.AppendAction(ctx, actionEntry(order.ID, enums.OrderActionCancelled, actor, &reason))
	})
	if err != nil {
		return nil, err
	}

	order.Status = enums.OrderStatusCancelled
	return s.viewWithActions(ctx, order)
}

func (s *service) OpenDispute(ctx context.Context, orderID uuid.UUID, actor Actor, reason string) (*OrderView, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute reason is required")
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeDispute(order, actor); err != nil {
		return nil, err
	}
	if !CanTransition(order.Status, enums.OrderStatusDisputed, actor.Role) {
		return nil, InvalidTransitionError(order.Status, enums.OrderStatusDisputed, actor.Role)
	}

	role := actor.Role
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		updates := map[string]any{
			"dispute_reason": reason,
			"disputed_by":    role,
		}
		if err := s.commitTransition(ctx, repo, order, enums.OrderStatusDisputed, updates); err != nil {
			return err
		}
		if err := repo.AppendAction(ctx, actionEntry(order.ID, enums.OrderActionDisputed, actor, &reason)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append action")
		}
		return s.disputes.OpenCase(ctx, tx, order, reason, actor)
	})
	if err != nil {
		return nil, err
	}

	order.Status = enums.OrderStatusDisputed
	order.DisputeReason = &reason
	order.DisputedBy = &role

	s.notifier.NotifyDispute(ctx, order, reason, actor.Role)

	return s.viewWithActions(ctx, order)
}

func (s *service) ExpireStale(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.repo.FindPendingBefore(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find stale orders")
	}

	systemActor := Actor{Name: "system", Role: enums.ActorRoleSystem}
	note := "payment not confirmed within the pending window"

	expired := 0
	for i := range stale {
		order := stale[i]
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if err := s.commitTransition(ctx, repo, &order, enums.OrderStatusCancelled, nil); err != nil {
				return err
			}
			return repo.AppendAction(ctx, actionEntry(order.ID, enums.OrderActionCancelled, systemActor, &note))
		})
		if err != nil {
			// a conflict means the order left pending after our read;
			// anything else is worth surfacing in the sweep log
			if coded := pkgerrors.As(err); coded != nil && coded.Code() == pkgerrors.CodeConflict {
				continue
			}
			s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "expire pending order", err)
			continue
		}
		expired++
	}
	return expired, nil
}

// commitTransition runs the conditional status update for order at its
// loaded version. A lost race surfaces as CONFLICT so callers re-fetch
// instead of retrying blindly.
func (s *service) commitTransition(ctx context.Context, repo Repository, order *models.Order, to enums.OrderStatus, extra map[string]any) error {
	updates := map[string]any{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	ok, err := repo.UpdateStatusCAS(ctx, order.ID, order.Version, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently, re-fetch and retry")
	}
	order.Version++
	return nil
}

// settleSale completes the seller-side ledger movement when an order
// reaches delivered. The approved path settles the escrowed hold; the
// direct pending->delivered path credits in one step.
func settleSale(ctx context.Context, wallets wallet.Repository, order *models.Order, fromApproved bool) error {
	if err := wallets.EnsureWallet(ctx, order.SellerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure seller wallet")
	}

	if fromApproved {
		if _, err := wallets.AdvanceOrderTransaction(ctx, order.ID, enums.TransactionTypeSale, enums.TransactionStatusCompleted); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete sale transaction")
		}
		if err := wallets.ReleaseHold(ctx, order.SellerID, order.SellerCents); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release seller hold")
		}
		if err := wallets.Credit(ctx, order.SellerID, order.SellerCents); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit seller")
		}
		return nil
	}

	orderRef := order.ID
	if err := wallets.AppendTransaction(ctx, &models.WalletTransaction{
		UserID:         order.SellerID,
		Type:           enums.TransactionTypeSale,
		Status:         enums.TransactionStatusCompleted,
		AmountCents:    order.SellerCents,
		RelatedOrderID: &orderRef,
		Description:    saleDescription(order),
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append sale transaction")
	}
	if err := wallets.Credit(ctx, order.SellerID, order.SellerCents); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit seller")
	}
	return nil
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) viewWithActions(ctx context.Context, order *models.Order) (*OrderView, error) {
	actions, err := s.repo.ListActions(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load action log")
	}
	return NewOrderView(order, actions), nil
}

func (s *service) authorizeRead(order *models.Order, actor Actor) error {
	switch actor.Role {
	case enums.ActorRoleAdmin:
		return nil
	case enums.ActorRoleSeller:
		if actor.ID == order.SellerID {
			return nil
		}
	case enums.ActorRoleBuyer:
		if order.BuyerID != nil && actor.ID == *order.BuyerID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to actor")
}

func requireOrderSeller(order *models.Order, actor Actor) error {
	if actor.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.Role != enums.ActorRoleSeller || actor.ID != order.SellerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to seller")
	}
	return nil
}

func authorizeDispute(order *models.Order, actor Actor) error {
	switch actor.Role {
	case enums.ActorRoleBuyer:
		if order.BuyerID == nil {
			// guest orders have no authenticated buyer to back the claim
			return pkgerrors.New(pkgerrors.CodeForbidden, "guest orders cannot open disputes")
		}
		if actor.ID == uuid.Nil || actor.ID != *order.BuyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to buyer")
		}
		return nil
	case enums.ActorRoleSeller:
		if actor.ID == uuid.Nil || actor.ID != order.SellerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to seller")
		}
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "only buyer or seller may open a dispute")
	}
}

func actionEntry(orderID uuid.UUID, action enums.OrderAction, actor Actor, note *string) *models.OrderActionLog {
	var actorID *uuid.UUID
	if actor.ID != uuid.Nil {
		id := actor.ID
		actorID = &id
	}
	return &models.OrderActionLog{
		OrderID:   orderID,
		Action:    action,
		ActorRole: actor.Role,
		ActorID:   actorID,
		ActorName: actor.Name,
		Note:      note,
	}
}

func saleDescription(order *models.Order) string {
	return fmt.Sprintf("Sale of %s (%s)", order.BeatTitle, order.License)
}

func purchaseFromOrder(order *models.Order, status enums.PurchaseStatus) *models.Purchase {
	return &models.Purchase{
		ID:                uuid.New(),
		OrderID:           order.ID,
		BuyerID:           order.BuyerID,
		BuyerName:         order.BuyerName,
		BuyerEmail:        order.BuyerEmail,
		SellerID:          order.SellerID,
		SellerName:        order.SellerName,
		BeatID:            order.BeatID,
		BeatTitle:         order.BeatTitle,
		License:           order.License,
		PriceCents:        order.PriceCents,
		SellerAmountCents: order.SellerCents,
		Status:            status,
	}
}

func newOrderList(rows []models.Order, next string) *OrderList {
	summaries := make([]OrderSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, NewOrderSummary(row))
	}
	return &OrderList{Orders: summaries, NextCursor: next}
}
