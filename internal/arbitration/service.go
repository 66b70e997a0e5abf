package arbitration

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
	"github.com/mkasimov/beat808-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo       Repository
	ordersRepo orders.Repository
	wallets    wallet.Repository
	tx         txRunner
	logg       *logger.Logger
}

// NewService builds the arbitration service with the required
// dependencies.
func NewService(repo Repository, ordersRepo orders.Repository, wallets wallet.Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("arbitration repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if wallets == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       repo,
		ordersRepo: ordersRepo,
		wallets:    wallets,
		tx:         tx,
		logg:       logg,
	}, nil
}

// OpenCase snapshots the contested order into an arbitration case. It
// runs inside the dispute transition's transaction.
func (s *service) OpenCase(ctx context.Context, tx *gorm.DB, order *models.Order, reason string, raisedBy orders.Actor) error {
	dispute := &models.Dispute{
		ID:          uuid.New(),
		OrderID:     order.ID,
		BeatID:      order.BeatID,
		BeatTitle:   order.BeatTitle,
		AmountCents: order.PriceCents,
		BuyerID:     order.BuyerID,
		BuyerName:   order.BuyerName,
		SellerID:    order.SellerID,
		SellerName:  order.SellerName,
		Reason:      reason,
		RaisedBy:    raisedBy.Role,
		Status:      enums.DisputeStatusOpen,
	}
	if err := s.repo.WithTx(tx).CreateCase(ctx, dispute); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create arbitration case")
	}
	return nil
}

func (s *service) ListCases(ctx context.Context, status *enums.DisputeStatus, params pagination.Params) (*DisputeList, error) {
	rows, next, err := s.repo.List(ctx, status, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list arbitration cases")
	}
	views := make([]DisputeView, 0, len(rows))
	for _, row := range rows {
		views = append(views, newDisputeView(row))
	}
	return &DisputeList{Disputes: views, NextCursor: next}, nil
}

func (s *service) GetCase(ctx context.Context, disputeID uuid.UUID) (*DisputeView, error) {
	dispute, err := s.repo.FindByID(ctx, disputeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "arbitration case not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load arbitration case")
	}
	view := newDisputeView(*dispute)
	return &view, nil
}

func (s *service) ForceDeliver(ctx context.Context, orderID uuid.UUID, admin orders.Actor, notes string) (*orders.OrderView, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin notes are required")
	}
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !orders.CanTransition(order.Status, enums.OrderStatusAdminDelivered, admin.Role) {
		return nil, orders.InvalidTransitionError(order.Status, enums.OrderStatusAdminDelivered, admin.Role)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.ordersRepo.WithTx(tx)
		wallets := s.wallets.WithTx(tx)

		if err := s.commitTransition(ctx, ordersRepo, order, enums.OrderStatusAdminDelivered, map[string]any{
			"admin_notes": notes,
		}); err != nil {
			return err
		}
		if err := ordersRepo.AppendAction(ctx, adminAction(order.ID, enums.OrderActionAdminDelivered, admin, notes)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append action")
		}

		// the seller share goes on hold rather than available: an
		// admin-forced delivery stays refundable until released
		if err := wallets.EnsureWallet(ctx, order.SellerID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure seller wallet")
		}
		advanced, err := wallets.AdvanceOrderTransaction(ctx, order.ID, enums.TransactionTypeSale, enums.TransactionStatusCompleted)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete sale transaction")
		}
		if advanced == 0 {
			if err := wallets.Hold(ctx, order.SellerID, order.SellerCents); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "place seller hold")
			}
			if err := appendSaleTransaction(ctx, wallets, order, enums.TransactionStatusCompleted); err != nil {
				return err
			}
		}

		if err := ordersRepo.CreatePurchase(ctx, forcedPurchase(order)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record purchase")
		}

		return s.resolveCase(ctx, tx, order.ID, notes, admin.ID)
	})
	if err != nil {
		return nil, err
	}

	order.Status = enums.OrderStatusAdminDelivered
	order.AdminNotes = &notes
	return s.orderView(ctx, order)
}

func (s *service) ApproveOrder(ctx context.Context, orderID uuid.UUID, admin orders.Actor, notes string) (*orders.OrderView, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !orders.CanTransition(order.Status, enums.OrderStatusApproved, admin.Role) {
		return nil, orders.InvalidTransitionError(order.Status, enums.OrderStatusApproved, admin.Role)
	}

	resolution := strings.TrimSpace(notes)
	if resolution == "" {
		resolution = "order returned to the delivery flow"
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.ordersRepo.WithTx(tx)
		wallets := s.wallets.WithTx(tx)

		updates := map[string]any{}
		if strings.TrimSpace(notes) != "" {
			updates["admin_notes"] = notes
		}
		if err := s.commitTransition(ctx, ordersRepo, order, enums.OrderStatusApproved, updates); err != nil {
			return err
		}
		if err := ordersRepo.AppendAction(ctx, adminAction(order.ID, enums.OrderActionAdminApproved, admin, notes)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append action")
		}

		// disputes raised before approval have no escrow yet
		existing, err := wallets.CountOrderTransactions(ctx, order.ID, enums.TransactionTypeSale)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check sale transaction")
		}
		if existing == 0 {
			if err := wallets.EnsureWallet(ctx, order.SellerID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure seller wallet")
			}
			if err := wallets.Hold(ctx, order.SellerID, order.SellerCents); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "place seller hold")
			}
			if err := appendSaleTransaction(ctx, wallets, order, enums.TransactionStatusPending); err != nil {
				return err
			}
		}

		return s.resolveCase(ctx, tx, order.ID, resolution, admin.ID)
	})
	if err != nil {
		return nil, err
	}

	order.Status = enums.OrderStatusApproved
	return s.orderView(ctx, order)
}

func (s *service) RejectOrder(ctx context.Context, orderID uuid.UUID, admin orders.Actor, notes string) (*orders.OrderView, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin notes are required")
	}
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !orders.CanTransition(order.Status, enums.OrderStatusRejected, admin.Role) {
		return nil, orders.InvalidTransitionError(order.Status, enums.OrderStatusRejected, admin.Role)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.ordersRepo.WithTx(tx)
		wallets := s.wallets.WithTx(tx)

		if err := s.commitTransition(ctx, ordersRepo, order, enums.OrderStatusRejected, map[string]any{
			"admin_notes": notes,
		}); err != nil {
			return err
		}
		if err := ordersRepo.AppendAction(ctx, adminAction(order.ID, enums.OrderActionAdminRejected, admin, notes)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append action")
		}

		// unwind escrow if approval had placed it
		advanced, err := wallets.AdvanceOrderTransaction(ctx, order.ID, enums.TransactionTypeSale, enums.TransactionStatusRejected)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject sale transaction")
		}
		if advanced > 0 {
			if err := wallets.ReleaseHold(ctx, order.SellerID, order.SellerCents); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release seller hold")
			}
		}

		return s.resolveCase(ctx, tx, order.ID, notes, admin.ID)
	})
	if err != nil {
		return nil, err
	}

	order.Status = enums.OrderStatusRejected
	order.AdminNotes = &notes
	return s.orderView(ctx, order)
}

func (s *service) commitTransition(ctx context.Context, repo orders.Repository, order *models.Order, to enums.OrderStatus, extra map[string]any) error {
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

// resolveCase closes the open case tied to the order, if any. Orders
// force-delivered straight from pending never had one.
func (s *service) resolveCase(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, resolution string, resolvedBy uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	dispute, err := repo.FindOpenByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load arbitration case")
	}
	ok, err := repo.Resolve(ctx, dispute.ID, resolution, resolvedBy)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve arbitration case")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "arbitration case already resolved")
	}
	return nil
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.ordersRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) orderView(ctx context.Context, order *models.Order) (*orders.OrderView, error) {
	actions, err := s.ordersRepo.ListActions(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load action log")
	}
	return orders.NewOrderView(order, actions), nil
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

func adminAction(orderID uuid.UUID, action enums.OrderAction, admin orders.Actor, note string) *models.OrderActionLog {
	id := admin.ID
	entry := &models.OrderActionLog{
		OrderID:   orderID,
		Action:    action,
		ActorRole: enums.ActorRoleAdmin,
		ActorID:   &id,
		ActorName: admin.Name,
	}
	if strings.TrimSpace(note) != "" {
		entry.Note = &note
	}
	return entry
}

func appendSaleTransaction(ctx context.Context, wallets wallet.Repository, order *models.Order, status enums.TransactionStatus) error {
	orderRef := order.ID
	err := wallets.AppendTransaction(ctx, &models.WalletTransaction{
		UserID:         order.SellerID,
		Type:           enums.TransactionTypeSale,
		Status:         status,
		AmountCents:    order.SellerCents,
		RelatedOrderID: &orderRef,
		Description:    fmt.Sprintf("Sale of %s (%s)", order.BeatTitle, order.License),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append sale transaction")
	}
	return nil
}

func forcedPurchase(order *models.Order) *models.Purchase {
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
		Status:            enums.PurchaseStatusHold,
	}
}
