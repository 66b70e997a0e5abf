package refunds

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/mkasimov/beat808-backend/internal/orders"
	"github.com/mkasimov/beat808-backend/internal/wallet"
	"github.com/mkasimov/beat808-backend/pkg/db/models"
	"github.com/mkasimov/beat808-backend/pkg/enums"
	pkgerrors "github.com/mkasimov/beat808-backend/pkg/errors"
	"github.com/mkasimov/beat808-backend/pkg/logger"
	"github.com/mkasimov/beat808-backend/pkg/pagination"
)

type stubPurchaseRepo struct {
	purchases map[uuid.UUID]*models.Purchase
}

func newStubPurchaseRepo(purchases ...*models.Purchase) *stubPurchaseRepo {
	repo := &stubPurchaseRepo{purchases: map[uuid.UUID]*models.Purchase{}}
	for _, purchase := range purchases {
		repo.purchases[purchase.ID] = purchase
	}
	return repo
}

func (r *stubPurchaseRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubPurchaseRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	purchase, ok := r.purchases[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *purchase
	return &copied, nil
}

func (r *stubPurchaseRepo) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Purchase, error) {
	panic("unexpected call to FindByOrder")
}

func (r *stubPurchaseRepo) List(ctx context.Context, status *enums.PurchaseStatus, params pagination.Params) ([]models.Purchase, string, error) {
	panic("unexpected call to List")
}

func (r *stubPurchaseRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Purchase, string, error) {
	panic("unexpected call to ListByBuyer")
}

func (r *stubPurchaseRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Purchase, string, error) {
	panic("unexpected call to ListBySeller")
}

func (r *stubPurchaseRepo) MarkRefunded(ctx context.Context, purchaseID uuid.UUID, refundedBy uuid.UUID) (bool, error) {
	purchase, ok := r.purchases[purchaseID]
	if !ok || purchase.Status == enums.PurchaseStatusRefunded {
		return false, nil
	}
	now := time.Now().UTC()
	purchase.Status = enums.PurchaseStatusRefunded
	purchase.RefundedBy = &refundedBy
	purchase.RefundedAt = &now
	return true, nil
}

func (r *stubPurchaseRepo) Release(ctx context.Context, purchaseID uuid.UUID) (bool, error) {
	purchase, ok := r.purchases[purchaseID]
	if !ok || purchase.Status != enums.PurchaseStatusHold {
		return false, nil
	}
	purchase.Status = enums.PurchaseStatusCompleted
	return true, nil
}

type ledgerCall struct {
	op     string
	userID uuid.UUID
	amount int64
}

type stubLedger struct {
	calls []ledgerCall
	txns  []models.WalletTransaction
}

func (l *stubLedger) WithTx(tx *gorm.DB) wallet.Repository { return l }

func (l *stubLedger) record(op string, userID uuid.UUID, amount int64) {
	l.calls = append(l.calls, ledgerCall{op: op, userID: userID, amount: amount})
}

func (l *stubLedger) EnsureWallet(ctx context.Context, userID uuid.UUID) error {
	l.record("ensure", userID, 0)
	return nil
}

func (l *stubLedger) FindWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	panic("unexpected call to FindWallet")
}

func (l *stubLedger) Credit(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	l.record("credit", userID, amountCents)
	return nil
}

func (l *stubLedger) Debit(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	panic("unexpected call to Debit")
}

func (l *stubLedger) ForceDebit(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	l.record("force_debit", userID, amountCents)
	return nil
}

func (l *stubLedger) Hold(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	panic("unexpected call to Hold")
}

func (l *stubLedger) ReleaseHold(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	l.record("release_hold", userID, amountCents)
	return nil
}

func (l *stubLedger) AppendTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	l.txns = append(l.txns, *txn)
	return nil
}

func (l *stubLedger) AdvanceOrderTransaction(ctx context.Context, orderID uuid.UUID, txType enums.TransactionType, to enums.TransactionStatus) (int64, error) {
	panic("unexpected call to AdvanceOrderTransaction")
}

func (l *stubLedger) CountOrderTransactions(ctx context.Context, orderID uuid.UUID, txType enums.TransactionType) (int64, error) {
	panic("unexpected call to CountOrderTransactions")
}

func (l *stubLedger) AdvanceWithdrawalTransaction(ctx context.Context, withdrawalID uuid.UUID, to enums.TransactionStatus) (int64, error) {
	panic("unexpected call to AdvanceWithdrawalTransaction")
}

func (l *stubLedger) ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, string, error) {
	panic("unexpected call to ListTransactions")
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubNotifier struct {
	refunds int
}

func (n *stubNotifier) NotifyRefund(ctx context.Context, purchase *models.Purchase) {
	n.refunds++
}

type fixture struct {
	repo     *stubPurchaseRepo
	ledger   *stubLedger
	notifier *stubNotifier
	svc      Service
}

func newFixture(t *testing.T, purchases ...*models.Purchase) *fixture {
	t.Helper()
	repo := newStubPurchaseRepo(purchases...)
	ledger := &stubLedger{}
	notifier := &stubNotifier{}
	logg := logger.New(logger.Options{ServiceName: "refunds-test", Level: zerolog.Disabled})
	svc, err := NewService(repo, ledger, stubTxRunner{}, notifier, logg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{repo: repo, ledger: ledger, notifier: notifier, svc: svc}
}

func testPurchase(status enums.PurchaseStatus, buyerID *uuid.UUID) *models.Purchase {
	return &models.Purchase{
		ID:                uuid.New(),
		OrderID:           uuid.New(),
		BuyerID:           buyerID,
		BuyerName:         "Prod Kass",
		BuyerEmail:        "kass@example.com",
		SellerID:          uuid.New(),
		SellerName:        "Beatsmith",
		BeatID:            uuid.New(),
		BeatTitle:         "Night Drive",
		License:           enums.LicenseWAV,
		PriceCents:        2999,
		SellerAmountCents: 2699,
		Status:            status,
	}
}

func adminActor() orders.Actor {
	return orders.Actor{ID: uuid.New(), Name: "Ops", Role: enums.ActorRoleAdmin}
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	coded := pkgerrors.As(err)
	if coded == nil {
		t.Fatalf("expected typed error with code %s, got %v", code, err)
	}
	if coded.Code() != code {
		t.Fatalf("expected code %s, got %s (%v)", code, coded.Code(), err)
	}
}

func TestRefundCompletedPurchase(t *testing.T) {
	buyerID := uuid.New()
	purchase := testPurchase(enums.PurchaseStatusCompleted, &buyerID)
	f := newFixture(t, purchase)

	view, err := f.svc.Refund(context.Background(), purchase.ID, adminActor())
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if view.Status != enums.PurchaseStatusRefunded {
		t.Fatalf("expected refunded, got %s", view.Status)
	}

	var buyerCredit, sellerDebit bool
	for _, call := range f.ledger.calls {
		if call.op == "credit" && call.userID == buyerID && call.amount == 2999 {
			buyerCredit = true
		}
		if call.op == "force_debit" && call.userID == purchase.SellerID && call.amount == 2699 {
			sellerDebit = true
		}
	}
	if !buyerCredit || !sellerDebit {
		t.Fatalf("expected buyer credit and seller debit, got %+v", f.ledger.calls)
	}

	if len(f.ledger.txns) != 2 {
		t.Fatalf("expected two ledger entries, got %+v", f.ledger.txns)
	}
	if f.ledger.txns[0].Type != enums.TransactionTypeRefund || f.ledger.txns[0].AmountCents != 2999 {
		t.Fatalf("unexpected refund entry: %+v", f.ledger.txns[0])
	}
	if f.ledger.txns[1].Type != enums.TransactionTypeRefundDeduct || f.ledger.txns[1].AmountCents != -2699 {
		t.Fatalf("unexpected deduct entry: %+v", f.ledger.txns[1])
	}

	if f.notifier.refunds != 1 {
		t.Fatalf("expected refund notification, got %d", f.notifier.refunds)
	}
}

func TestRefundHeldPurchaseReleasesHold(t *testing.T) {
	buyerID := uuid.New()
	purchase := testPurchase(enums.PurchaseStatusHold, &buyerID)
	f := newFixture(t, purchase)

	if _, err := f.svc.Refund(context.Background(), purchase.ID, adminActor()); err != nil {
		t.Fatalf("Refund: %v", err)
	}

	for _, call := range f.ledger.calls {
		if call.op == "force_debit" {
			t.Fatalf("held funds must come off hold, not available: %+v", f.ledger.calls)
		}
	}
	released := false
	for _, call := range f.ledger.calls {
		if call.op == "release_hold" && call.amount == 2699 {
			released = true
		}
	}
	if !released {
		t.Fatalf("expected hold release, got %+v", f.ledger.calls)
	}
}

func TestRefundGuestPurchaseSkipsBuyerLeg(t *testing.T) {
	purchase := testPurchase(enums.PurchaseStatusCompleted, nil)
	f := newFixture(t, purchase)

	if _, err := f.svc.Refund(context.Background(), purchase.ID, adminActor()); err != nil {
		t.Fatalf("Refund: %v", err)
	}

	for _, call := range f.ledger.calls {
		if call.op == "credit" {
			t.Fatalf("guest purchases have no wallet to credit: %+v", f.ledger.calls)
		}
	}
	if len(f.ledger.txns) != 1 || f.ledger.txns[0].Type != enums.TransactionTypeRefundDeduct {
		t.Fatalf("expected only the deduct entry, got %+v", f.ledger.txns)
	}
}

func TestRefundIsOncePerPurchase(t *testing.T) {
	buyerID := uuid.New()
	purchase := testPurchase(enums.PurchaseStatusCompleted, &buyerID)
	f := newFixture(t, purchase)
	admin := adminActor()

	if _, err := f.svc.Refund(context.Background(), purchase.ID, admin); err != nil {
		t.Fatalf("Refund: %v", err)
	}

	_, err := f.svc.Refund(context.Background(), purchase.ID, admin)
	expectCode(t, err, pkgerrors.CodeStateConflict)

	if len(f.ledger.txns) != 2 {
		t.Fatalf("second refund must not touch the ledger, got %+v", f.ledger.txns)
	}
}

func TestRefundRequiresAdmin(t *testing.T) {
	buyerID := uuid.New()
	purchase := testPurchase(enums.PurchaseStatusCompleted, &buyerID)
	f := newFixture(t, purchase)

	_, err := f.svc.Refund(context.Background(), purchase.ID, orders.Actor{
		ID:   buyerID,
		Name: "Prod Kass",
		Role: enums.ActorRoleBuyer,
	})
	expectCode(t, err, pkgerrors.CodeForbidden)
}

func TestReleaseHoldSettlesSeller(t *testing.T) {
	purchase := testPurchase(enums.PurchaseStatusHold, nil)
	f := newFixture(t, purchase)

	view, err := f.svc.ReleaseHold(context.Background(), purchase.ID, adminActor())
	if err != nil {
		t.Fatalf("ReleaseHold: %v", err)
	}
	if view.Status != enums.PurchaseStatusCompleted {
		t.Fatalf("expected completed, got %s", view.Status)
	}

	want := []string{"release_hold", "credit"}
	if len(f.ledger.calls) != len(want) {
		t.Fatalf("expected ops %v, got %+v", want, f.ledger.calls)
	}
	for i, op := range want {
		if f.ledger.calls[i].op != op || f.ledger.calls[i].amount != 2699 {
			t.Fatalf("expected ops %v of 2699, got %+v", want, f.ledger.calls)
		}
	}
}

func TestReleaseHoldRejectsCompletedPurchase(t *testing.T) {
	purchase := testPurchase(enums.PurchaseStatusCompleted, nil)
	f := newFixture(t, purchase)

	_, err := f.svc.ReleaseHold(context.Background(), purchase.ID, adminActor())
	expectCode(t, err, pkgerrors.CodeStateConflict)
}

func TestGetAuthorizesParties(t *testing.T) {
	buyerID := uuid.New()
	purchase := testPurchase(enums.PurchaseStatusCompleted, &buyerID)
	f := newFixture(t, purchase)

	if _, err := f.svc.Get(context.Background(), purchase.ID, orders.Actor{
		ID:   buyerID,
		Role: enums.ActorRoleBuyer,
	}); err != nil {
		t.Fatalf("buyer read: %v", err)
	}

	_, err := f.svc.Get(context.Background(), purchase.ID, orders.Actor{
		ID:   uuid.New(),
		Role: enums.ActorRoleBuyer,
	})
	expectCode(t, err, pkgerrors.CodeForbidden)
}
