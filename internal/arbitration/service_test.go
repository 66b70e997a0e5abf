package arbitration

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

type stubDisputeRepo struct {
	disputes map[uuid.UUID]*models.Dispute
}

func newStubDisputeRepo(disputes ...*models.Dispute) *stubDisputeRepo {
	repo := &stubDisputeRepo{disputes: map[uuid.UUID]*models.Dispute{}}
	for _, dispute := range disputes {
		repo.disputes[dispute.ID] = dispute
	}
	return repo
}

func (r *stubDisputeRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubDisputeRepo) CreateCase(ctx context.Context, dispute *models.Dispute) error {
	if dispute.ID == uuid.Nil {
		dispute.ID = uuid.New()
	}
	copied := *dispute
	r.disputes[dispute.ID] = &copied
	return nil
}

func (r *stubDisputeRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	dispute, ok := r.disputes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *dispute
	return &copied, nil
}

func (r *stubDisputeRepo) FindOpenByOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error) {
	for _, dispute := range r.disputes {
		if dispute.OrderID == orderID && dispute.Status == enums.DisputeStatusOpen {
			copied := *dispute
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubDisputeRepo) List(ctx context.Context, status *enums.DisputeStatus, params pagination.Params) ([]models.Dispute, string, error) {
	var out []models.Dispute
	for _, dispute := range r.disputes {
		if status == nil || dispute.Status == *status {
			out = append(out, *dispute)
		}
	}
	return out, "", nil
}

func (r *stubDisputeRepo) Resolve(ctx context.Context, disputeID uuid.UUID, resolution string, resolvedBy uuid.UUID) (bool, error) {
	dispute, ok := r.disputes[disputeID]
	if !ok || dispute.Status != enums.DisputeStatusOpen {
		return false, nil
	}
	now := time.Now().UTC()
	dispute.Status = enums.DisputeStatusResolved
	dispute.Resolution = &resolution
	dispute.ResolvedBy = &resolvedBy
	dispute.ResolvedAt = &now
	return true, nil
}

type stubOrderStore struct {
	orders    map[uuid.UUID]*models.Order
	actions   []models.OrderActionLog
	purchases []models.Purchase
}

func newStubOrderStore(rows ...*models.Order) *stubOrderStore {
	store := &stubOrderStore{orders: map[uuid.UUID]*models.Order{}}
	for _, row := range rows {
		store.orders[row.ID] = row
	}
	return store
}

func (r *stubOrderStore) WithTx(tx *gorm.DB) orders.Repository { return r }

func (r *stubOrderStore) Create(ctx context.Context, order *models.Order) error {
	panic("unexpected call to Create")
}

func (r *stubOrderStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (r *stubOrderStore) FindByRef(ctx context.Context, ref string) (*models.Order, error) {
	panic("unexpected call to FindByRef")
}

func (r *stubOrderStore) UpdateStatusCAS(ctx context.Context, orderID uuid.UUID, expectedVersion int64, updates map[string]any) (bool, error) {
	order, ok := r.orders[orderID]
	if !ok || order.Version != expectedVersion {
		return false, nil
	}
	if status, ok := updates["status"].(enums.OrderStatus); ok {
		order.Status = status
	}
	if notes, ok := updates["admin_notes"].(string); ok {
		order.AdminNotes = &notes
	}
	order.Version++
	return true, nil
}

func (r *stubOrderStore) AppendAction(ctx context.Context, entry *models.OrderActionLog) error {
	entry.Seq = int64(len(r.actions) + 1)
	r.actions = append(r.actions, *entry)
	return nil
}

func (r *stubOrderStore) ListActions(ctx context.Context, orderID uuid.UUID) ([]models.OrderActionLog, error) {
	var out []models.OrderActionLog
	for _, action := range r.actions {
		if action.OrderID == orderID {
			out = append(out, action)
		}
	}
	return out, nil
}

func (r *stubOrderStore) ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	panic("unexpected call to ListByBuyer")
}

func (r *stubOrderStore) ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	panic("unexpected call to ListBySeller")
}

func (r *stubOrderStore) ListByStatus(ctx context.Context, status enums.OrderStatus, params pagination.Params) ([]models.Order, string, error) {
	panic("unexpected call to ListByStatus")
}

func (r *stubOrderStore) FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	panic("unexpected call to FindPendingBefore")
}

func (r *stubOrderStore) CreatePurchase(ctx context.Context, purchase *models.Purchase) error {
	if purchase.ID == uuid.Nil {
		purchase.ID = uuid.New()
	}
	r.purchases = append(r.purchases, *purchase)
	return nil
}

type ledgerCall struct {
	op     string
	amount int64
}

type stubLedger struct {
	calls []ledgerCall
	txns  []models.WalletTransaction
}

func (l *stubLedger) WithTx(tx *gorm.DB) wallet.Repository { return l }

func (l *stubLedger) record(op string, amount int64) {
	l.calls = append(l.calls, ledgerCall{op: op, amount: amount})
}

func (l *stubLedger) EnsureWallet(ctx context.Context, userID uuid.UUID) error {
	l.record("ensure", 0)
	return nil
}

func (l *stubLedger) FindWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	panic("unexpected call to FindWallet")
}

func (l *stubLedger) Credit(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	l.record("credit", amountCents)
	return nil
}

func (l *stubLedger) Debit(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	panic("unexpected call to Debit")
}

func (l *stubLedger) ForceDebit(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	panic("unexpected call to ForceDebit")
}

func (l *stubLedger) Hold(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	l.record("hold", amountCents)
	return nil
}

func (l *stubLedger) ReleaseHold(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	l.record("release_hold", amountCents)
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
	var advanced int64
	for i := range l.txns {
		txn := &l.txns[i]
		if txn.RelatedOrderID != nil && *txn.RelatedOrderID == orderID &&
			txn.Type == txType && txn.Status == enums.TransactionStatusPending {
			txn.Status = to
			advanced++
		}
	}
	return advanced, nil
}

func (l *stubLedger) CountOrderTransactions(ctx context.Context, orderID uuid.UUID, txType enums.TransactionType) (int64, error) {
	var count int64
	for _, txn := range l.txns {
		if txn.RelatedOrderID != nil && *txn.RelatedOrderID == orderID && txn.Type == txType {
			count++
		}
	}
	return count, nil
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

type fixture struct {
	disputes *stubDisputeRepo
	orders   *stubOrderStore
	ledger   *stubLedger
	svc      Service
}

func newFixture(t *testing.T, rows ...*models.Order) *fixture {
	t.Helper()
	disputes := newStubDisputeRepo()
	ordersStore := newStubOrderStore(rows...)
	ledger := &stubLedger{}
	logg := logger.New(logger.Options{ServiceName: "arbitration-test", Level: zerolog.Disabled})
	svc, err := NewService(disputes, ordersStore, ledger, stubTxRunner{}, logg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{disputes: disputes, orders: ordersStore, ledger: ledger, svc: svc}
}

func testOrder(status enums.OrderStatus) *models.Order {
	return &models.Order{
		ID:          uuid.New(),
		OrderRef:    "808-test-abcde",
		BuyerName:   "Prod Kass",
		BuyerEmail:  "kass@example.com",
		SellerID:    uuid.New(),
		SellerName:  "Beatsmith",
		BeatID:      uuid.New(),
		BeatTitle:   "Night Drive",
		License:     enums.LicenseWAV,
		PriceCents:  2999,
		SellerCents: 2699,
		Status:      status,
		Version:     1,
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

func pendingSaleTxn(order *models.Order) models.WalletTransaction {
	orderRef := order.ID
	return models.WalletTransaction{
		ID:             uuid.New(),
		UserID:         order.SellerID,
		Type:           enums.TransactionTypeSale,
		Status:         enums.TransactionStatusPending,
		AmountCents:    order.SellerCents,
		RelatedOrderID: &orderRef,
	}
}

func TestForceDeliverFromPendingParksFundsOnHold(t *testing.T) {
	order := testOrder(enums.OrderStatusPending)
	f := newFixture(t, order)

	view, err := f.svc.ForceDeliver(context.Background(), order.ID, adminActor(), "buyer paid off-platform")
	if err != nil {
		t.Fatalf("ForceDeliver: %v", err)
	}
	if view.Status != enums.OrderStatusAdminDelivered {
		t.Fatalf("expected admin_delivered, got %s", view.Status)
	}

	foundHold := false
	for _, call := range f.ledger.calls {
		if call.op == "hold" && call.amount == 2699 {
			foundHold = true
		}
		if call.op == "credit" {
			t.Fatalf("forced delivery must not credit available balance")
		}
	}
	if !foundHold {
		t.Fatalf("expected seller share on hold, got %+v", f.ledger.calls)
	}
	if len(f.ledger.txns) != 1 || f.ledger.txns[0].Status != enums.TransactionStatusCompleted {
		t.Fatalf("expected one completed sale transaction, got %+v", f.ledger.txns)
	}
	if len(f.orders.purchases) != 1 || f.orders.purchases[0].Status != enums.PurchaseStatusHold {
		t.Fatalf("expected purchase on hold, got %+v", f.orders.purchases)
	}
}

func TestForceDeliverRequiresNotes(t *testing.T) {
	order := testOrder(enums.OrderStatusDisputed)
	f := newFixture(t, order)

	_, err := f.svc.ForceDeliver(context.Background(), order.ID, adminActor(), "  ")
	expectCode(t, err, pkgerrors.CodeValidation)
	if f.orders.orders[order.ID].Status != enums.OrderStatusDisputed {
		t.Fatalf("order status changed on failed force-deliver")
	}
}

func TestForceDeliverResolvesOpenCase(t *testing.T) {
	order := testOrder(enums.OrderStatusDisputed)
	f := newFixture(t, order)
	dispute := &models.Dispute{
		ID:      uuid.New(),
		OrderID: order.ID,
		Status:  enums.DisputeStatusOpen,
	}
	f.disputes.disputes[dispute.ID] = dispute

	admin := adminActor()
	if _, err := f.svc.ForceDeliver(context.Background(), order.ID, admin, "seller proved delivery"); err != nil {
		t.Fatalf("ForceDeliver: %v", err)
	}

	resolved := f.disputes.disputes[dispute.ID]
	if resolved.Status != enums.DisputeStatusResolved {
		t.Fatalf("expected resolved case, got %s", resolved.Status)
	}
	if resolved.ResolvedBy == nil || *resolved.ResolvedBy != admin.ID {
		t.Fatalf("expected resolver %s, got %+v", admin.ID, resolved.ResolvedBy)
	}
}

func TestApproveOrderPlacesEscrowWhenAbsent(t *testing.T) {
	order := testOrder(enums.OrderStatusDisputed)
	f := newFixture(t, order)

	view, err := f.svc.ApproveOrder(context.Background(), order.ID, adminActor(), "")
	if err != nil {
		t.Fatalf("ApproveOrder: %v", err)
	}
	if view.Status != enums.OrderStatusApproved {
		t.Fatalf("expected approved, got %s", view.Status)
	}
	if len(f.ledger.txns) != 1 || f.ledger.txns[0].Status != enums.TransactionStatusPending {
		t.Fatalf("expected new pending sale transaction, got %+v", f.ledger.txns)
	}
}

func TestApproveOrderKeepsExistingEscrow(t *testing.T) {
	order := testOrder(enums.OrderStatusDisputed)
	f := newFixture(t, order)
	f.ledger.txns = append(f.ledger.txns, pendingSaleTxn(order))

	if _, err := f.svc.ApproveOrder(context.Background(), order.ID, adminActor(), "dispute withdrawn"); err != nil {
		t.Fatalf("ApproveOrder: %v", err)
	}
	if len(f.ledger.txns) != 1 {
		t.Fatalf("expected no duplicate sale transaction, got %+v", f.ledger.txns)
	}
	for _, call := range f.ledger.calls {
		if call.op == "hold" {
			t.Fatalf("hold must not be placed twice: %+v", f.ledger.calls)
		}
	}
}

func TestRejectOrderUnwindsEscrow(t *testing.T) {
	order := testOrder(enums.OrderStatusDisputed)
	f := newFixture(t, order)
	f.ledger.txns = append(f.ledger.txns, pendingSaleTxn(order))

	view, err := f.svc.RejectOrder(context.Background(), order.ID, adminActor(), "seller never responded")
	if err != nil {
		t.Fatalf("RejectOrder: %v", err)
	}
	if view.Status != enums.OrderStatusRejected {
		t.Fatalf("expected rejected, got %s", view.Status)
	}
	if f.ledger.txns[0].Status != enums.TransactionStatusRejected {
		t.Fatalf("expected rejected sale transaction, got %s", f.ledger.txns[0].Status)
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

func TestRejectOrderRequiresNotes(t *testing.T) {
	order := testOrder(enums.OrderStatusDisputed)
	f := newFixture(t, order)

	_, err := f.svc.RejectOrder(context.Background(), order.ID, adminActor(), "  ")
	expectCode(t, err, pkgerrors.CodeValidation)
	if f.orders.orders[order.ID].Status != enums.OrderStatusDisputed {
		t.Fatalf("order status changed on failed reject")
	}
}

func TestRejectOrderWithoutEscrowSkipsRelease(t *testing.T) {
	order := testOrder(enums.OrderStatusDisputed)
	f := newFixture(t, order)

	if _, err := f.svc.RejectOrder(context.Background(), order.ID, adminActor(), "fraudulent order"); err != nil {
		t.Fatalf("RejectOrder: %v", err)
	}
	for _, call := range f.ledger.calls {
		if call.op == "release_hold" {
			t.Fatalf("no hold to release, got %+v", f.ledger.calls)
		}
	}
}

func TestNonAdminCannotArbitrate(t *testing.T) {
	order := testOrder(enums.OrderStatusDisputed)
	f := newFixture(t, order)
	seller := orders.Actor{ID: order.SellerID, Name: "Beatsmith", Role: enums.ActorRoleSeller}

	_, err := f.svc.RejectOrder(context.Background(), order.ID, seller, "I disagree")
	expectCode(t, err, pkgerrors.CodeForbidden)
}

func TestForceDeliverOnDeliveredOrderFails(t *testing.T) {
	order := testOrder(enums.OrderStatusDelivered)
	f := newFixture(t, order)

	_, err := f.svc.ForceDeliver(context.Background(), order.ID, adminActor(), "cleanup")
	expectCode(t, err, pkgerrors.CodeStateConflict)
}

func TestOpenCaseSnapshotsOrder(t *testing.T) {
	order := testOrder(enums.OrderStatusDisputed)
	f := newFixture(t, order)
	buyerID := uuid.New()
	order.BuyerID = &buyerID

	err := f.svc.OpenCase(context.Background(), nil, order, "files never arrived", orders.Actor{ID: buyerID, Name: "Prod Kass", Role: enums.ActorRoleBuyer})
	if err != nil {
		t.Fatalf("OpenCase: %v", err)
	}

	dispute, findErr := f.disputes.FindOpenByOrder(context.Background(), order.ID)
	if findErr != nil {
		t.Fatalf("FindOpenByOrder: %v", findErr)
	}
	if dispute.AmountCents != 2999 || dispute.RaisedBy != enums.ActorRoleBuyer {
		t.Fatalf("unexpected snapshot: %+v", dispute)
	}
}
