package withdrawals

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

type stubWithdrawalRepo struct {
	withdrawals map[uuid.UUID]*models.Withdrawal
}

func newStubWithdrawalRepo(rows ...*models.Withdrawal) *stubWithdrawalRepo {
	repo := &stubWithdrawalRepo{withdrawals: map[uuid.UUID]*models.Withdrawal{}}
	for _, row := range rows {
		repo.withdrawals[row.ID] = row
	}
	return repo
}

func (r *stubWithdrawalRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubWithdrawalRepo) Create(ctx context.Context, withdrawal *models.Withdrawal) error {
	if withdrawal.ID == uuid.Nil {
		withdrawal.ID = uuid.New()
	}
	copied := *withdrawal
	r.withdrawals[withdrawal.ID] = &copied
	return nil
}

func (r *stubWithdrawalRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	withdrawal, ok := r.withdrawals[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *withdrawal
	return &copied, nil
}

func (r *stubWithdrawalRepo) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Withdrawal, string, error) {
	panic("unexpected call to ListByUser")
}

func (r *stubWithdrawalRepo) List(ctx context.Context, status *enums.WithdrawalStatus, params pagination.Params) ([]models.Withdrawal, string, error) {
	panic("unexpected call to List")
}

func (r *stubWithdrawalRepo) Settle(ctx context.Context, withdrawalID uuid.UUID, to enums.WithdrawalStatus, processedBy uuid.UUID, rejectReason *string) (bool, error) {
	withdrawal, ok := r.withdrawals[withdrawalID]
	if !ok || withdrawal.Status != enums.WithdrawalStatusPending {
		return false, nil
	}
	now := time.Now().UTC()
	withdrawal.Status = to
	withdrawal.ProcessedBy = &processedBy
	withdrawal.ProcessedAt = &now
	withdrawal.RejectReason = rejectReason
	return true, nil
}

type ledgerCall struct {
	op     string
	userID uuid.UUID
	amount int64
}

type stubLedger struct {
	available map[uuid.UUID]int64
	calls     []ledgerCall
	txns      []models.WalletTransaction
}

func newStubLedger() *stubLedger {
	return &stubLedger{available: map[uuid.UUID]int64{}}
}

func (l *stubLedger) WithTx(tx *gorm.DB) wallet.Repository { return l }

func (l *stubLedger) record(op string, userID uuid.UUID, amount int64) {
	l.calls = append(l.calls, ledgerCall{op: op, userID: userID, amount: amount})
}

func (l *stubLedger) EnsureWallet(ctx context.Context, userID uuid.UUID) error {
	panic("unexpected call to EnsureWallet")
}

func (l *stubLedger) FindWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	panic("unexpected call to FindWallet")
}

func (l *stubLedger) Credit(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	l.available[userID] += amountCents
	l.record("credit", userID, amountCents)
	return nil
}

func (l *stubLedger) Debit(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	if l.available[userID] < amountCents {
		return wallet.ErrInsufficientFunds
	}
	l.available[userID] -= amountCents
	l.record("debit", userID, amountCents)
	return nil
}

func (l *stubLedger) ForceDebit(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	panic("unexpected call to ForceDebit")
}

func (l *stubLedger) Hold(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	panic("unexpected call to Hold")
}

func (l *stubLedger) ReleaseHold(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	panic("unexpected call to ReleaseHold")
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
	var advanced int64
	for i := range l.txns {
		txn := &l.txns[i]
		if txn.WithdrawalID != nil && *txn.WithdrawalID == withdrawalID &&
			txn.Type == enums.TransactionTypeWithdrawal && txn.Status == enums.TransactionStatusPending {
			txn.Status = to
			advanced++
		}
	}
	return advanced, nil
}

func (l *stubLedger) ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, string, error) {
	panic("unexpected call to ListTransactions")
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubNotifier struct {
	requests int
}

func (n *stubNotifier) NotifyWithdrawalRequest(ctx context.Context, withdrawal *models.Withdrawal) {
	n.requests++
}

type fixture struct {
	repo     *stubWithdrawalRepo
	ledger   *stubLedger
	notifier *stubNotifier
	svc      Service
}

func newFixture(t *testing.T, rows ...*models.Withdrawal) *fixture {
	t.Helper()
	repo := newStubWithdrawalRepo(rows...)
	ledger := newStubLedger()
	notifier := &stubNotifier{}
	logg := logger.New(logger.Options{ServiceName: "withdrawals-test", Level: zerolog.Disabled})
	svc, err := NewService(repo, ledger, stubTxRunner{}, notifier, logg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{repo: repo, ledger: ledger, notifier: notifier, svc: svc}
}

func sellerActor() orders.Actor {
	return orders.Actor{ID: uuid.New(), Name: "Beatsmith", Role: enums.ActorRoleSeller}
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

func TestRequestDebitsWalletAndOpensPending(t *testing.T) {
	f := newFixture(t)
	user := sellerActor()
	f.ledger.available[user.ID] = 5000

	view, err := f.svc.Request(context.Background(), user, 3000, "paypal", "beats@example.com")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if view.Status != enums.WithdrawalStatusPending {
		t.Fatalf("expected pending, got %s", view.Status)
	}
	if f.ledger.available[user.ID] != 2000 {
		t.Fatalf("expected 2000 remaining, got %d", f.ledger.available[user.ID])
	}
	if len(f.ledger.txns) != 1 || f.ledger.txns[0].AmountCents != -3000 ||
		f.ledger.txns[0].Status != enums.TransactionStatusPending {
		t.Fatalf("expected pending -3000 ledger entry, got %+v", f.ledger.txns)
	}
	if f.notifier.requests != 1 {
		t.Fatalf("expected request notification, got %d", f.notifier.requests)
	}
}

func TestRequestRejectsShortBalance(t *testing.T) {
	f := newFixture(t)
	user := sellerActor()
	f.ledger.available[user.ID] = 1000

	_, err := f.svc.Request(context.Background(), user, 3000, "paypal", "beats@example.com")
	expectCode(t, err, pkgerrors.CodeValidation)

	if len(f.repo.withdrawals) != 0 {
		t.Fatalf("withdrawal created despite short balance")
	}
	if len(f.ledger.txns) != 0 {
		t.Fatalf("ledger entry appended despite short balance")
	}
}

func TestRequestValidatesInput(t *testing.T) {
	f := newFixture(t)
	user := sellerActor()
	f.ledger.available[user.ID] = 5000

	_, err := f.svc.Request(context.Background(), user, 0, "paypal", "beats@example.com")
	expectCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Request(context.Background(), user, 1000, " ", "beats@example.com")
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestApproveCompletesLedgerEntry(t *testing.T) {
	f := newFixture(t)
	user := sellerActor()
	f.ledger.available[user.ID] = 5000

	view, err := f.svc.Request(context.Background(), user, 3000, "paypal", "beats@example.com")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}

	approved, err := f.svc.Approve(context.Background(), view.ID, adminActor())
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != enums.WithdrawalStatusCompleted {
		t.Fatalf("expected completed, got %s", approved.Status)
	}
	if f.ledger.txns[0].Status != enums.TransactionStatusCompleted {
		t.Fatalf("expected completed ledger entry, got %s", f.ledger.txns[0].Status)
	}
	// funds stay out of the wallet
	if f.ledger.available[user.ID] != 2000 {
		t.Fatalf("expected 2000 remaining, got %d", f.ledger.available[user.ID])
	}
}

func TestRejectReturnsFunds(t *testing.T) {
	f := newFixture(t)
	user := sellerActor()
	f.ledger.available[user.ID] = 5000

	view, err := f.svc.Request(context.Background(), user, 3000, "paypal", "beats@example.com")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}

	rejected, err := f.svc.Reject(context.Background(), view.ID, adminActor(), "payout details invalid")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != enums.WithdrawalStatusRejected {
		t.Fatalf("expected rejected, got %s", rejected.Status)
	}
	if rejected.RejectReason == nil || *rejected.RejectReason != "payout details invalid" {
		t.Fatalf("expected reject reason, got %+v", rejected.RejectReason)
	}
	if f.ledger.available[user.ID] != 5000 {
		t.Fatalf("expected funds returned, got %d", f.ledger.available[user.ID])
	}
	if len(f.ledger.txns) != 2 {
		t.Fatalf("expected withdrawal + return entries, got %+v", f.ledger.txns)
	}
	if f.ledger.txns[0].Status != enums.TransactionStatusRejected {
		t.Fatalf("expected rejected withdrawal entry, got %s", f.ledger.txns[0].Status)
	}
	if f.ledger.txns[1].Type != enums.TransactionTypeWithdrawalRefund || f.ledger.txns[1].AmountCents != 3000 {
		t.Fatalf("unexpected return entry: %+v", f.ledger.txns[1])
	}
}

func TestRejectRequiresReason(t *testing.T) {
	f := newFixture(t)
	user := sellerActor()
	f.ledger.available[user.ID] = 5000

	view, err := f.svc.Request(context.Background(), user, 3000, "paypal", "beats@example.com")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}

	_, err = f.svc.Reject(context.Background(), view.ID, adminActor(), "")
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestProcessingIsOncePerRequest(t *testing.T) {
	f := newFixture(t)
	user := sellerActor()
	f.ledger.available[user.ID] = 5000

	view, err := f.svc.Request(context.Background(), user, 3000, "paypal", "beats@example.com")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}

	if _, err := f.svc.Approve(context.Background(), view.ID, adminActor()); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	_, err = f.svc.Reject(context.Background(), view.ID, adminActor(), "changed my mind")
	expectCode(t, err, pkgerrors.CodeStateConflict)

	if f.ledger.available[user.ID] != 2000 {
		t.Fatalf("reject after approve must not return funds, got %d", f.ledger.available[user.ID])
	}
}

func TestGetAuthorizesOwnerAndAdmin(t *testing.T) {
	f := newFixture(t)
	user := sellerActor()
	f.ledger.available[user.ID] = 5000

	view, err := f.svc.Request(context.Background(), user, 3000, "paypal", "beats@example.com")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}

	if _, err := f.svc.Get(context.Background(), view.ID, user); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), view.ID, adminActor()); err != nil {
		t.Fatalf("admin read: %v", err)
	}

	_, err = f.svc.Get(context.Background(), view.ID, sellerActor())
	expectCode(t, err, pkgerrors.CodeForbidden)
}
