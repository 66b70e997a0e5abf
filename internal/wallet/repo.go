package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mkasimov/beat808-backend/pkg/db/models"
	"github.com/mkasimov/beat808-backend/pkg/enums"
	"github.com/mkasimov/beat808-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a wallet repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// EnsureWallet creates the wallet row on first use; existing rows are
// left untouched.
func (r *repository) EnsureWallet(ctx context.Context, userID uuid.UUID) error {
	wallet := &models.Wallet{UserID: userID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(wallet).Error
}

func (r *repository) FindWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) Credit(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	if amountCents < 0 {
		return fmt.Errorf("credit amount must be non-negative")
	}
	return r.db.WithContext(ctx).Exec(`
		UPDATE wallets
		SET available_cents = available_cents + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?
	`, amountCents, userID).Error
}

// Debit removes spendable funds. The WHERE guard refuses to drive
// available below zero; zero rows affected means insufficient funds.
func (r *repository) Debit(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	if amountCents < 0 {
		return fmt.Errorf("debit amount must be non-negative")
	}
	res := r.db.WithContext(ctx).Exec(`
		UPDATE wallets
		SET available_cents = available_cents - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND available_cents >= ?
	`, amountCents, userID, amountCents)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// ForceDebit removes spendable funds for admin clawbacks, floored at
// zero. Unlike Debit it never fails on a short balance.
func (r *repository) ForceDebit(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	if amountCents < 0 {
		return fmt.Errorf("debit amount must be non-negative")
	}
	return r.db.WithContext(ctx).Exec(`
		UPDATE wallets
		SET available_cents = CASE WHEN available_cents > ? THEN available_cents - ? ELSE 0 END,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?
	`, amountCents, amountCents, userID).Error
}

func (r *repository) Hold(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	if amountCents < 0 {
		return fmt.Errorf("hold amount must be non-negative")
	}
	return r.db.WithContext(ctx).Exec(`
		UPDATE wallets
		SET hold_cents = hold_cents + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?
	`, amountCents, userID).Error
}

// ReleaseHold decreases the hold balance, floored at zero. CASE keeps
// the statement portable across postgres and the sqlite test driver.
func (r *repository) ReleaseHold(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	if amountCents < 0 {
		return fmt.Errorf("release amount must be non-negative")
	}
	return r.db.WithContext(ctx).Exec(`
		UPDATE wallets
		SET hold_cents = CASE WHEN hold_cents > ? THEN hold_cents - ? ELSE 0 END,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?
	`, amountCents, amountCents, userID).Error
}

func (r *repository) AppendTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

// AdvanceOrderTransaction moves the pending ledger entry tied to an
// order into its settled status. Rows already past pending are left
// alone; the returned count tells the caller whether anything advanced.
func (r *repository) AdvanceOrderTransaction(ctx context.Context, orderID uuid.UUID, txType enums.TransactionType, to enums.TransactionStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("related_order_id = ? AND type = ? AND status = ?", orderID, txType, enums.TransactionStatusPending).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

func (r *repository) CountOrderTransactions(ctx context.Context, orderID uuid.UUID, txType enums.TransactionType) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("related_order_id = ? AND type = ?", orderID, txType).
		Count(&count).Error
	return count, err
}

func (r *repository) AdvanceWithdrawalTransaction(ctx context.Context, withdrawalID uuid.UUID, to enums.TransactionStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("withdrawal_id = ? AND type = ? AND status = ?", withdrawalID, enums.TransactionTypeWithdrawal, enums.TransactionStatusPending).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

func (r *repository) ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.WalletTransaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", err
	}

	rows, more := pagination.Trim(rows, params.Limit)
	next := ""
	if more {
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}
