package refunds

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mkasimov/beat808-backend/pkg/db/models"
	"github.com/mkasimov/beat808-backend/pkg/enums"
	"github.com/mkasimov/beat808-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a purchases repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&purchase).Error
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *repository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&purchase).Error
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *repository) List(ctx context.Context, status *enums.PurchaseStatus, params pagination.Params) ([]models.Purchase, string, error) {
	query := r.db.WithContext(ctx)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	return r.paginate(ctx, query, params)
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Purchase, string, error) {
	return r.paginate(ctx, r.db.WithContext(ctx).Where("buyer_id = ?", buyerID), params)
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Purchase, string, error) {
	return r.paginate(ctx, r.db.WithContext(ctx).Where("seller_id = ?", sellerID), params)
}

func (r *repository) paginate(ctx context.Context, query *gorm.DB, params pagination.Params) ([]models.Purchase, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	query = query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Purchase
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

// MarkRefunded is guarded on the current status so a purchase can only
// be refunded once, even under concurrent admins.
func (r *repository) MarkRefunded(ctx context.Context, purchaseID uuid.UUID, refundedBy uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("id = ? AND status <> ?", purchaseID, enums.PurchaseStatusRefunded).
		Updates(map[string]any{
			"status":      enums.PurchaseStatusRefunded,
			"refunded_by": refundedBy,
			"refunded_at": now,
			"updated_at":  now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Release(ctx context.Context, purchaseID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("id = ? AND status = ?", purchaseID, enums.PurchaseStatusHold).
		Updates(map[string]any{
			"status":     enums.PurchaseStatusCompleted,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
