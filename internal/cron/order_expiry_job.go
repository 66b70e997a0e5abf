package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/mkasimov/beat808-backend/pkg/logger"
	"github.com/mkasimov/beat808-backend/pkg/metrics"
)

// OrderExpirer cancels pending orders older than the cutoff. Implemented
// by the orders service.
type OrderExpirer interface {
	ExpireStale(ctx context.Context, cutoff time.Time) (int, error)
}

// OrderExpiryJobParams configure the pending order sweep.
type OrderExpiryJobParams struct {
	Logger     *logger.Logger
	Orders     OrderExpirer
	Metrics    *metrics.CronJobMetrics
	PendingTTL time.Duration
}

// NewOrderExpiryJob builds the job that cancels pending orders whose
// payment was never confirmed.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.PendingTTL <= 0 {
		return nil, fmt.Errorf("pending ttl must be positive")
	}
	return &orderExpiryJob{
		logg:       params.Logger,
		orders:     params.Orders,
		metrics:    params.Metrics,
		pendingTTL: params.PendingTTL,
		now:        time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg       *logger.Logger
	orders     OrderExpirer
	metrics    *metrics.CronJobMetrics
	pendingTTL time.Duration
	now        func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.pendingTTL)
	expired, err := j.orders.ExpireStale(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("expire stale orders: %w", err)
	}
	if j.metrics != nil && expired > 0 {
		j.metrics.AddExpiredOrders(expired)
	}
	logCtx := j.logg.WithField(ctx, "count", expired)
	j.logg.Info(logCtx, "pending order sweep complete")
	return nil
}
