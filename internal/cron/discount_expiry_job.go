package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/HaDo2003/DTechAPI-sub002/pkg/logger"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/metrics"
)

// DiscountExpiryJobParams configure the discount and coupon expiry sweep.
type DiscountExpiryJobParams struct {
	Logger    *logger.Logger
	Coupons   couponExpirer
	Discounts discountClearer
	Metrics   *metrics.CronJobMetrics
}

type couponExpirer interface {
	ExpireAvailableBefore(ctx context.Context, now time.Time) (int64, error)
}

type discountClearer interface {
	ClearExpiredDiscounts(ctx context.Context, now time.Time) (int64, error)
}

// NewDiscountExpiryJob builds the sweep that retires elapsed coupon windows
// and product discount windows.
func NewDiscountExpiryJob(params DiscountExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Coupons == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if params.Discounts == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &discountExpiryJob{
		logg:      params.Logger,
		coupons:   params.Coupons,
		discounts: params.Discounts,
		metrics:   params.Metrics,
		now:       time.Now,
	}, nil
}

type discountExpiryJob struct {
	logg      *logger.Logger
	coupons   couponExpirer
	discounts discountClearer
	metrics   *metrics.CronJobMetrics
	now       func() time.Time
}

func (j *discountExpiryJob) Name() string { return "discount-expiry" }

func (j *discountExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var errs []error

	coupons, err := j.coupons.ExpireAvailableBefore(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("expire coupons: %w", err))
	}
	discounts, err := j.discounts.ClearExpiredDiscounts(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("clear product discounts: %w", err))
	}

	j.metrics.AddRowsAffected(j.Name(), coupons+discounts)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"coupons_expired":   coupons,
		"discounts_cleared": discounts,
	})
	j.logg.Info(logCtx, "discount expiry sweep complete")
	return multierr.Combine(errs...)
}
