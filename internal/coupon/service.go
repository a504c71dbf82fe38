package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/HaDo2003/DTechAPI-sub002/pkg/db"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/db/models"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/enums"
	pkgerrors "github.com/HaDo2003/DTechAPI-sub002/pkg/errors"
)

const redemptionConstraint = "idx_coupon_redemptions_coupon_customer"

// Service validates coupon codes against a basket snapshot and records
// redemptions. Redeem only ever runs on the settlement transaction.
type Service interface {
	Validate(ctx context.Context, code string, customerID uuid.UUID, snapshot Snapshot) (*Quote, error)
	Redeem(ctx context.Context, tx *gorm.DB, quote *Quote, customerID, orderID uuid.UUID) error
}

type service struct {
	repo CouponRepository
	now  func() time.Time
}

func NewService(repo CouponRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository is required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Validate(ctx context.Context, code string, customerID uuid.UUID, snapshot Snapshot) (*Quote, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}

	record, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}

	now := s.now()
	if err := s.checkWindow(record, now); err != nil {
		return nil, err
	}
	if err := s.checkCondition(record, snapshot); err != nil {
		return nil, err
	}

	if record.OncePerCustomer {
		used, err := s.repo.RedemptionExists(ctx, record.ID, customerID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check coupon usage")
		}
		if used {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon already used")
		}
	}

	return &Quote{Coupon: record, DiscountCents: discountFor(record, snapshot.SubtotalCents)}, nil
}

func (s *service) Redeem(ctx context.Context, tx *gorm.DB, quote *Quote, customerID, orderID uuid.UUID) error {
	if quote == nil || quote.Coupon == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon quote is required")
	}
	if customerID == uuid.Nil || orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id and order id are required")
	}

	repo := s.repo.WithTx(tx)

	err := repo.InsertRedemption(ctx, &models.CouponRedemption{
		CouponID:      quote.Coupon.ID,
		CustomerID:    customerID,
		OrderID:       orderID,
		DiscountCents: quote.DiscountCents,
	})
	if err != nil {
		if db.IsUniqueViolation(err, redemptionConstraint) {
			return pkgerrors.New(pkgerrors.CodeConflict, "coupon already used")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record coupon redemption")
	}

	affected, err := repo.ConsumeUsage(ctx, quote.Coupon.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume coupon usage")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "coupon exhausted")
	}
	return nil
}

func (s *service) checkWindow(record *models.Coupon, now time.Time) error {
	if record.Status != enums.CouponStatusAvailable {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "coupon expired")
	}
	if record.StartsAt != nil && now.Before(*record.StartsAt) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "coupon not yet active")
	}
	if record.ExpiresAt != nil && now.After(*record.ExpiresAt) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "coupon expired")
	}
	if record.UsageLimit != nil && record.UsedCount >= *record.UsageLimit {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "coupon exhausted")
	}
	return nil
}

func (s *service) checkCondition(record *models.Coupon, snapshot Snapshot) error {
	if record.MinOrderCents > 0 && snapshot.SubtotalCents < record.MinOrderCents {
		return pkgerrors.New(pkgerrors.CodeValidation, "order does not meet the coupon minimum").
			WithDetails(map[string]any{"min_order_cents": record.MinOrderCents})
	}
	if record.MinQuantity > 0 && snapshot.Quantity < record.MinQuantity {
		return pkgerrors.New(pkgerrors.CodeValidation, "order does not meet the coupon minimum").
			WithDetails(map[string]any{"min_quantity": record.MinQuantity})
	}
	return nil
}

// discountFor computes the granted discount in cents. Percentage math rounds
// down so the customer is never over-credited by a fraction of a cent.
func discountFor(record *models.Coupon, subtotalCents int64) int64 {
	var amount int64
	switch record.DiscountType {
	case enums.DiscountTypePercent:
		amount = decimal.NewFromInt(subtotalCents).
			Mul(decimal.NewFromInt(record.DiscountValue)).
			Div(decimal.NewFromInt(100)).
			Floor().
			IntPart()
	case enums.DiscountTypeFixed:
		amount = record.DiscountValue
	}
	if record.MaxDiscountCent != nil && amount > *record.MaxDiscountCent {
		amount = *record.MaxDiscountCent
	}
	if amount > subtotalCents {
		amount = subtotalCents
	}
	if amount < 0 {
		amount = 0
	}
	return amount
}
