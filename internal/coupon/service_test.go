package coupon

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/HaDo2003/DTechAPI-sub002/pkg/db/models"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/enums"
	pkgerrors "github.com/HaDo2003/DTechAPI-sub002/pkg/errors"
)

func TestValidatePercentageCapped(t *testing.T) {
	t.Parallel()

	cap := int64(1500)
	repo := &stubRepo{coupon: &models.Coupon{
		ID:              uuid.New(),
		Code:            "SAVE10",
		DiscountType:    enums.DiscountTypePercent,
		DiscountValue:   10,
		MaxDiscountCent: &cap,
		MinOrderCents:   15000,
		Status:          enums.CouponStatusAvailable,
	}}
	svc := newTestService(t, repo)

	quote, err := svc.Validate(context.Background(), "SAVE10", uuid.New(), Snapshot{SubtotalCents: 18000, Quantity: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.DiscountCents != 1500 {
		t.Fatalf("expected capped discount 1500, got %d", quote.DiscountCents)
	}
	if 18000-quote.DiscountCents != 16500 {
		t.Fatalf("expected reduced total 16500, got %d", 18000-quote.DiscountCents)
	}
}

func TestValidateFixedClampedToSubtotal(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{coupon: &models.Coupon{
		ID:            uuid.New(),
		Code:          "FLAT50",
		DiscountType:  enums.DiscountTypeFixed,
		DiscountValue: 5000,
		Status:        enums.CouponStatusAvailable,
	}}
	svc := newTestService(t, repo)

	quote, err := svc.Validate(context.Background(), "FLAT50", uuid.New(), Snapshot{SubtotalCents: 3000, Quantity: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.DiscountCents != 3000 {
		t.Fatalf("expected discount clamped to subtotal 3000, got %d", quote.DiscountCents)
	}
}

func TestValidateUnknownCode(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubRepo{})

	_, err := svc.Validate(context.Background(), "NOPE", uuid.New(), Snapshot{SubtotalCents: 1000})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestValidateWindowFailures(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	limit := 5

	cases := []struct {
		name   string
		mutate func(c *models.Coupon)
	}{
		{"unavailable status", func(c *models.Coupon) { c.Status = enums.CouponStatusUnavailable }},
		{"past end date", func(c *models.Coupon) { c.ExpiresAt = &past }},
		{"not yet active", func(c *models.Coupon) { c.StartsAt = &future }},
		{"usage limit reached", func(c *models.Coupon) { c.UsageLimit = &limit; c.UsedCount = 5 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			record := &models.Coupon{
				ID:            uuid.New(),
				Code:          "WINDOW",
				DiscountType:  enums.DiscountTypePercent,
				DiscountValue: 10,
				Status:        enums.CouponStatusAvailable,
			}
			tc.mutate(record)
			svc := newTestService(t, &stubRepo{coupon: record})

			_, err := svc.Validate(context.Background(), "WINDOW", uuid.New(), Snapshot{SubtotalCents: 10000, Quantity: 1})
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
				t.Fatalf("expected state-conflict error, got %v", err)
			}
		})
	}
}

func TestValidateMinimumConditions(t *testing.T) {
	t.Parallel()

	t.Run("amount below minimum", func(t *testing.T) {
		t.Parallel()

		repo := &stubRepo{coupon: &models.Coupon{
			ID:            uuid.New(),
			Code:          "MIN150",
			DiscountType:  enums.DiscountTypePercent,
			DiscountValue: 10,
			MinOrderCents: 15000,
			Status:        enums.CouponStatusAvailable,
		}}
		svc := newTestService(t, repo)

		_, err := svc.Validate(context.Background(), "MIN150", uuid.New(), Snapshot{SubtotalCents: 9000, Quantity: 3})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("quantity below minimum", func(t *testing.T) {
		t.Parallel()

		repo := &stubRepo{coupon: &models.Coupon{
			ID:            uuid.New(),
			Code:          "BULK3",
			DiscountType:  enums.DiscountTypeFixed,
			DiscountValue: 2000,
			MinQuantity:   3,
			Status:        enums.CouponStatusAvailable,
		}}
		svc := newTestService(t, repo)

		_, err := svc.Validate(context.Background(), "BULK3", uuid.New(), Snapshot{SubtotalCents: 50000, Quantity: 2})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestValidateAlreadyUsed(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{
		coupon: &models.Coupon{
			ID:              uuid.New(),
			Code:            "ONCE",
			DiscountType:    enums.DiscountTypeFixed,
			DiscountValue:   1000,
			OncePerCustomer: true,
			Status:          enums.CouponStatusAvailable,
		},
		redeemed: true,
	}
	svc := newTestService(t, repo)

	_, err := svc.Validate(context.Background(), "ONCE", uuid.New(), Snapshot{SubtotalCents: 10000, Quantity: 1})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestValidateCaseInsensitiveLookup(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{coupon: &models.Coupon{
		ID:            uuid.New(),
		Code:          "SAVE10",
		DiscountType:  enums.DiscountTypePercent,
		DiscountValue: 10,
		Status:        enums.CouponStatusAvailable,
	}}
	svc := newTestService(t, repo)

	quote, err := svc.Validate(context.Background(), "save10", uuid.New(), Snapshot{SubtotalCents: 10000, Quantity: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.DiscountCents != 1000 {
		t.Fatalf("expected discount 1000, got %d", quote.DiscountCents)
	}
}

func TestRedeemDuplicateIsConflict(t *testing.T) {
	t.Parallel()

	record := &models.Coupon{ID: uuid.New(), Code: "ONCE", Status: enums.CouponStatusAvailable}
	repo := &stubRepo{coupon: record, insertErr: fmt.Errorf("ERROR: duplicate key value violates unique constraint %q", redemptionConstraint)}
	svc := newTestService(t, repo)

	err := svc.Redeem(context.Background(), nil, &Quote{Coupon: record, DiscountCents: 500}, uuid.New(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestRedeemExhaustedIsConflict(t *testing.T) {
	t.Parallel()

	record := &models.Coupon{ID: uuid.New(), Code: "LIMITED", Status: enums.CouponStatusAvailable}
	repo := &stubRepo{coupon: record, consumeRows: 0}
	svc := newTestService(t, repo)

	err := svc.Redeem(context.Background(), nil, &Quote{Coupon: record, DiscountCents: 500}, uuid.New(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestRedeemRecordsLedgerRow(t *testing.T) {
	t.Parallel()

	record := &models.Coupon{ID: uuid.New(), Code: "SAVE10", Status: enums.CouponStatusAvailable}
	repo := &stubRepo{coupon: record, consumeRows: 1}
	svc := newTestService(t, repo)

	orderID := uuid.New()
	customerID := uuid.New()
	if err := svc.Redeem(context.Background(), nil, &Quote{Coupon: record, DiscountCents: 1500}, customerID, orderID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.inserted == nil {
		t.Fatal("expected a redemption row")
	}
	if repo.inserted.OrderID != orderID || repo.inserted.CustomerID != customerID {
		t.Fatalf("redemption row references wrong order/customer: %+v", repo.inserted)
	}
	if repo.inserted.DiscountCents != 1500 {
		t.Fatalf("expected discount 1500 on ledger row, got %d", repo.inserted.DiscountCents)
	}
}

func newTestService(t *testing.T, repo CouponRepository) Service {
	t.Helper()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

type stubRepo struct {
	coupon      *models.Coupon
	redeemed    bool
	insertErr   error
	consumeRows int64
	inserted    *models.CouponRedemption
}

func (s *stubRepo) WithTx(tx *gorm.DB) CouponRepository { return s }

func (s *stubRepo) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	if s.coupon == nil || !strings.EqualFold(s.coupon.Code, code) {
		return nil, gorm.ErrRecordNotFound
	}
	return s.coupon, nil
}

func (s *stubRepo) RedemptionExists(ctx context.Context, couponID, customerID uuid.UUID) (bool, error) {
	return s.redeemed, nil
}

func (s *stubRepo) InsertRedemption(ctx context.Context, redemption *models.CouponRedemption) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = redemption
	return nil
}

func (s *stubRepo) ConsumeUsage(ctx context.Context, couponID uuid.UUID) (int64, error) {
	return s.consumeRows, nil
}
