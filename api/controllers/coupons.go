package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/HaDo2003/DTechAPI-sub002/api/middleware"
	"github.com/HaDo2003/DTechAPI-sub002/api/responses"
	"github.com/HaDo2003/DTechAPI-sub002/api/validators"
	cartsvc "github.com/HaDo2003/DTechAPI-sub002/internal/cart"
	couponsvc "github.com/HaDo2003/DTechAPI-sub002/internal/coupon"
	pkgerrors "github.com/HaDo2003/DTechAPI-sub002/pkg/errors"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/logger"
)

type applyCouponRequest struct {
	Code string `json:"code" validate:"required"`
}

// CouponApply previews a coupon against the customer's current basket.
// Nothing is redeemed; the ledger row is written at settlement.
func CouponApply(coupons couponsvc.Service, carts cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if coupons == nil || carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		customerID := middleware.CustomerIDFromContext(r.Context())
		if customerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var payload applyCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := carts.Get(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if len(view.Items) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items"))
			return
		}

		quote, err := coupons.Validate(r.Context(), payload.Code, customerID, couponsvc.Snapshot{
			SubtotalCents: view.SubtotalCents,
			Quantity:      view.TotalQuantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, couponsvc.ApplyResult{
			Code:          quote.Coupon.Code,
			DiscountCents: quote.DiscountCents,
			TotalCents:    view.SubtotalCents - quote.DiscountCents,
		})
	}
}
