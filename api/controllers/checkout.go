package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/HaDo2003/DTechAPI-sub002/api/middleware"
	"github.com/HaDo2003/DTechAPI-sub002/api/responses"
	"github.com/HaDo2003/DTechAPI-sub002/api/validators"
	checkoutsvc "github.com/HaDo2003/DTechAPI-sub002/internal/checkout"
	"github.com/HaDo2003/DTechAPI-sub002/internal/orders"
	"github.com/HaDo2003/DTechAPI-sub002/internal/payment"
	pkgerrors "github.com/HaDo2003/DTechAPI-sub002/pkg/errors"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/logger"
)

type checkoutResponse struct {
	Order      *orders.StatusView `json:"order"`
	PaymentURL string             `json:"payment_url,omitempty"`
}

// CheckoutPlaceOrder settles the basket (or a buy-now line) into an order.
func CheckoutPlaceOrder(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		customerID := middleware.CustomerIDFromContext(r.Context())
		if customerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var draft checkoutsvc.Draft
		if err := validators.DecodeJSONBody(r, &draft); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.PlaceOrder(r.Context(), customerID, draft)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			Order:      orders.NewStatusView(result.Order),
			PaymentURL: result.PaymentURL,
		})
	}
}

// CheckoutPaymentURL regenerates the gateway redirect for an order still
// awaiting payment.
func CheckoutPaymentURL(svc payment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		customerID := middleware.CustomerIDFromContext(r.Context())
		if customerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		url, err := svc.RedirectURLForOrder(r.Context(), customerID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"payment_url": url})
	}
}
