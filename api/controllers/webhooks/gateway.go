package webhooks

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/HaDo2003/DTechAPI-sub002/api/responses"
	"github.com/HaDo2003/DTechAPI-sub002/api/validators"
	"github.com/HaDo2003/DTechAPI-sub002/internal/payment"
	pkgerrors "github.com/HaDo2003/DTechAPI-sub002/pkg/errors"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/logger"
)

// GatewayNotify receives the gateway's server-to-server callback. Duplicate
// deliveries get the recorded outcome back with the same 200 shape.
func GatewayNotify(svc payment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var cb payment.Callback
		if err := validators.DecodeJSONBody(r, &cb); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.HandleCallback(r.Context(), cb)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}

// GatewayReturn is where the gateway redirects the customer's browser after
// the hosted payment page. The callback arrives as query parameters; the
// customer ends up on the storefront success or failure page either way.
func GatewayReturn(svc payment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		cb, err := callbackFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.HandleCallback(r.Context(), cb)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		http.Redirect(w, r, outcome.RedirectPath+"?order="+outcome.OrderNumber, http.StatusFound)
	}
}

func callbackFromQuery(r *http.Request) (payment.Callback, error) {
	q := r.URL.Query()
	amountRaw := strings.TrimSpace(q.Get("amount"))
	amount, err := strconv.ParseInt(amountRaw, 10, 64)
	if err != nil {
		return payment.Callback{}, pkgerrors.New(pkgerrors.CodeValidation, "callback amount must be numeric").WithDetails(map[string]any{"field": "amount"})
	}
	return payment.Callback{
		OrderRef:    q.Get("order_ref"),
		Amount:      amount,
		ResultCode:  q.Get("result_code"),
		ExternalRef: q.Get("external_ref"),
		Reason:      q.Get("reason"),
		Signature:   q.Get("signature"),
	}, nil
}
