package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/HaDo2003/DTechAPI-sub002/pkg/config"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/db/models"
	pkgerrors "github.com/HaDo2003/DTechAPI-sub002/pkg/errors"
)

const (
	orderRefPrefix = "DTECH-"

	// result code the gateway sends for a successful charge
	ResultCodeSuccess = "00"
)

// Gateway builds signed redirect URLs and verifies inbound callback
// signatures for the external payment provider.
type Gateway struct {
	cfg config.GatewayConfig
}

func NewGateway(cfg config.GatewayConfig) (*Gateway, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("gateway base url required")
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("gateway secret required")
	}
	if cfg.ReturnURL == "" {
		return nil, fmt.Errorf("gateway return url required")
	}
	return &Gateway{cfg: cfg}, nil
}

// OrderRef is the correlation token carried through the gateway round-trip.
func OrderRef(orderID uuid.UUID) string {
	return orderRefPrefix + orderID.String()
}

// ParseOrderRef recovers the order id from a callback correlation token.
func ParseOrderRef(ref string) (uuid.UUID, error) {
	raw, ok := strings.CutPrefix(ref, orderRefPrefix)
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "unrecognized order reference")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "unrecognized order reference")
	}
	return id, nil
}

// RedirectURL builds the outbound payment URL for a pending gateway order.
// Deterministic for a given order, so regeneration never creates a second
// charge session identity.
func (g *Gateway) RedirectURL(order *models.Order) (string, error) {
	if order == nil || order.Payment == nil {
		return "", fmt.Errorf("order with payment required")
	}
	values := url.Values{}
	values.Set("order_ref", OrderRef(order.ID))
	values.Set("amount", strconv.FormatInt(order.Payment.AmountCents, 10))
	values.Set("return_url", g.cfg.ReturnURL)
	values.Set("sig", g.sign(values))

	base, err := url.Parse(g.cfg.BaseURL)
	if err != nil {
		return "", err
	}
	base.RawQuery = values.Encode()
	return base.String(), nil
}

// Callback is the normalized inbound notification from the gateway.
type Callback struct {
	OrderRef    string `json:"order_ref"`
	Amount      int64  `json:"amount"`
	ResultCode  string `json:"result_code"`
	ExternalRef string `json:"external_ref"`
	Reason      string `json:"reason"`
	Signature   string `json:"signature"`
}

// VerifyCallback checks the callback signature in constant time.
func (g *Gateway) VerifyCallback(cb Callback) bool {
	values := url.Values{}
	values.Set("order_ref", cb.OrderRef)
	values.Set("amount", strconv.FormatInt(cb.Amount, 10))
	values.Set("result_code", cb.ResultCode)
	values.Set("external_ref", cb.ExternalRef)
	expected := g.sign(values)
	return hmac.Equal([]byte(expected), []byte(cb.Signature))
}

// SignCallback produces the signature the gateway would attach. Exposed for
// the gateway simulator in tests and local development.
func (g *Gateway) SignCallback(cb Callback) string {
	values := url.Values{}
	values.Set("order_ref", cb.OrderRef)
	values.Set("amount", strconv.FormatInt(cb.Amount, 10))
	values.Set("result_code", cb.ResultCode)
	values.Set("external_ref", cb.ExternalRef)
	return g.sign(values)
}

// sign computes an HMAC-SHA256 over the sorted query encoding, excluding any
// sig parameter already present.
func (g *Gateway) sign(values url.Values) string {
	values.Del("sig")
	mac := hmac.New(sha256.New, []byte(g.cfg.Secret))
	mac.Write([]byte(values.Encode()))
	return hex.EncodeToString(mac.Sum(nil))
}
