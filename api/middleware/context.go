package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const ctxCustomerID contextKey = "customer_id"

// CustomerIDFromContext returns the authenticated customer, or uuid.Nil when
// the request carried no valid credentials.
func CustomerIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxCustomerID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// WithCustomerID injects the customer identifier into the context.
func WithCustomerID(ctx context.Context, customerID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCustomerID, customerID)
}
