package enums

// OutboxEventType names the domain events emitted through the outbox.
type OutboxEventType string

const (
	EventOrderPlaced        OutboxEventType = "order.placed"
	EventOrderPaid          OutboxEventType = "order.paid"
	EventOrderPaymentFailed OutboxEventType = "order.payment_failed"
	EventOrderCancelled     OutboxEventType = "order.cancelled"
)

// OutboxAggregateType names the aggregate an outbox event refers to.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
)

// OutboxDLQErrorReason records why an outbox row was parked.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

var validOutboxDLQErrorReasons = []OutboxDLQErrorReason{
	OutboxDLQReasonMaxAttempts,
	OutboxDLQReasonNonRetryable,
}

func (r OutboxDLQErrorReason) IsValid() bool {
	for _, candidate := range validOutboxDLQErrorReasons {
		if candidate == r {
			return true
		}
	}
	return false
}
