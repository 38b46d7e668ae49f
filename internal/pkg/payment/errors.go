package payment

import (
	"errors"
	"fmt"
)

var (
	// ErrPlanNotFound is returned when a plan key does not resolve.
	ErrPlanNotFound = errors.New("payment: plan not found")
	// ErrPlanMismatch is returned when a salon's configured plan does not
	// match the plan selected at checkout.
	ErrPlanMismatch = errors.New("payment: salon plan mismatch")
	// ErrNotFound is returned for missing subscriptions/orders owned by the
	// requesting user.
	ErrNotFound = errors.New("payment: record not found")
	// ErrNotCancelable is returned when a subscription has no gateway-side
	// recurrent payment attached yet.
	ErrNotCancelable = errors.New("payment: subscription not cancelable")
	// ErrUnresolvableReference marks a webhook event whose plan or user
	// cannot be derived. The event is not recorded as processed, so a later
	// redelivery can still be applied.
	ErrUnresolvableReference = errors.New("payment: unresolvable reference")
	// ErrInsufficientPoints is returned when a debit exceeds the balance.
	ErrInsufficientPoints = errors.New("payment: insufficient point balance")
	// ErrOutOfStock is returned when an order exceeds the remaining stock.
	ErrOutOfStock = errors.New("payment: item out of stock")
)

// GatewayError reports a failed call to the payment gateway. These are
// treated as transient: webhook processing surfaces them as 5xx so the
// gateway redelivers.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway: status=%d body=%s", e.StatusCode, e.Body)
}

// IsGatewayError reports whether err wraps a GatewayError.
func IsGatewayError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}
