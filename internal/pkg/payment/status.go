package payment

import (
	"strings"

	"github.com/HoshinoLab/CreatorBase/app/models"
)

// MapOrderStatus maps a gateway payment-order status to the internal order
// status. Total over all inputs: unknown strings fail open to PENDING so an
// event is never silently dropped.
func MapOrderStatus(gatewayStatus string) string {
	switch strings.ToUpper(strings.TrimSpace(gatewayStatus)) {
	case "OPENED", "CREATED", "PENDING":
		return models.OrderStatusPending
	case "CLOSED":
		return models.OrderStatusCompleted
	case "EXPIRED":
		return models.OrderStatusExpired
	case "REJECTED":
		return models.OrderStatusRejected
	case "REFUNDED":
		return models.OrderStatusRefunded
	case "CANCELLED", "CANCELED":
		return models.OrderStatusCancelled
	default:
		return models.OrderStatusPending
	}
}

// TransitionKind classifies a recurrent-payment event into a closed set of
// internal transitions.
type TransitionKind int

const (
	TransitionOther TransitionKind = iota
	TransitionSuccess
	TransitionCancel
	TransitionUnpaid
)

func (k TransitionKind) String() string {
	switch k {
	case TransitionSuccess:
		return "success"
	case TransitionCancel:
		return "cancel"
	case TransitionUnpaid:
		return "unpaid"
	default:
		return "other"
	}
}

// ClassifyEvent maps a gateway event type to a TransitionKind. Every gateway
// string lands in exactly one bucket; unmatched ones are TransitionOther.
func ClassifyEvent(eventType string) TransitionKind {
	switch strings.ToUpper(strings.TrimSpace(eventType)) {
	case "RECURRENT_PAYMENT.ACTIVE", "RECURRENT_PAYMENT.COMPLETE":
		return TransitionSuccess
	case "RECURRENT_PAYMENT.CANCELED", "RECURRENT_PAYMENT.CANCELLED":
		return TransitionCancel
	case "RECURRENT_PAYMENT.UNPAID", "RECURRENT_PAYMENT.PAUSED":
		return TransitionUnpaid
	default:
		return TransitionOther
	}
}
