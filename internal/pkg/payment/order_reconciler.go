package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/HoshinoLab/CreatorBase/app/models"
)

// OrderResult reports what a payment-order webhook event did.
type OrderResult struct {
	Handled   bool   `json:"handled"`
	Fulfilled bool   `json:"fulfilled"`
	Status    string `json:"status"`
}

// OrderReconciler applies PAYMENT_ORDER webhook events to one-time orders.
// Fulfillment happens exactly once, gated by the PENDING -> COMPLETED status
// transition inside a single transaction.
type OrderReconciler struct {
	repo      Repository
	gateway   Gateway
	fulfiller Fulfiller
}

// NewOrderReconciler wires an order reconciler.
func NewOrderReconciler(repo Repository, gateway Gateway, fulfiller Fulfiller) *OrderReconciler {
	return &OrderReconciler{repo: repo, gateway: gateway, fulfiller: fulfiller}
}

// Process handles one PAYMENT_ORDER notification. Unknown orders return a nil
// result with nil error: the event belongs to someone else's checkout and is
// acknowledged without action.
func (r *OrderReconciler) Process(ctx context.Context, n WebhookNotification) (*OrderResult, error) {
	detail, err := r.gateway.GetPaymentOrder(ctx, n.EntityID)
	if err != nil {
		return nil, err
	}

	order, err := r.resolveOrder(n.EntityID, detail)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, nil
	}

	mapped := MapOrderStatus(detail.Status)
	now := time.Now().UTC()
	res := &OrderResult{Handled: true}

	err = r.repo.Transaction(func(tx Repository) error {
		// row-locked re-read so concurrent deliveries serialize on the
		// status transition
		current, err := tx.GetOrderByExternalIDForUpdate(order.ExternalID)
		if err != nil {
			return err
		}

		if current.PaymentOrderID == "" {
			current.PaymentOrderID = n.EntityID
		}
		if detail.PaymentMethodType != "" {
			current.PaymentMethod = detail.PaymentMethodType
		}
		mergeOrderDiagnostics(current, detail, n.ID)

		switch {
		case mapped == models.OrderStatusCompleted && current.Status != models.OrderStatusCompleted:
			current.Status = models.OrderStatusCompleted
			current.CompletedAt = &now
			if err := r.fulfiller.Fulfill(ctx, tx, current); err != nil {
				return err
			}
			res.Fulfilled = true
		case mapped == models.OrderStatusCompleted:
			// replayed success event; fulfillment already happened
		case models.IsTerminalNegativeOrderStatus(mapped):
			if current.Status != mapped {
				current.Status = mapped
				current.CanceledAt = &now
			}
		default:
			// PENDING: keep the gateway reference but no transition
		}

		res.Status = current.Status
		return tx.UpdateOrder(current)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// resolveOrder finds the local order, preferring the stored gateway id over
// the external id carried in the canonical entity.
func (r *OrderReconciler) resolveOrder(entityID string, detail *PaymentOrderDetail) (*models.PaymentOrder, error) {
	o, err := r.repo.GetOrderByGatewayID(entityID)
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if detail.ExternalID != "" {
		o, err := r.repo.GetOrderByExternalID(detail.ExternalID)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

// mergeOrderDiagnostics copies the gateway's payer details and the webhook
// notification id into the order's metadata bag for audit.
func mergeOrderDiagnostics(order *models.PaymentOrder, detail *PaymentOrderDetail, notificationID string) {
	if order.Metadata == nil {
		order.Metadata = models.Metadata{}
	}
	if notificationID != "" {
		order.Metadata[models.MetaKeyWebhookID] = notificationID
	}
	if detail.Payer == nil {
		return
	}
	if email := strings.TrimSpace(detail.Payer.Email); email != "" {
		order.Metadata[models.MetaKeyPayerEmail] = email
	}
	if name := strings.TrimSpace(detail.Payer.FirstName + " " + detail.Payer.LastName); name != "" {
		order.Metadata[models.MetaKeyPayerName] = name
	}
}
