package payment

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/HoshinoLab/CreatorBase/app/models"
)

// Fulfiller delivers what a completed order paid for. It always runs inside
// the order reconciler's transaction, on the transaction-bound repository,
// and must itself be safe to replay: the reconciler's status transition is
// the exactly-once gate, fulfillment only delivers.
type Fulfiller interface {
	Fulfill(ctx context.Context, repo Repository, order *models.PaymentOrder) error
}

// StoreFulfiller dispatches fulfillment by item type.
type StoreFulfiller struct{}

// NewStoreFulfiller returns the default fulfiller.
func NewStoreFulfiller() *StoreFulfiller {
	return &StoreFulfiller{}
}

func (f *StoreFulfiller) Fulfill(ctx context.Context, repo Repository, order *models.PaymentOrder) error {
	switch order.ItemType {
	case models.OrderItemProduct:
		return f.fulfillProduct(repo, order)
	case models.OrderItemNote:
		return f.fulfillNote(repo, order)
	case models.OrderItemSalon:
		// salon access is sold through recurring subscriptions only; a
		// one-time salon order has nothing to deliver
		log.Warnf("order %d: salon item on one-time order, nothing to fulfill", order.ID)
		return nil
	default:
		return fmt.Errorf("payment: unknown order item type %q", order.ItemType)
	}
}

func (f *StoreFulfiller) fulfillProduct(repo Repository, order *models.PaymentOrder) error {
	return repo.ApplyProductSale(order.ItemID, order.Quantity)
}

func (f *StoreFulfiller) fulfillNote(repo Repository, order *models.PaymentOrder) error {
	created, err := repo.CreateNotePurchaseIfAbsent(&models.NotePurchase{
		NoteID: order.ItemID,
		UserID: order.UserID,
	})
	if err != nil {
		return err
	}
	if !created {
		// the buyer already owns the note; the payment still stands
		log.Infof("order %d: note %d already owned by user %d", order.ID, order.ItemID, order.UserID)
	}
	return nil
}
