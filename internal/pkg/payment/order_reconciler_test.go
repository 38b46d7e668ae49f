package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HoshinoLab/CreatorBase/app/models"
)

func seedProductOrder(repo *fakeRepo, quantity int) *models.PaymentOrder {
	stock := 10
	repo.products[1] = &models.Product{ID: 1, SellerID: 9, Title: "Print", PriceJPY: 1500, StockQuantity: &stock}
	order := &models.PaymentOrder{
		UserID:     42,
		SellerID:   9,
		ItemType:   models.OrderItemProduct,
		ItemID:     1,
		Quantity:   quantity,
		AmountJPY:  1500 * int64(quantity),
		Status:     models.OrderStatusPending,
		ExternalID: "order_product_1_42_abc12345",
		Metadata:   models.Metadata{},
	}
	_ = repo.CreateOrder(order)
	return order
}

func TestOrderCompletionFulfillsExactlyOnce(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway()
	seedProductOrder(repo, 2)
	gw.orders["po_1"] = &PaymentOrderDetail{
		ID: "po_1", Status: "CLOSED",
		ExternalID:        "order_product_1_42_abc12345",
		PaymentMethodType: "CARD",
		Payer:             &Payer{Email: "buyer@example.com", FirstName: "Aki", LastName: "Tanaka"},
	}

	rec := NewOrderReconciler(repo, gw, NewStoreFulfiller())
	n := WebhookNotification{
		ID: "evt_o1", EventType: "PAYMENT_ORDER.CLOSED",
		EntityType: EntityPaymentOrder, EntityID: "po_1",
	}

	res, err := rec.Process(context.Background(), n)
	require.NoError(t, err)
	require.True(t, res.Handled)
	assert.True(t, res.Fulfilled)
	assert.Equal(t, models.OrderStatusCompleted, res.Status)

	product := repo.products[1]
	assert.Equal(t, 8, *product.StockQuantity, "stock 10 minus quantity 2")
	assert.Equal(t, 2, product.TotalSales)

	order, _ := repo.GetOrderByExternalID("order_product_1_42_abc12345")
	assert.Equal(t, "po_1", order.PaymentOrderID)
	assert.Equal(t, "CARD", order.PaymentMethod)
	require.NotNil(t, order.CompletedAt)

	// gateway diagnostics land in the metadata bag
	assert.Equal(t, "evt_o1", order.Metadata[models.MetaKeyWebhookID])
	assert.Equal(t, "buyer@example.com", order.Metadata[models.MetaKeyPayerEmail])
	assert.Equal(t, "Aki Tanaka", order.Metadata[models.MetaKeyPayerName])

	// redelivery: no second decrement
	res, err = rec.Process(context.Background(), n)
	require.NoError(t, err)
	assert.False(t, res.Fulfilled)
	assert.Equal(t, 8, *repo.products[1].StockQuantity)
	assert.Equal(t, 2, repo.products[1].TotalSales)
}

func TestOrderStockFlooredAtZero(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway()
	order := seedProductOrder(repo, 3)
	stock := 1
	repo.products[1].StockQuantity = &stock
	gw.orders["po_2"] = &PaymentOrderDetail{
		ID: "po_2", Status: "CLOSED", ExternalID: order.ExternalID,
	}

	rec := NewOrderReconciler(repo, gw, NewStoreFulfiller())
	_, err := rec.Process(context.Background(), WebhookNotification{
		ID: "evt_o2", EntityType: EntityPaymentOrder, EntityID: "po_2",
	})
	require.NoError(t, err)

	assert.Equal(t, 0, *repo.products[1].StockQuantity)
	assert.Equal(t, 3, repo.products[1].TotalSales)
}

func TestOrderNoteFulfillmentIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway()
	repo.notes[3] = &models.Note{ID: 3, AuthorID: 9, Title: "Essay", PriceJPY: 500}
	order := &models.PaymentOrder{
		UserID:     42,
		SellerID:   9,
		ItemType:   models.OrderItemNote,
		ItemID:     3,
		Quantity:   1,
		AmountJPY:  500,
		Status:     models.OrderStatusPending,
		ExternalID: "order_note_3_42_def67890",
		Metadata:   models.Metadata{},
	}
	_ = repo.CreateOrder(order)
	// buyer already owns the note from an earlier purchase
	repo.notePurchases[[2]uint{3, 42}] = &models.NotePurchase{NoteID: 3, UserID: 42}

	gw.orders["po_3"] = &PaymentOrderDetail{ID: "po_3", Status: "CLOSED", ExternalID: order.ExternalID}

	rec := NewOrderReconciler(repo, gw, NewStoreFulfiller())
	res, err := rec.Process(context.Background(), WebhookNotification{
		ID: "evt_o3", EntityType: EntityPaymentOrder, EntityID: "po_3",
	})

	require.NoError(t, err, "duplicate ownership must not fail the order")
	assert.Equal(t, models.OrderStatusCompleted, res.Status)
	assert.Len(t, repo.notePurchases, 1)
}

func TestOrderTerminalNegativeStatuses(t *testing.T) {
	tests := []struct {
		gateway string
		want    string
	}{
		{"EXPIRED", models.OrderStatusExpired},
		{"REJECTED", models.OrderStatusRejected},
		{"REFUNDED", models.OrderStatusRefunded},
		{"CANCELLED", models.OrderStatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.gateway, func(t *testing.T) {
			repo := newFakeRepo()
			gw := newFakeGateway()
			order := seedProductOrder(repo, 1)
			gw.orders["po_n"] = &PaymentOrderDetail{ID: "po_n", Status: tt.gateway, ExternalID: order.ExternalID}

			rec := NewOrderReconciler(repo, gw, NewStoreFulfiller())
			res, err := rec.Process(context.Background(), WebhookNotification{
				ID: "evt_n", EntityType: EntityPaymentOrder, EntityID: "po_n",
			})

			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Status)
			assert.False(t, res.Fulfilled)
			assert.Equal(t, 10, *repo.products[1].StockQuantity, "no stock movement on failed orders")

			stored, _ := repo.GetOrderByExternalID(order.ExternalID)
			require.NotNil(t, stored.CanceledAt)
		})
	}
}

func TestOrderResolvedByStoredGatewayID(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway()
	order := seedProductOrder(repo, 1)
	order.PaymentOrderID = "po_known"
	// the canonical entity carries no external id; the stored gateway
	// reference is the only link
	gw.orders["po_known"] = &PaymentOrderDetail{ID: "po_known", Status: "CLOSED"}

	rec := NewOrderReconciler(repo, gw, NewStoreFulfiller())
	res, err := rec.Process(context.Background(), WebhookNotification{
		ID: "evt_g", EntityType: EntityPaymentOrder, EntityID: "po_known",
	})

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Fulfilled)
	assert.Equal(t, models.OrderStatusCompleted, res.Status)
}

func TestOrderUnknownEntityIsAcknowledged(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway()
	gw.orders["po_foreign"] = &PaymentOrderDetail{ID: "po_foreign", Status: "CLOSED", ExternalID: "not_ours"}

	rec := NewOrderReconciler(repo, gw, NewStoreFulfiller())
	res, err := rec.Process(context.Background(), WebhookNotification{
		ID: "evt_f", EntityType: EntityPaymentOrder, EntityID: "po_foreign",
	})

	require.NoError(t, err)
	assert.Nil(t, res, "foreign orders are acknowledged without action")
}

func TestOrderPendingKeepsGatewayReference(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway()
	order := seedProductOrder(repo, 1)
	gw.orders["po_p"] = &PaymentOrderDetail{ID: "po_p", Status: "OPENED", ExternalID: order.ExternalID}

	rec := NewOrderReconciler(repo, gw, NewStoreFulfiller())
	res, err := rec.Process(context.Background(), WebhookNotification{
		ID: "evt_p", EntityType: EntityPaymentOrder, EntityID: "po_p",
	})

	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, res.Status)

	stored, _ := repo.GetOrderByExternalID(order.ExternalID)
	assert.Equal(t, "po_p", stored.PaymentOrderID, "gateway id captured for later lookups")
}
