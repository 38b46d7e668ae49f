package payment

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HoshinoLab/CreatorBase/app/models"
)

func testService(repo *fakeRepo, gw *fakeGateway) *Service {
	return NewService(repo, gw, testPlans(), Config{
		PublicBaseURL:   "https://api.example.com",
		FrontendBaseURL: "https://app.example.com",
	})
}

func TestCreateCheckoutPersistsSessionBeforeReturn(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway()
	seedUser(repo, 42, "buyer@example.com")

	svc := testService(repo, gw)
	res, err := svc.CreateCheckout(context.Background(), CreateCheckoutInput{UserID: 42, PlanKey: "points_980"})

	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/p/pref_1", res.CheckoutURL)
	assert.True(t, strings.HasPrefix(res.ExternalID, "subscription_points_980_42_"))

	session, err := repo.GetSessionByExternalID(res.ExternalID)
	require.NoError(t, err, "session must exist before the URL is handed out")
	assert.Equal(t, models.SubscriptionStatusPending, session.Status)
	assert.Equal(t, "pref_1", session.CheckoutPreferenceID)

	require.Len(t, gw.checkoutInputs, 1)
	in := gw.checkoutInputs[0]
	assert.Equal(t, PreferenceSubscription, in.Type)
	assert.Equal(t, "plan_980", in.PaymentLinkID)
	assert.Equal(t, "USD", in.Currency)
	assert.Equal(t, 6.76, in.Amount)
	assert.Equal(t, "https://api.example.com/webhooks/onelat", in.WebhookURL)
}

func TestCreateCheckoutUnknownPlan(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway()
	seedUser(repo, 42, "buyer@example.com")

	svc := testService(repo, gw)
	_, err := svc.CreateCheckout(context.Background(), CreateCheckoutInput{UserID: 42, PlanKey: "points_480"})

	require.ErrorIs(t, err, ErrPlanNotFound)
	assert.Empty(t, repo.sessions)
}

func TestCreateCheckoutGatewayFailureLeavesNoSession(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway()
	gw.prefErr = errFakeGatewayDown
	seedUser(repo, 42, "buyer@example.com")

	svc := testService(repo, gw)
	_, err := svc.CreateCheckout(context.Background(), CreateCheckoutInput{UserID: 42, PlanKey: "points_980"})

	require.ErrorIs(t, err, errFakeGatewayDown)
	assert.Empty(t, repo.sessions)
}

func TestCreateCheckoutSalonPlanAssertions(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway()
	seedUser(repo, 42, "buyer@example.com")
	seedUser(repo, 9, "owner@example.com")
	repo.salons[5] = &models.Salon{ID: 5, OwnerID: 9, Name: "Atelier", SubscriptionPlanID: "plan_980"}

	svc := testService(repo, gw)

	// wrong plan for the salon
	_, err := svc.CreateCheckout(context.Background(), CreateCheckoutInput{UserID: 42, PlanKey: "points_1980", SalonID: 5})
	require.ErrorIs(t, err, ErrPlanMismatch)

	// owners cannot subscribe to their own salon
	_, err = svc.CreateCheckout(context.Background(), CreateCheckoutInput{UserID: 9, PlanKey: "points_980", SalonID: 5})
	require.ErrorIs(t, err, ErrPlanMismatch)

	// matching plan succeeds and links the salon
	res, err := svc.CreateCheckout(context.Background(), CreateCheckoutInput{UserID: 42, PlanKey: "points_980", SalonID: 5})
	require.NoError(t, err)
	session, _ := repo.GetSessionByExternalID(res.ExternalID)
	require.NotNil(t, session.SalonID)
	assert.Equal(t, uint(5), *session.SalonID)
	assert.Equal(t, uint(5), session.Metadata.SalonID())
}

func TestCreateCheckoutSellerAndRedirectOverrides(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway()
	seedUser(repo, 42, "buyer@example.com")
	seedUser(repo, 9, "owner@example.com")
	repo.salons[5] = &models.Salon{ID: 5, OwnerID: 9, Name: "Atelier", SubscriptionPlanID: "plan_980"}

	svc := testService(repo, gw)

	// a seller id that is not the salon owner is rejected
	_, err := svc.CreateCheckout(context.Background(), CreateCheckoutInput{
		UserID: 42, PlanKey: "points_980", SalonID: 5, SellerID: "7",
	})
	require.ErrorIs(t, err, ErrPlanMismatch)
	assert.Empty(t, gw.checkoutInputs)

	res, err := svc.CreateCheckout(context.Background(), CreateCheckoutInput{
		UserID:         42,
		PlanKey:        "points_980",
		SalonID:        5,
		SellerID:       "9",
		SellerUsername: "atelier_owner",
		SuccessPath:    "/thanks",
		ErrorPath:      "retry", // missing leading slash is tolerated
		Metadata:       map[string]string{"campaign": "summer"},
	})
	require.NoError(t, err)

	session, err := repo.GetSessionByExternalID(res.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, "9", session.SellerID)
	assert.Equal(t, "atelier_owner", session.SellerUsername)
	assert.Equal(t, "summer", session.Metadata["campaign"])
	assert.Equal(t, uint(5), session.Metadata.SalonID())
	assert.Equal(t, "https://app.example.com/thanks", session.SuccessURL)
	assert.Equal(t, "https://app.example.com/retry", session.ErrorURL)

	require.Len(t, gw.checkoutInputs, 1)
	assert.Equal(t, "https://app.example.com/thanks", gw.checkoutInputs[0].SuccessURL)
	assert.Equal(t, "https://app.example.com/retry", gw.checkoutInputs[0].ErrorURL)

	// the seller defaults to the salon owner when omitted
	res, err = svc.CreateCheckout(context.Background(), CreateCheckoutInput{
		UserID: 42, PlanKey: "points_980", SalonID: 5,
	})
	require.NoError(t, err)
	session, _ = repo.GetSessionByExternalID(res.ExternalID)
	assert.Equal(t, "9", session.SellerID)
}

func TestCancelPaths(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway()
	seedUser(repo, 42, "buyer@example.com")

	active := &models.UserSubscription{
		UserID: 42, PlanKey: "points_980",
		RecurrentPaymentID: "rp_active",
		Status:             models.SubscriptionStatusActive,
		Metadata:           models.Metadata{},
	}
	require.NoError(t, repo.SaveSubscription(active))

	pending := &models.UserSubscription{
		UserID: 42, PlanKey: "points_980",
		Status:   models.SubscriptionStatusPending,
		Metadata: models.Metadata{},
	}
	require.NoError(t, repo.SaveSubscription(pending))

	canceled := &models.UserSubscription{
		UserID: 42, PlanKey: "points_980",
		RecurrentPaymentID: "rp_done",
		Status:             models.SubscriptionStatusCanceled,
		Metadata:           models.Metadata{},
	}
	require.NoError(t, repo.SaveSubscription(canceled))

	svc := testService(repo, gw)

	// someone else's subscription looks like a missing row
	_, err := svc.Cancel(context.Background(), 7, active.ID)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, gw.cancelCalls)

	// already terminal: idempotent success, gateway untouched
	res, err := svc.Cancel(context.Background(), 42, canceled.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusCanceled, res.Status)
	assert.Empty(t, gw.cancelCalls)

	// no gateway-side payment attached yet
	_, err = svc.Cancel(context.Background(), 42, pending.ID)
	require.ErrorIs(t, err, ErrNotCancelable)

	// the happy path cancels at the gateway and returns the updated record
	res, err = svc.Cancel(context.Background(), 42, active.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"rp_active"}, gw.cancelCalls)
	assert.Equal(t, active.ID, res.ID)
	assert.Equal(t, models.SubscriptionStatusCanceled, res.Status)
	assert.Equal(t, "CANCELLED_BY_USER", res.LastEventType)
	require.NotNil(t, res.CanceledAt)
	require.NotNil(t, res.LastEventAt)
}

func TestListSubscriptionsSkipsUnknownPlans(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway()
	seedUser(repo, 42, "buyer@example.com")

	require.NoError(t, repo.SaveSubscription(&models.UserSubscription{
		UserID: 42, PlanKey: "points_980", PointsPerCycle: 980,
		RecurrentPaymentID: "rp_1",
		Status:             models.SubscriptionStatusActive,
		Metadata:           models.Metadata{},
	}))
	require.NoError(t, repo.SaveSubscription(&models.UserSubscription{
		UserID: 42, PlanKey: "points_retired", PointsPerCycle: 500,
		Status:   models.SubscriptionStatusExpired,
		Metadata: models.Metadata{},
	}))

	svc := testService(repo, gw)
	views, err := svc.ListSubscriptions(42)
	require.NoError(t, err)

	// the retired plan is dropped from the list, never half-resolved
	require.Len(t, views, 1)
	assert.Equal(t, "points_980", views[0].PlanKey)
	assert.Equal(t, "980pt / month", views[0].PlanLabel)
	assert.True(t, views[0].Cancelable)
}

func TestCreateOrderCheckout(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway()
	seedUser(repo, 42, "buyer@example.com")
	stock := 5
	repo.products[1] = &models.Product{ID: 1, SellerID: 9, Title: "Print", PriceJPY: 1500, StockQuantity: &stock}

	svc := testService(repo, gw)
	res, err := svc.CreateOrderCheckout(context.Background(), CreateOrderCheckoutInput{
		UserID: 42, ItemType: models.OrderItemProduct, ItemID: 1, Quantity: 2,
	})
	require.NoError(t, err)

	order, err := repo.GetOrderByExternalID(res.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, int64(3000), order.AmountJPY)
	assert.Equal(t, uint(9), order.SellerID)

	require.Len(t, gw.checkoutInputs, 1)
	assert.Equal(t, PreferencePayment, gw.checkoutInputs[0].Type)
	assert.Equal(t, "JPY", gw.checkoutInputs[0].Currency)

	// out of stock is rejected before any gateway call
	_, err = svc.CreateOrderCheckout(context.Background(), CreateOrderCheckoutInput{
		UserID: 42, ItemType: models.OrderItemProduct, ItemID: 1, Quantity: 99,
	})
	require.ErrorIs(t, err, ErrOutOfStock)
	assert.Len(t, gw.checkoutInputs, 1)
}
