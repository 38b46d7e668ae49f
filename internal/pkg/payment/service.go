package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/HoshinoLab/CreatorBase/app/models"
	"github.com/HoshinoLab/CreatorBase/internal/pkg/constants"
	"github.com/HoshinoLab/CreatorBase/internal/pkg/env"
	"github.com/HoshinoLab/CreatorBase/internal/pkg/plans"
)

// Config carries the URLs baked into gateway checkout preferences.
type Config struct {
	// PublicBaseURL is where the gateway reaches us (webhooks).
	PublicBaseURL string
	// FrontendBaseURL is where the payer is redirected after checkout.
	FrontendBaseURL string
}

// ConfigFromEnv reads the checkout URL configuration.
func ConfigFromEnv() Config {
	return Config{
		PublicBaseURL:   strings.TrimRight(env.GetEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		FrontendBaseURL: strings.TrimRight(env.GetEnv("FRONTEND_BASE_URL", "http://localhost:3000"), "/"),
	}
}

// Service implements checkout, listing and cancellation on top of the gateway
// and the repository. Reconciliation of webhook events lives in the
// reconcilers, not here.
type Service struct {
	repo    Repository
	gateway Gateway
	catalog *plans.Catalog
	cfg     Config
}

// NewService wires a payment service.
func NewService(repo Repository, gateway Gateway, catalog *plans.Catalog, cfg Config) *Service {
	return &Service{repo: repo, gateway: gateway, catalog: catalog, cfg: cfg}
}

// CheckoutResult is handed back to the client after a checkout is created.
type CheckoutResult struct {
	SessionID   uint   `json:"session_id"`
	ExternalID  string `json:"external_id"`
	CheckoutURL string `json:"checkout_url"`
}

// CreateCheckoutInput describes a subscription checkout request.
type CreateCheckoutInput struct {
	UserID  uint
	PlanKey string
	// SalonID is set when the subscription buys salon membership.
	SalonID uint
	// SellerID and SellerUsername attribute the sale to a creator. When a
	// salon is bound, a non-empty SellerID must name the salon owner.
	SellerID       string
	SellerUsername string
	// SuccessPath and ErrorPath override the default frontend redirect
	// targets. Paths only; the frontend base URL comes from config.
	SuccessPath string
	ErrorPath   string
	// Metadata is merged into the session's metadata bag.
	Metadata map[string]string
}

// redirectURL builds a frontend redirect from an optional path override.
func (s *Service) redirectURL(path, fallback string) string {
	if path == "" {
		path = fallback
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return s.cfg.FrontendBaseURL + path
}

// newExternalID builds the correlation id embedded in gateway entities. The
// plan key and user id make webhook-side cold starts resolvable without any
// local state.
func newExternalID(planKey string, userID uint) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("subscription_%s_%d_%s", planKey, userID, suffix)
}

// ParseExternalID recovers plan key and user id from an external id built by
// newExternalID. Used by the recurring reconciler on cold starts.
func ParseExternalID(externalID string) (planKey string, userID uint, ok bool) {
	if !strings.HasPrefix(externalID, "subscription_") {
		return "", 0, false
	}
	rest := strings.TrimPrefix(externalID, "subscription_")
	// plan keys contain underscores, so split from the right: the last two
	// segments are userID and the random suffix.
	parts := strings.Split(rest, "_")
	if len(parts) < 3 {
		return "", 0, false
	}
	idPart := parts[len(parts)-2]
	var id uint64
	if _, err := fmt.Sscanf(idPart, "%d", &id); err != nil || id == 0 {
		return "", 0, false
	}
	planKey = strings.Join(parts[:len(parts)-2], "_")
	return planKey, uint(id), true
}

// CreateCheckout creates a gateway subscription checkout and persists the
// local session before the checkout URL is returned, so a webhook racing the
// response always finds the session.
func (s *Service) CreateCheckout(ctx context.Context, in CreateCheckoutInput) (*CheckoutResult, error) {
	plan, ok := s.catalog.ByKey(in.PlanKey)
	if !ok {
		return nil, ErrPlanNotFound
	}

	user, err := s.repo.GetUserByID(in.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	metadata := models.Metadata{}
	for k, v := range in.Metadata {
		metadata[k] = v
	}

	session := &models.SubscriptionSession{
		UserID:         in.UserID,
		PlanKey:        plan.Key,
		ExternalPlanID: plan.ExternalPlanID,
		PointsPerCycle: plan.PointsPerCycle,
		USDAmount:      plan.USDAmount,
		ExternalID:     newExternalID(plan.Key, in.UserID),
		Status:         models.SubscriptionStatusPending,
		SellerID:       in.SellerID,
		SellerUsername: in.SellerUsername,
		SuccessURL:     s.redirectURL(in.SuccessPath, "/subscriptions/success"),
		ErrorURL:       s.redirectURL(in.ErrorPath, "/subscriptions/error"),
		Metadata:       metadata,
	}

	if in.SalonID != 0 {
		salon, err := s.repo.GetSalonByID(in.SalonID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		if salon.SubscriptionPlanID != plan.ExternalPlanID {
			return nil, ErrPlanMismatch
		}
		if salon.OwnerID == in.UserID {
			return nil, ErrPlanMismatch
		}
		ownerID := strconv.FormatUint(uint64(salon.OwnerID), 10)
		if in.SellerID != "" && in.SellerID != ownerID {
			return nil, ErrPlanMismatch
		}
		if session.SellerID == "" {
			session.SellerID = ownerID
		}
		session.SalonID = &salon.ID
		session.Metadata[models.MetaKeySalonID] = strconv.FormatUint(uint64(salon.ID), 10)
	}

	pref, err := s.gateway.CreateCheckoutPreference(ctx, CheckoutPreferenceInput{
		Type:              PreferenceSubscription,
		Amount:            plan.USDAmount,
		Currency:          "USD",
		Title:             plan.Label,
		ExternalID:        session.ExternalID,
		PaymentLinkID:     plan.ExternalPlanID,
		ExpirationMinutes: 30,
		WebhookURL:        s.cfg.PublicBaseURL + constants.WebhookOneLatRoute,
		SuccessURL:        session.SuccessURL,
		ErrorURL:          session.ErrorURL,
		PayerEmail:        user.Email,
		PayerName:         user.Name,
	})
	if err != nil {
		return nil, err
	}

	session.CheckoutPreferenceID = pref.ID
	if err := s.repo.CreateSession(session); err != nil {
		return nil, err
	}

	return &CheckoutResult{
		SessionID:   session.ID,
		ExternalID:  session.ExternalID,
		CheckoutURL: pref.CheckoutURL,
	}, nil
}

// SubscriptionView is the user-facing projection of a subscription.
type SubscriptionView struct {
	ID             uint                     `json:"id"`
	PlanKey        string                   `json:"plan_key"`
	PlanLabel      string                   `json:"plan_label"`
	PointsPerCycle int64                    `json:"points_per_cycle"`
	USDAmount      float64                  `json:"usd_amount"`
	Status         string                   `json:"status"`
	Cancelable     bool                     `json:"cancelable"`
	SalonID        *uint                    `json:"salon_id,omitempty"`
	LastChargeAt   *string                  `json:"last_charge_at,omitempty"`
	NextChargeAt   *string                  `json:"next_charge_at,omitempty"`
	Subscription   *models.UserSubscription `json:"-"`
}

// ListSubscriptions returns the user's subscriptions. Rows whose plan key no
// longer resolves to a catalog entry are skipped (logged, not surfaced) so
// one retired plan never breaks the whole list.
func (s *Service) ListSubscriptions(userID uint) ([]SubscriptionView, error) {
	subs, err := s.repo.ListSubscriptionsByUser(userID)
	if err != nil {
		return nil, err
	}

	views := make([]SubscriptionView, 0, len(subs))
	for i := range subs {
		sub := subs[i]
		plan, ok := s.catalog.ByKey(sub.PlanKey)
		if !ok {
			log.Warnf("subscription %d references unknown plan key %q, skipping", sub.ID, sub.PlanKey)
			continue
		}
		view := SubscriptionView{
			ID:             sub.ID,
			PlanKey:        sub.PlanKey,
			PlanLabel:      plan.Label,
			PointsPerCycle: sub.PointsPerCycle,
			USDAmount:      sub.USDAmount,
			Status:         sub.Status,
			Cancelable:     sub.Cancelable() && sub.RecurrentPaymentID != "",
			SalonID:        sub.SalonID,
			Subscription:   &subs[i],
		}
		if sub.LastChargeAt != nil {
			v := sub.LastChargeAt.UTC().Format("2006-01-02T15:04:05Z")
			view.LastChargeAt = &v
		}
		if sub.NextChargeAt != nil {
			v := sub.NextChargeAt.UTC().Format("2006-01-02T15:04:05Z")
			view.NextChargeAt = &v
		}
		views = append(views, view)
	}
	return views, nil
}

// Cancel stops a subscription at the gateway and marks it locally, returning
// the updated record. Canceling an already-terminal subscription is an
// idempotent success.
func (s *Service) Cancel(ctx context.Context, userID, subscriptionID uint) (*models.UserSubscription, error) {
	sub, err := s.repo.GetSubscriptionByID(subscriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if sub.UserID != userID {
		// ownership failures are indistinguishable from missing rows
		return nil, ErrNotFound
	}
	if !sub.Cancelable() {
		return sub, nil
	}
	if sub.RecurrentPaymentID == "" {
		return nil, ErrNotCancelable
	}

	if err := s.gateway.CancelRecurrentPayment(ctx, sub.RecurrentPaymentID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sub.Status = models.SubscriptionStatusCanceled
	sub.LastEventType = "CANCELLED_BY_USER"
	sub.LastEventAt = &now
	sub.CanceledAt = &now
	if err := s.repo.SaveSubscription(sub); err != nil {
		return nil, err
	}
	if err := s.repo.MarkSessionStatusByRecurrentPaymentID(sub.RecurrentPaymentID, models.SubscriptionStatusCanceled); err != nil {
		log.Warnf("cancel: session status update for %s failed: %v", sub.RecurrentPaymentID, err)
	}
	return sub, nil
}

// Plans returns the purchasable plan catalog.
func (s *Service) Plans() []plans.Plan {
	return s.catalog.All()
}

// CreateOrderCheckoutInput describes a one-time JPY purchase.
type CreateOrderCheckoutInput struct {
	UserID   uint
	ItemType string
	ItemID   uint
	Quantity int
}

// CreateOrderCheckout opens a gateway payment for a product or note. The
// PENDING order row is persisted before the checkout URL is returned.
func (s *Service) CreateOrderCheckout(ctx context.Context, in CreateOrderCheckoutInput) (*CheckoutResult, error) {
	if in.Quantity <= 0 {
		in.Quantity = 1
	}

	user, err := s.repo.GetUserByID(in.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var (
		title    string
		unitJPY  int64
		sellerID uint
	)
	switch in.ItemType {
	case models.OrderItemProduct:
		product, err := s.repo.GetProductByID(in.ItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		if !product.HasStock(in.Quantity) {
			return nil, ErrOutOfStock
		}
		title, unitJPY, sellerID = product.Title, product.PriceJPY, product.SellerID
	case models.OrderItemNote:
		note, err := s.repo.GetNoteByID(in.ItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		title, unitJPY, sellerID = note.Title, note.PriceJPY, note.AuthorID
		in.Quantity = 1
	default:
		return nil, fmt.Errorf("payment: unsupported order item type %q", in.ItemType)
	}

	amount := unitJPY * int64(in.Quantity)
	externalID := fmt.Sprintf("order_%s_%d_%d_%s",
		in.ItemType, in.ItemID, in.UserID,
		strings.ReplaceAll(uuid.NewString(), "-", "")[:8])

	pref, err := s.gateway.CreateCheckoutPreference(ctx, CheckoutPreferenceInput{
		Type:              PreferencePayment,
		Amount:            float64(amount),
		Currency:          "JPY",
		Title:             title,
		ExternalID:        externalID,
		ExpirationMinutes: 30,
		WebhookURL:        s.cfg.PublicBaseURL + constants.WebhookOneLatRoute,
		SuccessURL:        s.cfg.FrontendBaseURL + "/orders/success",
		ErrorURL:          s.cfg.FrontendBaseURL + "/orders/error",
		PayerEmail:        user.Email,
		PayerName:         user.Name,
	})
	if err != nil {
		return nil, err
	}

	order := &models.PaymentOrder{
		UserID:     in.UserID,
		SellerID:   sellerID,
		ItemType:   in.ItemType,
		ItemID:     in.ItemID,
		Quantity:   in.Quantity,
		AmountJPY:  amount,
		Status:     models.OrderStatusPending,
		ExternalID: externalID,
		Metadata:   models.Metadata{},
	}
	if err := s.repo.CreateOrder(order); err != nil {
		return nil, err
	}

	return &CheckoutResult{
		SessionID:   order.ID,
		ExternalID:  externalID,
		CheckoutURL: pref.CheckoutURL,
	}, nil
}
