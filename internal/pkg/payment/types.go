package payment

import (
	"encoding/json"
	"strings"
	"time"
)

// WebhookNotification is the gateway's "something changed, go look" signal.
// Money-moving decisions are never taken from this payload alone; the
// reconcilers always re-fetch the canonical entity first.
type WebhookNotification struct {
	ID         string `json:"id"`
	EventType  string `json:"event_type"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
}

// Gateway entity types carried in webhook notifications.
const (
	EntityPaymentOrder     = "PAYMENT_ORDER"
	EntityRecurrentPayment = "RECURRENT_PAYMENT"
)

// Checkout preference kinds.
const (
	PreferencePayment      = "PAYMENT"
	PreferenceSubscription = "SUBSCRIPTION"
)

// Payer identifies the paying customer as reported by the gateway.
type Payer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// FlexAmount tolerates the gateway's two amount encodings: a bare number and
// an object carrying "value" or "amount".
type FlexAmount float64

func (a *FlexAmount) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*a = FlexAmount(n)
		return nil
	}
	var obj struct {
		Value  *float64 `json:"value"`
		Amount *float64 `json:"amount"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	switch {
	case obj.Value != nil:
		*a = FlexAmount(*obj.Value)
	case obj.Amount != nil:
		*a = FlexAmount(*obj.Amount)
	default:
		*a = 0
	}
	return nil
}

// CheckoutPreferenceInput is the request for creating a hosted checkout.
type CheckoutPreferenceInput struct {
	Type              string
	Amount            float64
	Currency          string
	Title             string
	ExternalID        string
	WebhookURL        string
	SuccessURL        string
	ErrorURL          string
	PayerEmail        string
	PayerName         string
	PaymentLinkID     string
	ExpirationMinutes int
}

// CheckoutPreference is the gateway's hosted-checkout handle.
type CheckoutPreference struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkout_url"`
}

// PaymentOrderDetail is the canonical one-time payment entity.
type PaymentOrderDetail struct {
	ID                string     `json:"id"`
	Status            string     `json:"status"`
	ExternalID        string     `json:"external_id"`
	Amount            FlexAmount `json:"amount"`
	Currency          string     `json:"currency"`
	PaymentMethodType string     `json:"payment_method_type"`
	Payer             *Payer     `json:"payer"`
}

// RecurrentPaymentDetail is the canonical recurring subscription entity.
// The gateway has renamed several fields across API versions; accessors below
// paper over that.
type RecurrentPaymentDetail struct {
	ID             string     `json:"id"`
	Status         string     `json:"status"`
	ExternalID     string     `json:"external_id"`
	Amount         FlexAmount `json:"amount"`
	Currency       string     `json:"currency"`
	PaymentLinkID  string     `json:"payment_link_id"`
	SubscriptionID string     `json:"subscription_id"`
	Payer          *Payer     `json:"payer"`
	Customer       *Payer     `json:"customer"`

	NextPaymentAt     string `json:"next_payment_at"`
	NextPaymentDate   string `json:"next_payment_date"`
	NextExecutionDate string `json:"next_execution_date"`
	NextBillingDate   string `json:"next_billing_date"`
}

// PlanReference returns the gateway-side plan id attached to the payment.
func (d *RecurrentPaymentDetail) PlanReference() string {
	if d.PaymentLinkID != "" {
		return d.PaymentLinkID
	}
	return d.SubscriptionID
}

// PayerEmail returns the payer email from whichever block is populated.
func (d *RecurrentPaymentDetail) PayerEmail() string {
	if d.Payer != nil && d.Payer.Email != "" {
		return strings.TrimSpace(d.Payer.Email)
	}
	if d.Customer != nil {
		return strings.TrimSpace(d.Customer.Email)
	}
	return ""
}

// NextChargeAt parses the first populated next-charge field.
func (d *RecurrentPaymentDetail) NextChargeAt() *time.Time {
	for _, raw := range []string{d.NextPaymentAt, d.NextPaymentDate, d.NextExecutionDate, d.NextBillingDate} {
		if raw == "" {
			continue
		}
		if t, ok := parseGatewayTime(raw); ok {
			return &t
		}
	}
	return nil
}

func parseGatewayTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
