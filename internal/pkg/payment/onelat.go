package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/HoshinoLab/CreatorBase/internal/pkg/env"
	"github.com/sethvargo/go-retry"
)

// Gateway abstracts the payment processor used for checkout and webhooks.
type Gateway interface {
	CreateCheckoutPreference(ctx context.Context, in CheckoutPreferenceInput) (*CheckoutPreference, error)
	GetPaymentOrder(ctx context.Context, id string) (*PaymentOrderDetail, error)
	GetRecurrentPayment(ctx context.Context, id string) (*RecurrentPaymentDetail, error)
	CancelRecurrentPayment(ctx context.Context, id string) error
}

const defaultOneLatBaseURL = "https://api.one.lat"

// OneLatClient talks to the ONE.lat REST API.
type OneLatClient struct {
	BaseURL   string
	APIKey    string
	APISecret string

	HTTPClient *http.Client
}

// NewOneLatClientFromEnv builds a client from environment configuration.
func NewOneLatClientFromEnv() *OneLatClient {
	return &OneLatClient{
		BaseURL:   strings.TrimRight(env.GetEnv("ONELAT_API_BASE_URL", defaultOneLatBaseURL), "/"),
		APIKey:    strings.TrimSpace(env.GetEnv("ONELAT_API_KEY", "")),
		APISecret: strings.TrimSpace(env.GetEnv("ONELAT_API_SECRET", "")),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *OneLatClient) headers(req *http.Request) {
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("x-api-secret", c.APISecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

// CreateCheckoutPreference creates a hosted checkout for a one-time payment
// or a subscription. Never retried client-side: the call is not idempotent.
func (c *OneLatClient) CreateCheckoutPreference(ctx context.Context, in CheckoutPreferenceInput) (*CheckoutPreference, error) {
	expiration := in.ExpirationMinutes
	if expiration <= 0 {
		expiration = 15
	}
	expirationDate := time.Now().UTC().Add(time.Duration(expiration) * time.Minute).Format("2006-01-02T15:04:05Z")

	prefType := in.Type
	if prefType == "" {
		prefType = PreferencePayment
	}

	payload := map[string]interface{}{
		"type":            prefType,
		"amount":          in.Amount,
		"currency":        in.Currency,
		"title":           in.Title,
		"origin":          "API",
		"external_id":     in.ExternalID,
		"expiration_date": expirationDate,
		"custom_urls": map[string]string{
			"status_changes_webhook":   in.WebhookURL,
			"success_payment_redirect": in.SuccessURL,
			"error_payment_redirect":   in.ErrorURL,
		},
	}
	if in.PaymentLinkID != "" {
		payload["payment_link_id"] = in.PaymentLinkID
	}
	if in.PayerEmail != "" || in.PayerName != "" {
		payer := map[string]string{}
		if in.PayerEmail != "" {
			payer["email"] = in.PayerEmail
		}
		if in.PayerName != "" {
			payer["first_name"] = in.PayerName
		}
		payload["payer"] = payer
	}

	var out CheckoutPreference
	if err := c.doJSON(ctx, http.MethodPost, "/v1/checkout_preferences", payload, &out); err != nil {
		return nil, err
	}
	if out.ID == "" || out.CheckoutURL == "" {
		return nil, fmt.Errorf("onelat: checkout preference response missing id or checkout_url")
	}
	return &out, nil
}

// GetPaymentOrder fetches the canonical payment order. Idempotent, so
// transient failures are retried with fibonacci backoff.
func (c *OneLatClient) GetPaymentOrder(ctx context.Context, id string) (*PaymentOrderDetail, error) {
	var out PaymentOrderDetail
	if err := c.getWithRetry(ctx, "/v1/payment_orders/"+id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRecurrentPayment fetches the canonical recurring payment.
func (c *OneLatClient) GetRecurrentPayment(ctx context.Context, id string) (*RecurrentPaymentDetail, error) {
	var out RecurrentPaymentDetail
	if err := c.getWithRetry(ctx, "/v1/recurrent_payments/"+id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelRecurrentPayment stops a recurring payment at the gateway.
func (c *OneLatClient) CancelRecurrentPayment(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/recurrent_payments/"+id+"/cancel", nil, nil)
}

func (c *OneLatClient) getWithRetry(ctx context.Context, path string, out interface{}) error {
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.doJSON(ctx, http.MethodGet, path, nil, out)
		if err == nil {
			return nil
		}
		// 5xx responses and transport failures are retried; 4xx are
		// authoritative answers.
		var ge *GatewayError
		if errors.As(err, &ge) {
			if ge.StatusCode >= 500 {
				return retry.RetryableError(err)
			}
			return err
		}
		return retry.RetryableError(err)
	})
}

func (c *OneLatClient) doJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	c.headers(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &GatewayError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}
