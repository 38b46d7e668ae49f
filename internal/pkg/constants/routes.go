package constants

// Static route constants
const (
	WebhookOneLatRoute = "/webhooks/onelat"
	APIV1Route         = "/api/v1"
	HealthRoute        = "/healthz"
)
