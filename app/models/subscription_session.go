package models

import "time"

// Subscription lifecycle statuses shared by sessions and user subscriptions.
// They mirror the gateway's RECURRENT_PAYMENT states.
const (
	SubscriptionStatusPending  = "PENDING"
	SubscriptionStatusActive   = "ACTIVE"
	SubscriptionStatusCanceled = "CANCELED"
	SubscriptionStatusUnpaid   = "UNPAID"
	SubscriptionStatusExpired  = "EXPIRED"
	SubscriptionStatusRejected = "REJECTED"
)

// SubscriptionSession records a user's intent to subscribe, persisted before
// the checkout URL is handed back so a racing webhook always finds it.
// Sessions are never deleted; CANCELED and EXPIRED are terminal.
type SubscriptionSession struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	UserID               uint      `gorm:"not null;index" json:"user_id"`
	PlanKey              string    `gorm:"type:varchar(64);not null" json:"plan_key"`
	ExternalPlanID       string    `gorm:"type:varchar(64);not null" json:"external_plan_id"`
	PointsPerCycle       int64     `gorm:"not null" json:"points_per_cycle"`
	USDAmount            float64   `gorm:"type:decimal(10,2);not null" json:"usd_amount"`
	CheckoutPreferenceID string    `gorm:"type:varchar(191)" json:"checkout_preference_id"`
	ExternalID           string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"external_id"`
	RecurrentPaymentID   string    `gorm:"type:varchar(191);index" json:"recurrent_payment_id"`
	Status               string    `gorm:"type:varchar(32);not null;default:'PENDING';index" json:"status"`
	SellerID             string    `gorm:"type:varchar(64)" json:"seller_id"`
	SellerUsername       string    `gorm:"type:varchar(150)" json:"seller_username"`
	SalonID              *uint     `gorm:"index" json:"salon_id,omitempty"`
	SuccessURL           string    `gorm:"type:varchar(500)" json:"success_url"`
	ErrorURL             string    `gorm:"type:varchar(500)" json:"error_url"`
	Metadata             Metadata  `gorm:"type:longtext" json:"metadata"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ResolvedSalonID prefers the dedicated column and falls back to metadata.
func (s *SubscriptionSession) ResolvedSalonID() uint {
	if s.SalonID != nil && *s.SalonID != 0 {
		return *s.SalonID
	}
	return s.Metadata.SalonID()
}
