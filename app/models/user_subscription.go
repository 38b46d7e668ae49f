package models

import "time"

// UserSubscription is the durable, user-visible subscription record.
// One row per gateway recurrent payment. Created lazily on the first webhook
// when the local checkout session has not committed yet.
type UserSubscription struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	UserID               uint       `gorm:"not null;index" json:"user_id"`
	PlanKey              string     `gorm:"type:varchar(64);not null" json:"plan_key"`
	ExternalPlanID       string     `gorm:"type:varchar(64);not null" json:"external_plan_id"`
	PointsPerCycle       int64      `gorm:"not null" json:"points_per_cycle"`
	USDAmount            float64    `gorm:"type:decimal(10,2);not null" json:"usd_amount"`
	CheckoutPreferenceID string     `gorm:"type:varchar(191)" json:"checkout_preference_id"`
	ExternalID           string     `gorm:"type:varchar(191);index" json:"external_id"`
	RecurrentPaymentID   string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"recurrent_payment_id"`
	Status               string     `gorm:"type:varchar(32);not null;default:'PENDING';index" json:"status"`
	LastEventType        string     `gorm:"type:varchar(100)" json:"last_event_type"`
	LastEventAt          *time.Time `gorm:"type:timestamp;default:null" json:"last_event_at,omitempty"`
	LastChargeAt         *time.Time `gorm:"type:timestamp;default:null" json:"last_charge_at,omitempty"`
	NextChargeAt         *time.Time `gorm:"type:timestamp;default:null" json:"next_charge_at,omitempty"`
	CanceledAt           *time.Time `gorm:"type:timestamp;default:null" json:"canceled_at,omitempty"`
	SellerID             string     `gorm:"type:varchar(64)" json:"seller_id"`
	SellerUsername       string     `gorm:"type:varchar(150)" json:"seller_username"`
	SalonID              *uint      `gorm:"index" json:"salon_id,omitempty"`
	Metadata             Metadata   `gorm:"type:longtext" json:"metadata"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Cancelable reports whether the user may still request a cancellation.
func (s *UserSubscription) Cancelable() bool {
	switch s.Status {
	case SubscriptionStatusCanceled, SubscriptionStatusExpired, SubscriptionStatusRejected:
		return false
	default:
		return true
	}
}
