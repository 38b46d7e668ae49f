package models

import "time"

// SubscriptionChargeHistory stores one row per processed gateway event.
// The unique EventID is the idempotency marker: once a row exists, a
// redelivered event must be treated as already applied.
type SubscriptionChargeHistory struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	EventID            string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"event_id"`
	UserSubscriptionID uint      `gorm:"not null;index" json:"user_subscription_id"`
	SalonID            *uint     `gorm:"index" json:"salon_id,omitempty"`
	EventType          string    `gorm:"type:varchar(100);not null;index" json:"event_type"`
	Status             string    `gorm:"type:varchar(32)" json:"status"`
	AmountUSD          float64   `gorm:"type:decimal(10,2)" json:"amount_usd"`
	PointsGranted      int64     `gorm:"not null;default:0" json:"points_granted"`
	RawPayload         string    `gorm:"type:longtext" json:"raw_payload"`
	CreatedAt          time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
