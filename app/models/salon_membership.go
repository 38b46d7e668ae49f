package models

import "time"

const (
	MembershipStatusActive   = "ACTIVE"
	MembershipStatusCanceled = "CANCELED"
	MembershipStatusUnpaid   = "UNPAID"
	MembershipStatusPending  = "PENDING"
)

// SalonMembership is the single source of truth for salon access gating.
// One row per (salon, user). JoinedAt is written exactly once, on the first
// transition into ACTIVE.
type SalonMembership struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	SalonID            uint       `gorm:"not null;index:ux_salon_memberships_salon_user,unique,priority:1" json:"salon_id"`
	UserID             uint       `gorm:"not null;index:ux_salon_memberships_salon_user,unique,priority:2;index" json:"user_id"`
	Status             string     `gorm:"type:varchar(32);not null;default:'PENDING';index" json:"status"`
	RecurrentPaymentID string     `gorm:"type:varchar(191);index" json:"recurrent_payment_id"`
	LastEventType      string     `gorm:"type:varchar(100)" json:"last_event_type"`
	JoinedAt           *time.Time `gorm:"type:timestamp;default:null" json:"joined_at,omitempty"`
	LastChargedAt      *time.Time `gorm:"type:timestamp;default:null" json:"last_charged_at,omitempty"`
	NextChargeAt       *time.Time `gorm:"type:timestamp;default:null" json:"next_charge_at,omitempty"`
	CanceledAt         *time.Time `gorm:"type:timestamp;default:null" json:"canceled_at,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// GrantsAccess reports whether the membership currently gates content open.
func (m *SalonMembership) GrantsAccess() bool {
	return m.Status == MembershipStatusActive
}
