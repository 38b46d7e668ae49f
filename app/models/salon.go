package models

import (
	"time"

	"gorm.io/gorm"
)

// Salon is a paid online community. Membership is granted through a linked
// recurring subscription sold under SubscriptionPlanID.
type Salon struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	OwnerID            uint           `gorm:"not null;index" json:"owner_id"`
	Name               string         `gorm:"type:varchar(200);not null" json:"name" validate:"required,min=1,max=200"`
	Description        string         `gorm:"type:text" json:"description"`
	SubscriptionPlanID string         `gorm:"type:varchar(64);not null;index" json:"subscription_plan_id" validate:"required,max=64"`
	MemberCount        int            `gorm:"not null;default:0" json:"member_count"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}
