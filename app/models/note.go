package models

import (
	"time"

	"gorm.io/gorm"
)

// Note is a paid article. Access is granted through a NotePurchase row.
// PriceJPY settles through the one-time-order path; PricePoints is what a
// points-paid purchase debits.
type Note struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	AuthorID    uint           `gorm:"not null;index" json:"author_id"`
	Title       string         `gorm:"type:varchar(200);not null" json:"title" validate:"required,min=1,max=200"`
	PriceJPY    int64          `gorm:"not null;default:0" json:"price_jpy" validate:"gte=0"`
	PricePoints int64          `gorm:"not null;default:0" json:"price_points" validate:"gte=0"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// NotePurchase records access to a paid note. PointsSpent is zero for
// JPY-settled orders; the unique index makes fulfillment retries harmless.
type NotePurchase struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	NoteID      uint      `gorm:"not null;index:ux_note_purchases_note_user,unique,priority:1" json:"note_id"`
	UserID      uint      `gorm:"not null;index:ux_note_purchases_note_user,unique,priority:2;index" json:"user_id"`
	PointsSpent int64     `gorm:"not null;default:0" json:"points_spent"`
	PurchasedAt time.Time `gorm:"autoCreateTime" json:"purchased_at"`
}
