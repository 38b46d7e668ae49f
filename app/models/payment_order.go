package models

import "time"

// Internal payment order statuses, mapped from gateway statuses.
const (
	OrderStatusPending   = "PENDING"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusExpired   = "EXPIRED"
	OrderStatusRejected  = "REJECTED"
	OrderStatusRefunded  = "REFUNDED"
	OrderStatusCancelled = "CANCELLED"
)

// Purchasable item kinds for one-time orders.
const (
	OrderItemProduct = "product"
	OrderItemNote    = "note"
	OrderItemSalon   = "salon"
)

// PaymentOrder tracks a one-time purchase paid in JPY. Created PENDING at
// checkout time; the webhook reconciler drives all later transitions.
type PaymentOrder struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"not null;index" json:"user_id"`
	SellerID       uint       `gorm:"index" json:"seller_id"`
	ItemType       string     `gorm:"type:varchar(32);not null;index" json:"item_type"`
	ItemID         uint       `gorm:"not null;index" json:"item_id"`
	Quantity       int        `gorm:"not null;default:1" json:"quantity"`
	PaymentMethod  string     `gorm:"type:varchar(64)" json:"payment_method"`
	AmountJPY      int64      `gorm:"not null" json:"amount_jpy"`
	Status         string     `gorm:"type:varchar(32);not null;default:'PENDING';index" json:"status"`
	ExternalID     string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"external_id"`
	PaymentOrderID string     `gorm:"type:varchar(191);index" json:"payment_order_id"`
	Metadata       Metadata   `gorm:"type:longtext" json:"metadata"`
	CompletedAt    *time.Time `gorm:"type:timestamp;default:null" json:"completed_at,omitempty"`
	CanceledAt     *time.Time `gorm:"type:timestamp;default:null" json:"canceled_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminalNegative reports whether the status ends the order without a sale.
func IsTerminalNegativeOrderStatus(status string) bool {
	switch status {
	case OrderStatusExpired, OrderStatusRejected, OrderStatusRefunded, OrderStatusCancelled:
		return true
	default:
		return false
	}
}
