package models

import "time"

// Point ledger entry types.
const (
	PointTxSubscriptionCredit = "subscription_credit"
	PointTxPurchase           = "purchase"
	PointTxSpend              = "spend"
	PointTxAdminGrant         = "admin_grant"
)

// PointTransaction is the append-only audit trail behind users.point_balance.
// Amount is signed: credits positive, debits negative.
type PointTransaction struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	Type          string    `gorm:"type:varchar(50);not null;index" json:"type"`
	Amount        int64     `gorm:"not null" json:"amount"`
	Description   string    `gorm:"type:varchar(500)" json:"description"`
	RelatedItemID *uint     `gorm:"index" json:"related_item_id,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
