package models

import (
	"time"

	"gorm.io/gorm"
)

// Product is a one-time purchasable item sold in JPY.
// StockQuantity nil means unlimited stock.
type Product struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	SellerID      uint           `gorm:"not null;index" json:"seller_id"`
	Title         string         `gorm:"type:varchar(200);not null" json:"title" validate:"required,min=1,max=200"`
	Description   string         `gorm:"type:text" json:"description"`
	PriceJPY      int64          `gorm:"not null" json:"price_jpy" validate:"gte=0"`
	StockQuantity *int           `gorm:"default:null" json:"stock_quantity,omitempty"`
	TotalSales    int            `gorm:"not null;default:0" json:"total_sales"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// HasStock reports whether the requested quantity can still be sold.
func (p *Product) HasStock(quantity int) bool {
	if p.StockQuantity == nil {
		return true
	}
	return *p.StockQuantity >= quantity
}
