package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          int64           `gorm:"not null;index" json:"user_id"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentMethodID *int64          `gorm:"index" json:"payment_method_id"`
	ShippingAddress *string         `gorm:"type:text" json:"shipping_address"`
	PlacedAt        *time.Time      `json:"placed_at"`
	CreatedAt       time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
