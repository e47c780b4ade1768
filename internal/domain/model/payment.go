package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// An order may accumulate payments; the current one is the highest id.
type Payment struct {
	ID                   int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID              int64           `gorm:"not null;index" json:"order_id"`
	PaymentMethodID      int64           `gorm:"not null;index" json:"payment_method_id"`
	Amount               decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	TransactionReference *string         `gorm:"type:varchar(255)" json:"transaction_reference"`
	ProofPath            *string         `gorm:"type:varchar(512);index" json:"proof_path"`
	Status               PaymentStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaidAt               *time.Time      `json:"paid_at"`
	CreatedAt            time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
