package model

import "time"

type PaymentMethod struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	BankName      string    `gorm:"type:varchar(255)" json:"bank_name"`
	AccountNumber string    `gorm:"type:varchar(100)" json:"account_number"`
	OwnerName     string    `gorm:"type:varchar(255)" json:"owner_name"`
	Instructions  string    `gorm:"type:text" json:"instructions"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
