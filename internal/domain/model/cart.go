package model

import "time"

// A cart is owned by exactly one of a user or an anonymous session.
type Cart struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       *int64    `gorm:"uniqueIndex" json:"user_id"`
	SessionToken *string   `gorm:"type:varchar(64);uniqueIndex" json:"session_token,omitempty"`
	Version      int64     `gorm:"not null;default:0" json:"version"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
