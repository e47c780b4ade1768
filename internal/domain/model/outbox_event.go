package model

import "time"

const (
	EventOrderPlaced           = "order.placed"
	EventOrderUpdated          = "order.updated"
	EventPaymentUpdated        = "payment.updated"
	EventPaymentProofSubmitted = "payment.proof_submitted"
)

// Written in the same transaction as the change it describes.
// PublishedAt stays nil until the relay has handed it to the broker.
type OutboxEvent struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	AggregateType string     `gorm:"type:varchar(50);not null" json:"aggregate_type"`
	AggregateID   string     `gorm:"type:varchar(64);not null;index" json:"aggregate_id"`
	EventType     string     `gorm:"type:varchar(100);not null" json:"event_type"`
	Payload       string     `gorm:"type:text;not null" json:"payload"`
	CreatedAt     time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	PublishedAt   *time.Time `gorm:"index" json:"published_at"`
}
