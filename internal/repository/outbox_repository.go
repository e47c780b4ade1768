package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

type OutboxRepository interface {
	Append(ctx context.Context, ev model.OutboxEvent) error
	// Oldest first.
	ListUnpublished(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkPublished(ctx context.Context, id int64, at time.Time) error
}
