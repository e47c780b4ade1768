package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// Read side of the catalog.
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)
	FindByIDs(ctx context.Context, ids []int64) ([]model.Product, error)
	// Locks the rows in ascending id order so concurrent checkouts over
	// overlapping products cannot deadlock.
	FindByIDsForUpdate(ctx context.Context, ids []int64) ([]model.Product, error)
}
