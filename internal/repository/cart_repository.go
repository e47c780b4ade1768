package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type CartRepository interface {
	// Look up or create the single cart owned by the user / session.
	GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error)
	GetOrCreateBySessionToken(ctx context.Context, token string) (model.Cart, error)

	FindByID(ctx context.Context, cartID int64) (model.Cart, error)
	FindBySessionToken(ctx context.Context, token string) (model.Cart, error)
	// Deletes the cart row and all of its items.
	Delete(ctx context.Context, cartID int64) error
	// Increments the cart version and returns the new value. Every
	// transaction that changes the cart's lines calls it.
	BumpVersion(ctx context.Context, cartID int64) (int64, error)
}
