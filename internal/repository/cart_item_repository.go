package repository

import (
	"context"

	"storefront/internal/domain/model"

	"github.com/shopspring/decimal"
)

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	// Same as ListByCartID but holds a row lock on every returned item.
	ListByCartIDForUpdate(ctx context.Context, cartID int64) ([]model.CartItem, error)
	// Same product adds to the quantity and refreshes the price snapshot.
	UpsertByCartAndProduct(ctx context.Context, cartID int64, productID int64, addQty int64, unitPrice decimal.Decimal) (model.CartItem, error)
	UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error
	DeleteByID(ctx context.Context, cartItemID int64) error
	// Deletes the given lines of the cart; ids of other carts are ignored.
	DeleteByIDs(ctx context.Context, cartID int64, ids []int64) error
	FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error)
}
