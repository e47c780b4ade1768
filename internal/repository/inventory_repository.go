package repository

import "context"

// Stock mutation. Only checkout calls this.
type InventoryRepository interface {
	// Decrements only when stock_quantity >= qty; false means not enough.
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)
}
