package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type AdminPaymentListFilter struct {
	Page    int
	Limit   int
	Status  string
	OrderID *int64
}

type PaymentRepository interface {
	Create(ctx context.Context, p model.Payment) (model.Payment, error)
	Save(ctx context.Context, p model.Payment) error
	FindByID(ctx context.Context, paymentID int64) (model.Payment, error)
	FindByIDForUpdate(ctx context.Context, paymentID int64) (model.Payment, error)
	// The most recent payment (highest id) of the order, locked.
	FindLatestByOrderIDForUpdate(ctx context.Context, orderID int64) (model.Payment, error)
	// The payment whose proof is stored at path.
	FindByProofPath(ctx context.Context, path string) (model.Payment, error)
	ListByOrderID(ctx context.Context, orderID int64) ([]model.Payment, error)
	ListAdmin(ctx context.Context, f AdminPaymentListFilter) ([]model.Payment, int64, error)
}

type PaymentMethodRepository interface {
	Exists(ctx context.Context, id int64) (bool, error)
}
