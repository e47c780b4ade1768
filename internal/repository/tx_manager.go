package repository

import "context"

// Repositories bound to one transaction.
type TxRepos interface {
	Carts() CartRepository
	CartItems() CartItemRepository
	Products() ProductRepository
	Inventory() InventoryRepository
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	Payments() PaymentRepository
	PaymentMethods() PaymentMethodRepository
	AuditLogs() AuditLogRepository
	Outbox() OutboxRepository
}

// Hides begin/commit/rollback from the usecases. A non-nil error from fn
// rolls everything back and is returned unchanged.
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
