package repository

import (
	"context"

	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	carts          repo.CartRepository
	cartItems      repo.CartItemRepository
	products       repo.ProductRepository
	inventory      repo.InventoryRepository
	orders         repo.OrderRepository
	orderItems     repo.OrderItemRepository
	payments       repo.PaymentRepository
	paymentMethods repo.PaymentMethodRepository
	auditLogs      repo.AuditLogRepository
	outbox         repo.OutboxRepository
}

func (r *txReposGorm) Carts() repo.CartRepository                   { return r.carts }
func (r *txReposGorm) CartItems() repo.CartItemRepository           { return r.cartItems }
func (r *txReposGorm) Products() repo.ProductRepository             { return r.products }
func (r *txReposGorm) Inventory() repo.InventoryRepository          { return r.inventory }
func (r *txReposGorm) Orders() repo.OrderRepository                 { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository         { return r.orderItems }
func (r *txReposGorm) Payments() repo.PaymentRepository             { return r.payments }
func (r *txReposGorm) PaymentMethods() repo.PaymentMethodRepository { return r.paymentMethods }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository           { return r.auditLogs }
func (r *txReposGorm) Outbox() repo.OutboxRepository                { return r.outbox }

// NewRepos binds every repository to db. Used for the tx-less read paths and
// by the transaction manager with the tx handle.
func NewRepos(db *gorm.DB) repo.TxRepos {
	return &txReposGorm{
		carts:          NewCartGormRepository(db),
		cartItems:      NewCartItemGormRepository(db),
		products:       NewProductGormRepository(db),
		inventory:      NewInventoryGormRepository(db),
		orders:         NewOrderGormRepository(db),
		orderItems:     NewOrderItemGormRepository(db),
		payments:       NewPaymentGormRepository(db),
		paymentMethods: NewPaymentMethodGormRepository(db),
		auditLogs:      NewAuditLogGormRepository(db),
		outbox:         NewOutboxGormRepository(db),
	}
}

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repos are rebuilt on the tx handle
		return fn(NewRepos(tx))
	})
}
