package usecase

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
)

const maxShippingAddressLen = 2000

type CheckoutUsecase struct {
	tx    repo.TransactionManager
	cache repo.Cache
	now   func() time.Time
}

// DI
func NewCheckoutUsecase(tx repo.TransactionManager, cache repo.Cache) *CheckoutUsecase {
	return &CheckoutUsecase{tx: tx, cache: cache, now: time.Now}
}

type CheckoutInput struct {
	PaymentMethodID int64
	ShippingAddress *string
}

type CheckoutResult struct {
	OrderID     int64
	PaymentID   int64
	TotalAmount decimal.Decimal
}

// Checkout turns the user's cart into a pending order with one pending
// payment. Cart items and the products they reference stay row locked until
// commit, so stock is validated and decremented under the same lock.
func (u *CheckoutUsecase) Checkout(ctx context.Context, userID int64, in CheckoutInput) (CheckoutResult, error) {
	if userID <= 0 {
		return CheckoutResult{}, ErrUnauthenticated()
	}
	if in.PaymentMethodID <= 0 {
		return CheckoutResult{}, ErrValidation("payment_method_id is required")
	}
	address, err := normalizeAddress(in.ShippingAddress)
	if err != nil {
		return CheckoutResult{}, err
	}

	var (
		out     CheckoutResult
		cartID  int64
		version int64
	)

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().GetOrCreateByUserID(ctx, userID)
		if err != nil {
			return err
		}
		cartID = cart.ID

		ok, err := r.PaymentMethods().Exists(ctx, in.PaymentMethodID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrValidation("payment method not found")
		}

		items, err := r.CartItems().ListByCartIDForUpdate(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart()
		}

		ids := make([]int64, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ProductID)
		}
		products, err := r.Products().FindByIDsForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[int64]model.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		for _, it := range items {
			p, ok := byID[it.ProductID]
			if !ok || !p.IsActive() {
				return ErrInactiveProduct(it.ProductID)
			}
			if p.StockQuantity < it.Quantity {
				return ErrInsufficientStock(it.ProductID)
			}
		}

		// snapshot prices, not the catalog
		total := sumSubtotals(items)
		now := u.now()
		pmID := in.PaymentMethodID

		order, err := r.Orders().Create(ctx, model.Order{
			UserID:          userID,
			TotalAmount:     total,
			Status:          model.OrderStatusPending,
			PaymentMethodID: &pmID,
			ShippingAddress: address,
			PlacedAt:        &now,
		})
		if err != nil {
			return err
		}

		orderItems := make([]model.OrderItem, 0, len(items))
		eventItems := make([]orderEventItem, 0, len(items))
		for _, it := range items {
			orderItems = append(orderItems, model.OrderItem{
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				UnitPrice: it.UnitPrice,
				Subtotal:  it.Subtotal(),
			})
			eventItems = append(eventItems, orderEventItem{ProductID: it.ProductID, Quantity: it.Quantity})
		}
		if err := r.OrderItems().CreateBulk(ctx, order.ID, orderItems); err != nil {
			return err
		}

		for _, it := range items {
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return ErrInsufficientStock(it.ProductID)
			}
		}

		payment, err := r.Payments().Create(ctx, model.Payment{
			OrderID:         order.ID,
			PaymentMethodID: pmID,
			Amount:          total,
			Status:          model.PaymentStatusPending,
		})
		if err != nil {
			return err
		}

		// only the lines that were locked and ordered
		itemIDs := make([]int64, 0, len(items))
		for _, it := range items {
			itemIDs = append(itemIDs, it.ID)
		}
		if err := r.CartItems().DeleteByIDs(ctx, cart.ID, itemIDs); err != nil {
			return err
		}
		version, err = r.Carts().BumpVersion(ctx, cart.ID)
		if err != nil {
			return err
		}

		if err := appendOrderEvent(ctx, r, order.ID, model.EventOrderPlaced, orderPlacedEvent{
			OrderID:     order.ID,
			UserID:      userID,
			TotalAmount: total.StringFixed(2),
			PaymentID:   payment.ID,
			Items:       eventItems,
		}); err != nil {
			return err
		}

		out = CheckoutResult{OrderID: order.ID, PaymentID: payment.ID, TotalAmount: total}
		return nil
	})
	if err != nil {
		return CheckoutResult{}, err
	}

	invalidateCartViews(ctx, u.cache, cartCacheKey(cartID, version-1))
	return out, nil
}

func normalizeAddress(s *string) (*string, error) {
	if s == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(v) > maxShippingAddressLen {
		return nil, ErrValidation("shipping_address too long")
	}
	return &v, nil
}
