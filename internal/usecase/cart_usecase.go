package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// CartUsecase owns carts and cart items for users and anonymous sessions.
type CartUsecase struct {
	tx    repo.TransactionManager
	cache repo.Cache
	sfg   singleflight.Group
}

// DI
func NewCartUsecase(tx repo.TransactionManager, cache repo.Cache) *CartUsecase {
	return &CartUsecase{tx: tx, cache: cache}
}

// CartLine is a cart item with its catalog row. Product is nil when the
// product no longer exists.
type CartLine struct {
	Item    model.CartItem
	Product *model.Product
}

type CartItemView struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
	Subtotal  string `json:"subtotal"`
	Available bool   `json:"available"`
}

// CartView is what the cart endpoints render. Prices are the snapshots.
// Version is the cart version the lines were read at.
type CartView struct {
	CartID      int64          `json:"cart_id"`
	Version     int64          `json:"version"`
	Items       []CartItemView `json:"items"`
	TotalAmount string         `json:"total_amount"`
}

type AddCartInput struct {
	ProductID int64
	Quantity  int64
}

func (u *CartUsecase) GetOrCreateCart(ctx context.Context, p model.Principal) (model.Cart, error) {
	var cart model.Cart
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := getOrCreateCart(ctx, r, p)
		if err != nil {
			return err
		}
		cart = c
		return nil
	})
	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

// AddItem adds qty of a product, merging into the existing line and
// refreshing its price snapshot. Stock is not checked here.
func (u *CartUsecase) AddItem(ctx context.Context, cart model.Cart, productID int64, qty int64) (model.CartItem, error) {
	if productID <= 0 {
		return model.CartItem{}, ErrValidation("invalid product_id")
	}
	if qty < 1 {
		return model.CartItem{}, ErrValidation("quantity must be >= 1")
	}

	var (
		item    model.CartItem
		version int64
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		it, err := addItem(ctx, r, cart.ID, productID, qty)
		if err != nil {
			return err
		}
		item = it
		version, err = r.Carts().BumpVersion(ctx, cart.ID)
		return err
	})
	if err != nil {
		return model.CartItem{}, err
	}

	u.invalidate(ctx, cartCacheKey(cart.ID, version-1))
	return item, nil
}

// UpdateItemQuantity sets the quantity; qty <= 0 removes the line and
// returns nil.
func (u *CartUsecase) UpdateItemQuantity(ctx context.Context, item model.CartItem, qty int64) (*model.CartItem, error) {
	var (
		out     *model.CartItem
		version int64
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		it, err := updateItemQuantity(ctx, r, item, qty)
		if err != nil {
			return err
		}
		out = it
		version, err = r.Carts().BumpVersion(ctx, item.CartID)
		return err
	})
	if err != nil {
		return nil, err
	}

	u.invalidate(ctx, cartCacheKey(item.CartID, version-1))
	return out, nil
}

// MergeSessionCartIntoUser moves every line of the session cart into the
// user's cart and deletes the session cart. Missing session cart is a no-op.
func (u *CartUsecase) MergeSessionCartIntoUser(ctx context.Context, userID int64, sessionToken string) error {
	if userID <= 0 {
		return ErrUnauthenticated()
	}
	if sessionToken == "" {
		return nil
	}

	var stale []string
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		sessionCart, err := r.Carts().FindBySessionToken(ctx, sessionToken)
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		userCart, err := r.Carts().GetOrCreateByUserID(ctx, userID)
		if err != nil {
			return err
		}

		items, err := r.CartItems().ListByCartID(ctx, sessionCart.ID)
		if err != nil {
			return err
		}
		for _, it := range items {
			if _, err := addItem(ctx, r, userCart.ID, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}

		if err := r.Carts().Delete(ctx, sessionCart.ID); err != nil {
			return err
		}
		version, err := r.Carts().BumpVersion(ctx, userCart.ID)
		if err != nil {
			return err
		}
		stale = []string{
			cartCacheKey(sessionCart.ID, sessionCart.Version),
			cartCacheKey(userCart.ID, version-1),
		}
		return nil
	})
	if err != nil {
		return err
	}

	u.invalidate(ctx, stale...)
	return nil
}

func (u *CartUsecase) CartItemsWithProducts(ctx context.Context, cart model.Cart) ([]CartLine, error) {
	var lines []CartLine
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		l, err := cartLines(ctx, r, cart.ID)
		if err != nil {
			return err
		}
		lines = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// TotalAmount sums quantity x snapshot price over the cart.
func (u *CartUsecase) TotalAmount(ctx context.Context, cart model.Cart) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return err
		}
		total = sumSubtotals(items)
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// GetCart returns the principal's cart view, read through the cache.
// Entries are keyed by cart version, so a view built before a mutation
// committed is never served after it.
func (u *CartUsecase) GetCart(ctx context.Context, p model.Principal) (CartView, error) {
	cart, err := u.GetOrCreateCart(ctx, p)
	if err != nil {
		return CartView{}, err
	}

	key := cartCacheKey(cart.ID, cart.Version)
	v, err, _ := u.sfg.Do(key, func() (interface{}, error) {
		// shared by every waiter on key
		sctx := context.WithoutCancel(ctx)

		var cached CartView
		err := u.cache.Get(sctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, repo.ErrCacheMiss) {
			slog.WarnContext(sctx, "cart cache get failed", slog.Int64("cart_id", cart.ID), slog.Any("err", err))
		}

		view, err := u.buildView(sctx, cart.ID)
		if err != nil {
			return CartView{}, err
		}
		if err := u.cache.Set(sctx, cartCacheKey(view.CartID, view.Version), view); err != nil {
			slog.WarnContext(sctx, "cart cache set failed", slog.Int64("cart_id", cart.ID), slog.Any("err", err))
		}
		return view, nil
	})
	if err != nil {
		return CartView{}, err
	}
	return v.(CartView), nil
}

func (u *CartUsecase) AddToCart(ctx context.Context, p model.Principal, in AddCartInput) (CartView, error) {
	cart, err := u.GetOrCreateCart(ctx, p)
	if err != nil {
		return CartView{}, err
	}
	if _, err := u.AddItem(ctx, cart, in.ProductID, in.Quantity); err != nil {
		return CartView{}, err
	}
	return u.buildView(ctx, cart.ID)
}

// UpdateCartItem changes a line of the caller's own cart. Lines of other
// carts are reported as not found.
func (u *CartUsecase) UpdateCartItem(ctx context.Context, p model.Principal, cartItemID int64, qty int64) (CartView, error) {
	if cartItemID <= 0 {
		return CartView{}, ErrValidation("invalid id")
	}

	var cartID, version int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		item, err := ownedCartItem(ctx, r, p, cartItemID)
		if err != nil {
			return err
		}
		cartID = item.CartID
		if _, err := updateItemQuantity(ctx, r, item, qty); err != nil {
			return err
		}
		version, err = r.Carts().BumpVersion(ctx, cartID)
		return err
	})
	if err != nil {
		return CartView{}, err
	}

	u.invalidate(ctx, cartCacheKey(cartID, version-1))
	return u.buildView(ctx, cartID)
}

func (u *CartUsecase) DeleteCartItem(ctx context.Context, p model.Principal, cartItemID int64) (CartView, error) {
	return u.UpdateCartItem(ctx, p, cartItemID, 0)
}

// MergeCart merges the session cart and returns the user's cart.
func (u *CartUsecase) MergeCart(ctx context.Context, userID int64, sessionToken string) (CartView, error) {
	if err := u.MergeSessionCartIntoUser(ctx, userID, sessionToken); err != nil {
		return CartView{}, err
	}
	return u.GetCart(ctx, model.UserPrincipal(userID))
}

// The cart row is read before its lines, so the lines are never older
// than the version recorded on the view.
func (u *CartUsecase) buildView(ctx context.Context, cartID int64) (CartView, error) {
	var (
		cart  model.Cart
		lines []CartLine
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Carts().FindByID(ctx, cartID)
		if err != nil {
			return err
		}
		cart = c
		l, err := cartLines(ctx, r, cartID)
		if err != nil {
			return err
		}
		lines = l
		return nil
	})
	if errors.Is(err, repo.ErrNotFound) {
		return CartView{}, ErrNotFound("cart")
	}
	if err != nil {
		return CartView{}, err
	}
	return toCartView(cart, lines), nil
}

func (u *CartUsecase) invalidate(ctx context.Context, keys ...string) {
	invalidateCartViews(ctx, u.cache, keys...)
}

// Runs after commit, so cache errors are only logged. Dropping the
// superseded key only frees memory; readers already look up the new version.
func invalidateCartViews(ctx context.Context, cache repo.Cache, keys ...string) {
	if len(keys) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := cache.Delete(ctx, keys...); err != nil {
		slog.WarnContext(ctx, "cart cache invalidate failed", slog.Any("keys", keys), slog.Any("err", err))
	}
}

func cartCacheKey(cartID, version int64) string {
	return fmt.Sprintf("cart:%d:%d", cartID, version)
}

func getOrCreateCart(ctx context.Context, r repo.TxRepos, p model.Principal) (model.Cart, error) {
	switch {
	case p.IsUser():
		return r.Carts().GetOrCreateByUserID(ctx, p.UserID)
	case p.IsAnonymous():
		return r.Carts().GetOrCreateBySessionToken(ctx, p.SessionToken)
	default:
		return model.Cart{}, ErrUnauthenticated()
	}
}

func addItem(ctx context.Context, r repo.TxRepos, cartID int64, productID int64, qty int64) (model.CartItem, error) {
	p, err := r.Products().FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.CartItem{}, ErrNotFound("product")
	}
	if err != nil {
		return model.CartItem{}, err
	}
	if !p.IsActive() {
		return model.CartItem{}, ErrNotFound("product")
	}

	return r.CartItems().UpsertByCartAndProduct(ctx, cartID, p.ID, qty, p.Price)
}

func updateItemQuantity(ctx context.Context, r repo.TxRepos, item model.CartItem, qty int64) (*model.CartItem, error) {
	if qty <= 0 {
		err := r.CartItems().DeleteByID(ctx, item.ID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound("cart item")
		}
		return nil, err
	}

	err := r.CartItems().UpdateQuantity(ctx, item.ID, qty)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound("cart item")
	}
	if err != nil {
		return nil, err
	}
	item.Quantity = qty
	return &item, nil
}

func ownedCartItem(ctx context.Context, r repo.TxRepos, p model.Principal, cartItemID int64) (model.CartItem, error) {
	cart, err := getOrCreateCart(ctx, r, p)
	if err != nil {
		return model.CartItem{}, err
	}

	item, err := r.CartItems().FindByID(ctx, cartItemID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.CartItem{}, ErrNotFound("cart item")
	}
	if err != nil {
		return model.CartItem{}, err
	}
	if item.CartID != cart.ID {
		return model.CartItem{}, ErrNotFound("cart item")
	}
	return item, nil
}

func cartLines(ctx context.Context, r repo.TxRepos, cartID int64) ([]CartLine, error) {
	items, err := r.CartItems().ListByCartID(ctx, cartID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := r.Products().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	lines := make([]CartLine, 0, len(items))
	for _, it := range items {
		line := CartLine{Item: it}
		if p, ok := byID[it.ProductID]; ok {
			line.Product = &p
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func sumSubtotals(items []model.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func toCartView(cart model.Cart, lines []CartLine) CartView {
	view := CartView{CartID: cart.ID, Version: cart.Version, Items: make([]CartItemView, 0, len(lines))}

	items := make([]model.CartItem, 0, len(lines))
	for _, l := range lines {
		iv := CartItemView{
			ID:        l.Item.ID,
			ProductID: l.Item.ProductID,
			UnitPrice: l.Item.UnitPrice.StringFixed(2),
			Quantity:  l.Item.Quantity,
			Subtotal:  l.Item.Subtotal().StringFixed(2),
		}
		if l.Product != nil {
			iv.Name = l.Product.Name
			iv.Available = l.Product.IsActive()
		}
		view.Items = append(view.Items, iv)
		items = append(items, l.Item)
	}

	view.TotalAmount = sumSubtotals(items).StringFixed(2)
	return view
}
