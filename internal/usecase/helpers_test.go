package usecase

import (
	"context"
	"testing"

	"storefront/internal/domain/model"
	"storefront/internal/infra/blob"
	"storefront/internal/infra/cache"
	infrarepo "storefront/internal/infra/repository"
	repo "storefront/internal/repository"
	"storefront/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db       *gorm.DB
	blobs    *blob.LocalStore
	cart     *CartUsecase
	checkout *CheckoutUsecase
	workflow *WorkflowUsecase
	proofs   *PaymentProofUsecase
	orders   *OrderUsecase
	pm       model.PaymentMethod
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	tx := infrarepo.NewTxManagerGorm(db)
	blobs := blob.NewLocalStore(t.TempDir(), "/api/v1/proofs")

	return &testEnv{
		db:       db,
		blobs:    blobs,
		cart:     NewCartUsecase(tx, cache.Nop{}),
		checkout: NewCheckoutUsecase(tx, cache.Nop{}),
		workflow: NewWorkflowUsecase(tx),
		proofs:   NewPaymentProofUsecase(tx, blobs),
		orders:   NewOrderUsecase(tx, blobs),
		pm:       testutil.SeedPaymentMethod(t, db),
	}
}

// fill puts qty of each product into the user's cart.
func (e *testEnv) fill(t *testing.T, userID int64, lines map[int64]int64) model.Cart {
	t.Helper()
	ctx := context.Background()

	cart, err := e.cart.GetOrCreateCart(ctx, model.UserPrincipal(userID))
	require.NoError(t, err)
	for productID, qty := range lines {
		_, err := e.cart.AddItem(ctx, cart, productID, qty)
		require.NoError(t, err)
	}
	return cart
}

// placeOrder checks out a one-line cart and returns the order.
func (e *testEnv) placeOrder(t *testing.T, userID int64) model.Order {
	t.Helper()

	p := testutil.SeedProduct(t, e.db, "Widget", "10.00", 10)
	e.fill(t, userID, map[int64]int64{p.ID: 2})

	res, err := e.checkout.Checkout(context.Background(), userID, CheckoutInput{PaymentMethodID: e.pm.ID})
	require.NoError(t, err)

	var o model.Order
	require.NoError(t, e.db.First(&o, res.OrderID).Error)
	return o
}

func (e *testEnv) latestPayment(t *testing.T, orderID int64) model.Payment {
	t.Helper()

	var p model.Payment
	require.NoError(t, e.db.Where("order_id = ?", orderID).Order("id desc").First(&p).Error)
	return p
}

func (e *testEnv) reloadOrder(t *testing.T, id int64) model.Order {
	t.Helper()

	var o model.Order
	require.NoError(t, e.db.First(&o, id).Error)
	return o
}

func (e *testEnv) setOrderStatus(t *testing.T, id int64, st model.OrderStatus) {
	t.Helper()
	require.NoError(t, e.db.Model(&model.Order{}).Where("id = ?", id).Update("status", st).Error)
}

func requireKind(t *testing.T, err error, kind ErrorKind) *Error {
	t.Helper()

	require.Error(t, err)
	ue, ok := AsError(err)
	require.True(t, ok, "expected usecase error, got %v", err)
	require.Equal(t, kind, ue.Kind, ue.Message)
	return ue
}

func ptr[T any](v T) *T {
	return &v
}

// hookedTx lets a test substitute repositories inside each transaction.
type hookedTx struct {
	inner repo.TransactionManager
	wrap  func(r repo.TxRepos) repo.TxRepos
}

func (h hookedTx) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return h.inner.WithinTx(ctx, func(r repo.TxRepos) error {
		return fn(h.wrap(r))
	})
}
