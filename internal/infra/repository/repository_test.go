package repository

import (
	"context"
	"testing"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartItemUpsert_AddsQuantityAndRefreshesPrice(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	r := NewRepos(db)
	p := testutil.SeedProduct(t, db, "Widget", "10.00", 5)

	cart, err := r.Carts().GetOrCreateByUserID(ctx, 1)
	require.NoError(t, err)

	first, err := r.CartItems().UpsertByCartAndProduct(ctx, cart.ID, p.ID, 2, decimal.RequireFromString("10.00"))
	require.NoError(t, err)
	second, err := r.CartItems().UpsertByCartAndProduct(ctx, cart.ID, p.ID, 3, decimal.RequireFromString("12.00"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(5), second.Quantity)
	assert.True(t, second.UnitPrice.Equal(decimal.RequireFromString("12.00")))
	assert.Equal(t, int64(1), testutil.Count(t, db, &model.CartItem{}))
}

func TestCartGetOrCreate_ReturnsSameCart(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	r := NewRepos(db)

	a, err := r.Carts().GetOrCreateBySessionToken(ctx, "sess-1")
	require.NoError(t, err)
	b, err := r.Carts().GetOrCreateBySessionToken(ctx, "sess-1")
	require.NoError(t, err)
	u, err := r.Carts().GetOrCreateByUserID(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, u.ID)
	assert.Nil(t, a.UserID)
	require.NotNil(t, u.UserID)
	assert.Equal(t, int64(1), *u.UserID)
}

func TestCartDelete_RemovesItems(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	r := NewRepos(db)
	p := testutil.SeedProduct(t, db, "Widget", "1.00", 5)

	cart, err := r.Carts().GetOrCreateBySessionToken(ctx, "sess-1")
	require.NoError(t, err)
	_, err = r.CartItems().UpsertByCartAndProduct(ctx, cart.ID, p.ID, 1, p.Price)
	require.NoError(t, err)

	require.NoError(t, r.Carts().Delete(ctx, cart.ID))
	assert.Equal(t, int64(0), testutil.Count(t, db, &model.CartItem{}))
	_, err = r.Carts().FindByID(ctx, cart.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)
	assert.ErrorIs(t, r.Carts().Delete(ctx, cart.ID), repo.ErrNotFound)
}

func TestDecreaseStockIfEnough(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	inv := NewInventoryGormRepository(db)
	p := testutil.SeedProduct(t, db, "Widget", "1.00", 3)

	ok, err := inv.DecreaseStockIfEnough(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = inv.DecreaseStockIfEnough(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(1), testutil.Stock(t, db, p.ID))

	ok, err = inv.DecreaseStockIfEnough(ctx, p.ID, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(0), testutil.Stock(t, db, p.ID))
}

func TestFindByIDsForUpdate_AscendingOrder(t *testing.T) {
	db := testutil.NewDB(t)
	a := testutil.SeedProduct(t, db, "A", "1.00", 1)
	b := testutil.SeedProduct(t, db, "B", "1.00", 1)
	c := testutil.SeedProduct(t, db, "C", "1.00", 1)

	got, err := NewProductGormRepository(db).FindByIDsForUpdate(context.Background(), []int64{c.ID, a.ID, b.ID, a.ID})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{a.ID, b.ID, c.ID}, []int64{got[0].ID, got[1].ID, got[2].ID})
}

func TestOrderListByUserID_NewestFirst(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	orders := NewOrderGormRepository(db)

	var ids []int64
	for i := 0; i < 3; i++ {
		o, err := orders.Create(ctx, model.Order{
			UserID:      7,
			TotalAmount: decimal.NewFromInt(int64(i + 1)),
			Status:      model.OrderStatusPending,
		})
		require.NoError(t, err)
		ids = append(ids, o.ID)
	}
	_, err := orders.Create(ctx, model.Order{UserID: 8, TotalAmount: decimal.NewFromInt(1), Status: model.OrderStatusPending})
	require.NoError(t, err)

	page1, total, err := orders.ListByUserID(ctx, 7, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page1, 2)
	assert.Equal(t, ids[2], page1[0].ID)
	assert.Equal(t, ids[1], page1[1].ID)

	page2, _, err := orders.ListByUserID(ctx, 7, 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, ids[0], page2[0].ID)
}

func TestOrderListByUserID_DefaultAndMaxLimit(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	orders := NewOrderGormRepository(db)

	for i := 0; i < 25; i++ {
		_, err := orders.Create(ctx, model.Order{UserID: 7, TotalAmount: decimal.NewFromInt(1), Status: model.OrderStatusPending})
		require.NoError(t, err)
	}

	got, total, err := orders.ListByUserID(ctx, 7, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	assert.Len(t, got, 20)

	got, _, err = orders.ListByUserID(ctx, 7, 1, 500)
	require.NoError(t, err)
	assert.Len(t, got, 25)

	page, limit := normalizePage(3, 101)
	assert.Equal(t, 3, page)
	assert.Equal(t, 100, limit)
}

func TestCartItemDeleteByIDs_OnlyListedLinesOfCart(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	r := NewRepos(db)
	a := testutil.SeedProduct(t, db, "A", "1.00", 5)
	b := testutil.SeedProduct(t, db, "B", "1.00", 5)

	cart, err := r.Carts().GetOrCreateByUserID(ctx, 1)
	require.NoError(t, err)
	other, err := r.Carts().GetOrCreateByUserID(ctx, 2)
	require.NoError(t, err)

	ordered, err := r.CartItems().UpsertByCartAndProduct(ctx, cart.ID, a.ID, 1, a.Price)
	require.NoError(t, err)
	late, err := r.CartItems().UpsertByCartAndProduct(ctx, cart.ID, b.ID, 1, b.Price)
	require.NoError(t, err)
	foreign, err := r.CartItems().UpsertByCartAndProduct(ctx, other.ID, a.ID, 1, a.Price)
	require.NoError(t, err)

	require.NoError(t, r.CartItems().DeleteByIDs(ctx, cart.ID, []int64{ordered.ID, foreign.ID}))
	require.NoError(t, r.CartItems().DeleteByIDs(ctx, cart.ID, nil))

	left, err := r.CartItems().ListByCartID(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, late.ID, left[0].ID)

	_, err = r.CartItems().FindByID(ctx, foreign.ID)
	assert.NoError(t, err)
}

func TestCartBumpVersion(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	r := NewRepos(db)

	cart, err := r.Carts().GetOrCreateBySessionToken(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), cart.Version)

	v, err := r.Carts().BumpVersion(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	v, err = r.Carts().BumpVersion(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	reloaded, err := r.Carts().FindByID(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), reloaded.Version)

	_, err = r.Carts().BumpVersion(ctx, cart.ID+1000)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestOutbox_ListAndMark(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	outbox := NewOutboxGormRepository(db)

	for _, typ := range []string{model.EventOrderPlaced, model.EventPaymentUpdated} {
		require.NoError(t, outbox.Append(ctx, model.OutboxEvent{
			AggregateType: "order",
			AggregateID:   "1",
			EventType:     typ,
			Payload:       "{}",
		}))
	}

	events, err := outbox.ListUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.EventOrderPlaced, events[0].EventType)

	require.NoError(t, outbox.MarkPublished(ctx, events[0].ID, time.Now()))
	events, err = outbox.ListUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventPaymentUpdated, events[0].EventType)

	assert.ErrorIs(t, outbox.MarkPublished(ctx, 999, time.Now()), repo.ErrNotFound)
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, db, "Widget", "1.00", 2)

	err := NewTxManagerGorm(db).WithinTx(ctx, func(r repo.TxRepos) error {
		ok, err := r.Inventory().DecreaseStockIfEnough(ctx, p.ID, 2)
		require.NoError(t, err)
		require.True(t, ok)
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, int64(2), testutil.Stock(t, db, p.ID))
}
