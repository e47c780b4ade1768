package usecase

import (
	"context"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminID = int64(900)

func TestApplyPaymentTransition_PaidCascadesPendingOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	o := env.placeOrder(t, 1)
	p := env.latestPayment(t, o.ID)

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	env.workflow.now = func() time.Time { return fixed }

	out, err := env.workflow.ApplyPaymentTransition(ctx, adminID, p.ID, PaymentChanges{Status: ptr("paid")})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, out.Status)
	require.NotNil(t, out.PaidAt)
	assert.True(t, fixed.Equal(*out.PaidAt))

	stored := env.latestPayment(t, o.ID)
	assert.Equal(t, model.PaymentStatusPaid, stored.Status)
	assert.NotNil(t, stored.PaidAt)
	assert.Equal(t, model.OrderStatusPaid, env.reloadOrder(t, o.ID).Status)

	var logs []model.AuditLog
	require.NoError(t, env.db.Order("id asc").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, model.AuditActionUpdateOrder, logs[0].Action)
	assert.Contains(t, logs[0].BeforeJSON, `"status":"pending"`)
	assert.Contains(t, logs[0].AfterJSON, `"status":"paid"`)
	assert.Equal(t, model.AuditActionUpdatePayment, logs[1].Action)
	assert.Equal(t, adminID, logs[1].ActorUserID)

	var events []model.OutboxEvent
	require.NoError(t, env.db.Order("id asc").Find(&events).Error)
	types := make([]string, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.EventType)
	}
	assert.Equal(t, []string{model.EventOrderPlaced, model.EventOrderUpdated, model.EventPaymentUpdated}, types)
}

func TestApplyPaymentTransition_ShippedOrderIsNotRegressed(t *testing.T) {
	env := newTestEnv(t)
	o := env.placeOrder(t, 1)
	env.setOrderStatus(t, o.ID, model.OrderStatusShipped)
	p := env.latestPayment(t, o.ID)

	out, err := env.workflow.ApplyPaymentTransition(context.Background(), adminID, p.ID, PaymentChanges{Status: ptr("paid")})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, out.Status)
	assert.Equal(t, model.OrderStatusShipped, env.reloadOrder(t, o.ID).Status)
}

func TestApplyPaymentTransition_CancelledOrderCannotBePaid(t *testing.T) {
	env := newTestEnv(t)
	o := env.placeOrder(t, 1)
	env.setOrderStatus(t, o.ID, model.OrderStatusCancelled)
	p := env.latestPayment(t, o.ID)

	_, err := env.workflow.ApplyPaymentTransition(context.Background(), adminID, p.ID, PaymentChanges{
		Status:               ptr("paid"),
		TransactionReference: ptr("TX-1"),
	})
	requireKind(t, err, KindInvalidOperation)

	after := env.latestPayment(t, o.ID)
	assert.Equal(t, model.PaymentStatusPending, after.Status)
	assert.Nil(t, after.PaidAt)
	assert.Nil(t, after.TransactionReference)
	assert.Equal(t, model.OrderStatusCancelled, env.reloadOrder(t, o.ID).Status)
	assert.Equal(t, int64(0), testutil.Count(t, env.db, &model.AuditLog{}))
}

func TestApplyPaymentTransition_GraphAndPaidAt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	o := env.placeOrder(t, 1)
	p := env.latestPayment(t, o.ID)

	out, err := env.workflow.ApplyPaymentTransition(ctx, adminID, p.ID, PaymentChanges{Status: ptr("failed")})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusFailed, out.Status)
	assert.Equal(t, model.OrderStatusPending, env.reloadOrder(t, o.ID).Status)

	explicit := time.Date(2025, 12, 24, 10, 0, 0, 0, time.UTC)
	out, err = env.workflow.ApplyPaymentTransition(ctx, adminID, p.ID, PaymentChanges{Status: ptr("paid"), PaidAt: &explicit})
	require.NoError(t, err)
	require.NotNil(t, out.PaidAt)
	assert.True(t, explicit.Equal(*out.PaidAt))

	// paid is terminal
	_, err = env.workflow.ApplyPaymentTransition(ctx, adminID, p.ID, PaymentChanges{Status: ptr("failed")})
	ue := requireKind(t, err, KindTransitionNotAllowed)
	assert.Equal(t, "paid", ue.From)
	assert.Equal(t, "failed", ue.To)

	// same status again is not a transition; previous paid_at is kept
	out, err = env.workflow.ApplyPaymentTransition(ctx, adminID, p.ID, PaymentChanges{Status: ptr("paid"), TransactionReference: ptr("TX-9")})
	require.NoError(t, err)
	require.NotNil(t, out.PaidAt)
	assert.True(t, explicit.Equal(*out.PaidAt))
	require.NotNil(t, out.TransactionReference)
	assert.Equal(t, "TX-9", *out.TransactionReference)
}

func TestApplyPaymentTransition_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.workflow.ApplyPaymentTransition(ctx, 0, 1, PaymentChanges{})
	requireKind(t, err, KindUnauthenticated)

	_, err = env.workflow.ApplyPaymentTransition(ctx, adminID, 1, PaymentChanges{Status: ptr("refunded")})
	requireKind(t, err, KindValidation)

	_, err = env.workflow.ApplyPaymentTransition(ctx, adminID, 12345, PaymentChanges{Status: ptr("paid")})
	requireKind(t, err, KindNotFound)
}

func TestApplyOrderTransition_FollowsGraph(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	o := env.placeOrder(t, 1)

	_, err := env.workflow.ApplyOrderTransition(ctx, adminID, o.ID, OrderChanges{Status: ptr("shipped")})
	ue := requireKind(t, err, KindTransitionNotAllowed)
	assert.Equal(t, "pending", ue.From)
	assert.Equal(t, "shipped", ue.To)
	assert.Equal(t, model.OrderStatusPending, env.reloadOrder(t, o.ID).Status)

	out, err := env.workflow.ApplyOrderTransition(ctx, adminID, o.ID, OrderChanges{Status: ptr("paid")})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, out.Status)

	// by id: 3 = shipped
	out, err = env.workflow.ApplyOrderTransition(ctx, adminID, o.ID, OrderChanges{StatusID: ptr(int64(3))})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, out.Status)

	out, err = env.workflow.ApplyOrderTransition(ctx, adminID, o.ID, OrderChanges{Status: ptr("delivered"), StatusID: ptr(int64(4))})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusDelivered, out.Status)

	_, err = env.workflow.ApplyOrderTransition(ctx, adminID, o.ID, OrderChanges{Status: ptr("cancelled")})
	requireKind(t, err, KindTransitionNotAllowed)
	assert.Equal(t, model.OrderStatusDelivered, env.reloadOrder(t, o.ID).Status)
}

func TestApplyOrderTransition_SameStatusStillAppliesFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	o := env.placeOrder(t, 1)
	other := testutil.SeedPaymentMethod(t, env.db)
	placed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	out, err := env.workflow.ApplyOrderTransition(ctx, adminID, o.ID, OrderChanges{
		Status:          ptr("pending"),
		PaymentMethodID: &other.ID,
		ShippingAddress: ptr("New address"),
		PlacedAt:        &placed,
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, out.Status)

	stored := env.reloadOrder(t, o.ID)
	require.NotNil(t, stored.PaymentMethodID)
	assert.Equal(t, other.ID, *stored.PaymentMethodID)
	require.NotNil(t, stored.ShippingAddress)
	assert.Equal(t, "New address", *stored.ShippingAddress)
	require.NotNil(t, stored.PlacedAt)
	assert.True(t, placed.Equal(*stored.PlacedAt))

	var log model.AuditLog
	require.NoError(t, env.db.Where("resource_type = ? AND resource_id = ?", model.AuditResourceOrder, o.ID).First(&log).Error)
	assert.Contains(t, log.AfterJSON, "New address")
}

func TestApplyOrderTransition_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	o := env.placeOrder(t, 1)

	_, err := env.workflow.ApplyOrderTransition(ctx, adminID, o.ID, OrderChanges{Status: ptr("paid"), StatusID: ptr(int64(5))})
	requireKind(t, err, KindValidation)

	_, err = env.workflow.ApplyOrderTransition(ctx, adminID, o.ID, OrderChanges{Status: ptr("refunded")})
	requireKind(t, err, KindValidation)

	_, err = env.workflow.ApplyOrderTransition(ctx, adminID, o.ID, OrderChanges{StatusID: ptr(int64(9))})
	requireKind(t, err, KindValidation)

	_, err = env.workflow.ApplyOrderTransition(ctx, adminID, o.ID, OrderChanges{PaymentMethodID: ptr(int64(777))})
	requireKind(t, err, KindValidation)

	_, err = env.workflow.ApplyOrderTransition(ctx, adminID, 4242, OrderChanges{Status: ptr("paid")})
	requireKind(t, err, KindNotFound)

	_, err = env.workflow.ApplyOrderTransition(ctx, 0, o.ID, OrderChanges{})
	requireKind(t, err, KindUnauthenticated)
}
