package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// WorkflowUsecase applies admin status changes to orders and payments.
type WorkflowUsecase struct {
	tx  repo.TransactionManager
	now func() time.Time
}

// DI
func NewWorkflowUsecase(tx repo.TransactionManager) *WorkflowUsecase {
	return &WorkflowUsecase{tx: tx, now: time.Now}
}

// OrderChanges holds the requested fields; nil means "leave as is".
// Status and StatusID address the same target and must agree.
type OrderChanges struct {
	Status          *string
	StatusID        *int64
	PaymentMethodID *int64
	ShippingAddress *string
	PlacedAt        *time.Time
}

type PaymentChanges struct {
	Status               *string
	TransactionReference *string
	PaidAt               *time.Time
}

// audit before/after snapshots
type orderAuditState struct {
	Status          model.OrderStatus `json:"status"`
	PaymentMethodID *int64            `json:"payment_method_id"`
	ShippingAddress *string           `json:"shipping_address"`
	PlacedAt        *time.Time        `json:"placed_at"`
}

type paymentAuditState struct {
	Status               model.PaymentStatus `json:"status"`
	TransactionReference *string             `json:"transaction_reference"`
	PaidAt               *time.Time          `json:"paid_at"`
}

func (u *WorkflowUsecase) ApplyOrderTransition(ctx context.Context, actorUserID int64, orderID int64, ch OrderChanges) (model.Order, error) {
	if actorUserID <= 0 {
		return model.Order{}, ErrUnauthenticated()
	}
	if orderID <= 0 {
		return model.Order{}, ErrValidation("invalid id")
	}

	target, err := resolveOrderTarget(ch)
	if err != nil {
		return model.Order{}, err
	}
	if ch.ShippingAddress != nil && len([]rune(*ch.ShippingAddress)) > maxShippingAddressLen {
		return model.Order{}, ErrValidation("shipping_address too long")
	}

	var out model.Order
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound("order")
		}
		if err != nil {
			return err
		}

		if ch.PaymentMethodID != nil {
			ok, err := r.PaymentMethods().Exists(ctx, *ch.PaymentMethodID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrValidation("payment method not found")
			}
		}

		before := o
		if target != "" && target != o.Status {
			if !o.Status.CanTransitionTo(target) {
				return ErrTransitionNotAllowed(string(o.Status), string(target))
			}
			o.Status = target
		}
		if ch.PaymentMethodID != nil {
			o.PaymentMethodID = ch.PaymentMethodID
		}
		if ch.ShippingAddress != nil {
			o.ShippingAddress = ch.ShippingAddress
		}
		if ch.PlacedAt != nil {
			o.PlacedAt = ch.PlacedAt
		}

		if err := u.saveOrder(ctx, r, actorUserID, before, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	return out, nil
}

// ApplyPaymentTransition moves a payment along its graph. Marking a payment
// paid stamps paid_at when none is known and advances a pending order to
// paid in the same transaction. A cancelled order can never be paid.
func (u *WorkflowUsecase) ApplyPaymentTransition(ctx context.Context, actorUserID int64, paymentID int64, ch PaymentChanges) (model.Payment, error) {
	if actorUserID <= 0 {
		return model.Payment{}, ErrUnauthenticated()
	}
	if paymentID <= 0 {
		return model.Payment{}, ErrValidation("invalid id")
	}

	var target model.PaymentStatus
	if ch.Status != nil {
		st, err := model.ParsePaymentStatus(strings.TrimSpace(*ch.Status))
		if err != nil {
			return model.Payment{}, ErrValidation("invalid payment status")
		}
		target = st
	}
	if ch.TransactionReference != nil && len(*ch.TransactionReference) > maxTransactionReferenceLen {
		return model.Payment{}, ErrValidation("transaction_reference too long")
	}

	var out model.Payment
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// lock order: order row, then its payment
		ref, err := r.Payments().FindByID(ctx, paymentID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound("payment")
		}
		if err != nil {
			return err
		}

		o, err := r.Orders().FindByIDForUpdate(ctx, ref.OrderID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound("order")
		}
		if err != nil {
			return err
		}

		p, err := r.Payments().FindByIDForUpdate(ctx, paymentID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound("payment")
		}
		if err != nil {
			return err
		}

		before := p
		if target != "" {
			if target != p.Status && !p.Status.CanTransitionTo(target) {
				return ErrTransitionNotAllowed(string(p.Status), string(target))
			}

			if target == model.PaymentStatusPaid {
				if o.Status == model.OrderStatusCancelled {
					return ErrInvalidOperation("cannot mark payment paid for a cancelled order")
				}
				if ch.PaidAt == nil && p.PaidAt == nil {
					now := u.now()
					p.PaidAt = &now
				}
				if o.Status == model.OrderStatusPending {
					orderBefore := o
					o.Status = model.OrderStatusPaid
					if err := u.saveOrder(ctx, r, actorUserID, orderBefore, o); err != nil {
						return err
					}
				}
			}
			p.Status = target
		}
		if ch.TransactionReference != nil {
			p.TransactionReference = ch.TransactionReference
		}
		if ch.PaidAt != nil {
			p.PaidAt = ch.PaidAt
		}

		if err := r.Payments().Save(ctx, p); err != nil {
			return err
		}
		if err := writeAudit(ctx, r, actorUserID, model.AuditActionUpdatePayment, model.AuditResourcePayment, p.ID,
			paymentAuditState{Status: before.Status, TransactionReference: before.TransactionReference, PaidAt: before.PaidAt},
			paymentAuditState{Status: p.Status, TransactionReference: p.TransactionReference, PaidAt: p.PaidAt},
		); err != nil {
			return err
		}
		if err := appendOrderEvent(ctx, r, p.OrderID, model.EventPaymentUpdated, paymentUpdatedEvent{
			PaymentID:   p.ID,
			OrderID:     p.OrderID,
			ActorUserID: actorUserID,
			From:        string(before.Status),
			To:          string(p.Status),
		}); err != nil {
			return err
		}

		out = p
		return nil
	})
	if err != nil {
		return model.Payment{}, err
	}
	return out, nil
}

// saveOrder persists o and records the audit row and event for it.
func (u *WorkflowUsecase) saveOrder(ctx context.Context, r repo.TxRepos, actorUserID int64, before, o model.Order) error {
	if err := r.Orders().Save(ctx, o); err != nil {
		return err
	}
	if err := writeAudit(ctx, r, actorUserID, model.AuditActionUpdateOrder, model.AuditResourceOrder, o.ID,
		orderAuditState{Status: before.Status, PaymentMethodID: before.PaymentMethodID, ShippingAddress: before.ShippingAddress, PlacedAt: before.PlacedAt},
		orderAuditState{Status: o.Status, PaymentMethodID: o.PaymentMethodID, ShippingAddress: o.ShippingAddress, PlacedAt: o.PlacedAt},
	); err != nil {
		return err
	}
	return appendOrderEvent(ctx, r, o.ID, model.EventOrderUpdated, orderUpdatedEvent{
		OrderID:     o.ID,
		ActorUserID: actorUserID,
		From:        string(before.Status),
		To:          string(o.Status),
	})
}

// resolveOrderTarget returns "" when no status change was requested.
func resolveOrderTarget(ch OrderChanges) (model.OrderStatus, error) {
	var byName, byID model.OrderStatus

	if ch.Status != nil {
		st, err := model.ParseOrderStatus(strings.TrimSpace(*ch.Status))
		if err != nil {
			return "", ErrValidation("invalid order status")
		}
		byName = st
	}
	if ch.StatusID != nil {
		st, err := model.OrderStatusByID(*ch.StatusID)
		if err != nil {
			return "", ErrValidation("invalid order status id")
		}
		byID = st
	}

	if byName != "" && byID != "" && byName != byID {
		return "", ErrValidation("order_status and order_status_id do not match")
	}
	if byName != "" {
		return byName, nil
	}
	return byID, nil
}

func writeAudit(ctx context.Context, r repo.TxRepos, actorUserID int64, action model.AuditAction, resource model.AuditResourceType, resourceID int64, before, after interface{}) error {
	b, err := json.Marshal(before)
	if err != nil {
		return err
	}
	a, err := json.Marshal(after)
	if err != nil {
		return err
	}
	return r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actorUserID,
		Action:       action,
		ResourceType: resource,
		ResourceID:   resourceID,
		BeforeJSON:   string(b),
		AfterJSON:    string(a),
		CreatedAt:    time.Now(),
	})
}
