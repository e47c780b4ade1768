package model

import "fmt"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Legal order edges. Terminal states map to an empty set.
var orderTransitions = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:   {OrderStatusPaid: true, OrderStatusCancelled: true},
	OrderStatusPaid:      {OrderStatusShipped: true, OrderStatusCancelled: true},
	OrderStatusShipped:   {OrderStatusDelivered: true},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

// Order statuses are addressable by a stable numeric id as well as by name.
var orderStatusIDs = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(orderStatusIDs))
	copy(out, orderStatusIDs)
	return out
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if _, ok := orderTransitions[st]; !ok {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return st, nil
}

func OrderStatusByID(id int64) (OrderStatus, error) {
	if id < 1 || id > int64(len(orderStatusIDs)) {
		return "", fmt.Errorf("unknown order status id %d", id)
	}
	return orderStatusIDs[id-1], nil
}

// ID returns the numeric id of the status, or 0 for an unknown value.
func (s OrderStatus) ID() int64 {
	for i, v := range orderStatusIDs {
		if v == s {
			return int64(i + 1)
		}
	}
	return 0
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

func (s OrderStatus) IsTerminal() bool {
	return s.Valid() && len(orderTransitions[s]) == 0
}

// CanTransitionTo reports whether s -> next is a listed edge.
// A self transition is not an edge; callers treat it as "no change".
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return orderTransitions[s][next]
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

var paymentTransitions = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentStatusPending:   {PaymentStatusPaid: true, PaymentStatusFailed: true, PaymentStatusCancelled: true},
	PaymentStatusFailed:    {PaymentStatusPaid: true, PaymentStatusCancelled: true},
	PaymentStatusPaid:      {},
	PaymentStatusCancelled: {},
}

func PaymentStatuses() []PaymentStatus {
	return []PaymentStatus{
		PaymentStatusPending,
		PaymentStatusPaid,
		PaymentStatusFailed,
		PaymentStatusCancelled,
	}
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	st := PaymentStatus(s)
	if _, ok := paymentTransitions[st]; !ok {
		return "", fmt.Errorf("unknown payment status %q", s)
	}
	return st, nil
}

func (s PaymentStatus) Valid() bool {
	_, ok := paymentTransitions[s]
	return ok
}

func (s PaymentStatus) IsTerminal() bool {
	return s.Valid() && len(paymentTransitions[s]) == 0
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return paymentTransitions[s][next]
}
