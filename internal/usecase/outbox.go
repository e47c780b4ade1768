package usecase

import (
	"context"
	"encoding/json"
	"strconv"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// Events are keyed by order so a consumer sees one order's history in order.
const aggregateOrder = "order"

type orderPlacedEvent struct {
	OrderID     int64            `json:"order_id"`
	UserID      int64            `json:"user_id"`
	TotalAmount string           `json:"total_amount"`
	PaymentID   int64            `json:"payment_id"`
	Items       []orderEventItem `json:"items"`
}

type orderEventItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type orderUpdatedEvent struct {
	OrderID     int64  `json:"order_id"`
	ActorUserID int64  `json:"actor_user_id"`
	From        string `json:"from_status"`
	To          string `json:"to_status"`
}

type paymentUpdatedEvent struct {
	PaymentID   int64  `json:"payment_id"`
	OrderID     int64  `json:"order_id"`
	ActorUserID int64  `json:"actor_user_id"`
	From        string `json:"from_status"`
	To          string `json:"to_status"`
}

type proofSubmittedEvent struct {
	PaymentID int64  `json:"payment_id"`
	OrderID   int64  `json:"order_id"`
	ProofPath string `json:"proof_path"`
}

func appendOrderEvent(ctx context.Context, r repo.TxRepos, orderID int64, eventType string, payload interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return r.Outbox().Append(ctx, model.OutboxEvent{
		AggregateType: aggregateOrder,
		AggregateID:   strconv.FormatInt(orderID, 10),
		EventType:     eventType,
		Payload:       string(b),
	})
}
