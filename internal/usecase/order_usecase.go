package usecase

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

const defaultListLimit = 20

// OrderUsecase serves the read side: buyer order history and the admin
// order and payment lists.
type OrderUsecase struct {
	tx    repo.TransactionManager
	blobs BlobStore
}

// DI
func NewOrderUsecase(tx repo.TransactionManager, blobs BlobStore) *OrderUsecase {
	return &OrderUsecase{tx: tx, blobs: blobs}
}

type OrderItemOutput struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

type PaymentOutput struct {
	ID                   int64      `json:"id"`
	OrderID              int64      `json:"order_id"`
	PaymentMethodID      int64      `json:"payment_method_id"`
	Amount               string     `json:"amount"`
	TransactionReference *string    `json:"transaction_reference"`
	ProofPath            *string    `json:"proof_path"`
	ProofURL             *string    `json:"proof_url"`
	Status               string     `json:"status"`
	PaidAt               *time.Time `json:"paid_at"`
	CreatedAt            time.Time  `json:"created_at"`
}

type OrderOutput struct {
	ID              int64             `json:"id"`
	UserID          int64             `json:"user_id"`
	Status          string            `json:"status"`
	StatusID        int64             `json:"status_id"`
	TotalAmount     string            `json:"total_amount"`
	PaymentMethodID *int64            `json:"payment_method_id"`
	ShippingAddress *string           `json:"shipping_address"`
	PlacedAt        *time.Time        `json:"placed_at"`
	CreatedAt       time.Time         `json:"created_at"`
	Items           []OrderItemOutput `json:"items"`
	Payments        []PaymentOutput   `json:"payments"`
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

type PaymentListOutput struct {
	Items []PaymentOutput `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, page, limit int) (OrderListOutput, error) {
	if userID <= 0 {
		return OrderListOutput{}, ErrUnauthenticated()
	}
	page, limit, err := checkPage(page, limit)
	if err != nil {
		return OrderListOutput{}, err
	}

	var out OrderListOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListByUserID(ctx, userID, page, limit)
		if err != nil {
			return err
		}
		items, err := u.toOrderOutputs(ctx, r, orders)
		if err != nil {
			return err
		}
		out = OrderListOutput{Items: items, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

// GetMyOrder hides other buyers' orders behind not found.
func (u *OrderUsecase) GetMyOrder(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, ErrUnauthenticated()
	}
	return u.getOrder(ctx, orderID, func(o model.Order) bool { return o.UserID == userID })
}

func (u *OrderUsecase) AdminListOrders(ctx context.Context, f repo.AdminOrderListFilter) (OrderListOutput, error) {
	page, limit, err := checkPage(f.Page, f.Limit)
	if err != nil {
		return OrderListOutput{}, err
	}
	f.Page, f.Limit = page, limit
	if f.Status != "" {
		if _, err := model.ParseOrderStatus(f.Status); err != nil {
			return OrderListOutput{}, ErrValidation("invalid status")
		}
	}

	var out OrderListOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return err
		}
		items, err := u.toOrderOutputs(ctx, r, orders)
		if err != nil {
			return err
		}
		out = OrderListOutput{Items: items, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) AdminGetOrder(ctx context.Context, orderID int64) (OrderOutput, error) {
	return u.getOrder(ctx, orderID, func(model.Order) bool { return true })
}

func (u *OrderUsecase) AdminListPayments(ctx context.Context, f repo.AdminPaymentListFilter) (PaymentListOutput, error) {
	page, limit, err := checkPage(f.Page, f.Limit)
	if err != nil {
		return PaymentListOutput{}, err
	}
	f.Page, f.Limit = page, limit
	if f.Status != "" {
		if _, err := model.ParsePaymentStatus(f.Status); err != nil {
			return PaymentListOutput{}, ErrValidation("invalid status")
		}
	}

	var out PaymentListOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		payments, total, err := r.Payments().ListAdmin(ctx, f)
		if err != nil {
			return err
		}
		items := make([]PaymentOutput, 0, len(payments))
		for _, p := range payments {
			items = append(items, u.toPaymentOutput(p))
		}
		out = PaymentListOutput{Items: items, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return PaymentListOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) AdminGetPayment(ctx context.Context, paymentID int64) (PaymentOutput, error) {
	if paymentID <= 0 {
		return PaymentOutput{}, ErrValidation("invalid id")
	}

	var out PaymentOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Payments().FindByID(ctx, paymentID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound("payment")
		}
		if err != nil {
			return err
		}
		out = u.toPaymentOutput(p)
		return nil
	})
	if err != nil {
		return PaymentOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) getOrder(ctx context.Context, orderID int64, visible func(model.Order) bool) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, ErrValidation("invalid id")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound("order")
		}
		if err != nil {
			return err
		}
		if !visible(o) {
			return ErrNotFound("order")
		}

		outs, err := u.toOrderOutputs(ctx, r, []model.Order{o})
		if err != nil {
			return err
		}
		out = outs[0]
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) toOrderOutputs(ctx context.Context, r repo.TxRepos, orders []model.Order) ([]OrderOutput, error) {
	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		payments, err := r.Payments().ListByOrderID(ctx, o.ID)
		if err != nil {
			return nil, err
		}

		out := OrderOutput{
			ID:              o.ID,
			UserID:          o.UserID,
			Status:          string(o.Status),
			StatusID:        o.Status.ID(),
			TotalAmount:     o.TotalAmount.StringFixed(2),
			PaymentMethodID: o.PaymentMethodID,
			ShippingAddress: o.ShippingAddress,
			PlacedAt:        o.PlacedAt,
			CreatedAt:       o.CreatedAt,
			Items:           make([]OrderItemOutput, 0, len(items)),
			Payments:        make([]PaymentOutput, 0, len(payments)),
		}
		for _, it := range items {
			out.Items = append(out.Items, OrderItemOutput{
				ID:        it.ID,
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				UnitPrice: it.UnitPrice.StringFixed(2),
				Subtotal:  it.Subtotal.StringFixed(2),
			})
		}
		for _, p := range payments {
			out.Payments = append(out.Payments, u.toPaymentOutput(p))
		}
		outs = append(outs, out)
	}
	return outs, nil
}

func (u *OrderUsecase) toPaymentOutput(p model.Payment) PaymentOutput {
	out := PaymentOutput{
		ID:                   p.ID,
		OrderID:              p.OrderID,
		PaymentMethodID:      p.PaymentMethodID,
		Amount:               p.Amount.StringFixed(2),
		TransactionReference: p.TransactionReference,
		ProofPath:            p.ProofPath,
		Status:               string(p.Status),
		PaidAt:               p.PaidAt,
		CreatedAt:            p.CreatedAt,
	}
	if p.ProofPath != nil && u.blobs != nil {
		url := u.blobs.URL(*p.ProofPath)
		out.ProofURL = &url
	}
	return out
}

// checkPage applies defaults to zero values and rejects the rest.
func checkPage(page, limit int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = defaultListLimit
	}
	if page < 1 {
		return 0, 0, ErrValidation("invalid page")
	}
	if limit < 1 || limit > 100 {
		return 0, 0, ErrValidation("invalid limit")
	}
	return page, limit, nil
}
