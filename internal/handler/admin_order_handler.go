package handler

import (
	"net/http"
	"time"

	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminOrderHandler struct {
	orders   *usecase.OrderUsecase
	workflow *usecase.WorkflowUsecase
}

// DI
func NewAdminOrderHandler(orders *usecase.OrderUsecase, workflow *usecase.WorkflowUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{orders: orders, workflow: workflow}
}

type AdminOrderUpdateRequest struct {
	OrderStatus     *string    `json:"order_status"`
	OrderStatusID   *int64     `json:"order_status_id"`
	PaymentMethodID *int64     `json:"payment_method_id"`
	ShippingAddress *string    `json:"shipping_address"`
	PlacedAt        *time.Time `json:"placed_at"`
}

type AdminPaymentUpdateRequest struct {
	Status               *string    `json:"status"`
	TransactionReference *string    `json:"transaction_reference"`
	PaidAt               *time.Time `json:"paid_at"`
}

func (h *AdminOrderHandler) RegisterRoutes(g *echo.Group) {
	admin := g.Group("/admin", middleware.AdminRoleGuard())

	admin.GET("/orders", h.listOrders)
	admin.GET("/orders/:id", h.showOrder)
	admin.PATCH("/orders/:id", h.updateOrder)

	admin.GET("/payments", h.listPayments)
	admin.GET("/payments/:id", h.showPayment)
	admin.PATCH("/payments/:id", h.updatePayment)
}

func (h *AdminOrderHandler) listOrders(c echo.Context) error {
	page, limit, ok := pageQuery(c)
	if !ok {
		return badRequest(c, "invalid page or limit")
	}
	userID, ok := optionalInt64Query(c, "user_id")
	if !ok {
		return badRequest(c, "invalid user_id")
	}

	out, err := h.orders.AdminListOrders(c.Request().Context(), repository.AdminOrderListFilter{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
		UserID: userID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) showOrder(c echo.Context) error {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.orders.AdminGetOrder(c.Request().Context(), orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) updateOrder(c echo.Context) error {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req AdminOrderUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	// acting admin goes to the audit log
	adminID, _ := middleware.UserID(c)

	ctx := c.Request().Context()
	if _, err := h.workflow.ApplyOrderTransition(ctx, adminID, orderID, usecase.OrderChanges{
		Status:          req.OrderStatus,
		StatusID:        req.OrderStatusID,
		PaymentMethodID: req.PaymentMethodID,
		ShippingAddress: req.ShippingAddress,
		PlacedAt:        req.PlacedAt,
	}); err != nil {
		return writeError(c, err)
	}

	out, err := h.orders.AdminGetOrder(ctx, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) listPayments(c echo.Context) error {
	page, limit, ok := pageQuery(c)
	if !ok {
		return badRequest(c, "invalid page or limit")
	}
	orderID, ok := optionalInt64Query(c, "order_id")
	if !ok {
		return badRequest(c, "invalid order_id")
	}

	out, err := h.orders.AdminListPayments(c.Request().Context(), repository.AdminPaymentListFilter{
		Page:    page,
		Limit:   limit,
		Status:  c.QueryParam("status"),
		OrderID: orderID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) showPayment(c echo.Context) error {
	paymentID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.orders.AdminGetPayment(c.Request().Context(), paymentID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) updatePayment(c echo.Context) error {
	paymentID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req AdminPaymentUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	adminID, _ := middleware.UserID(c)

	ctx := c.Request().Context()
	if _, err := h.workflow.ApplyPaymentTransition(ctx, adminID, paymentID, usecase.PaymentChanges{
		Status:               req.Status,
		TransactionReference: req.TransactionReference,
		PaidAt:               req.PaidAt,
	}); err != nil {
		return writeError(c, err)
	}

	out, err := h.orders.AdminGetPayment(ctx, paymentID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
