package handler

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// /cart HTTP
type CartHandler struct {
	carts     *usecase.CartUsecase
	checkouts *usecase.CheckoutUsecase
}

// DI
func NewCartHandler(carts *usecase.CartUsecase, checkouts *usecase.CheckoutUsecase) *CartHandler {
	return &CartHandler{carts: carts, checkouts: checkouts}
}

type AddCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity *int64 `json:"quantity"`
}

type CheckoutRequest struct {
	PaymentMethodID int64   `json:"payment_method_id"`
	ShippingAddress *string `json:"shipping_address"`
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
}

type CheckoutResponse struct {
	OrderID     int64  `json:"order_id"`
	PaymentID   int64  `json:"payment_id"`
	TotalAmount string `json:"total_amount"`
}

// g is expected to run middleware.Principal already.
func (h *CartHandler) RegisterRoutes(g *echo.Group) {
	cart := g.Group("/cart")

	cart.POST("/session", h.newSession)
	cart.GET("", h.getCart)
	cart.POST("/items", h.addItem)
	cart.PATCH("/items/:id", h.patchItem)
	cart.DELETE("/items/:id", h.deleteItem)
	cart.POST("/merge", h.merge, middleware.RequireUser())
	cart.POST("/checkout", h.checkout, middleware.RequireUser())
}

func (h *CartHandler) newSession(c echo.Context) error {
	return c.JSON(http.StatusCreated, SessionResponse{SessionID: uuid.NewString()})
}

func (h *CartHandler) getCart(c echo.Context) error {
	out, err := h.carts.GetCart(c.Request().Context(), middleware.PrincipalFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) addItem(c echo.Context) error {
	var req AddCartRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.carts.AddToCart(c.Request().Context(), middleware.PrincipalFrom(c), usecase.AddCartInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) patchItem(c echo.Context) error {
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req UpdateCartItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Quantity == nil {
		return writeError(c, usecase.ErrValidation("quantity is required"))
	}

	out, err := h.carts.UpdateCartItem(c.Request().Context(), middleware.PrincipalFrom(c), itemID, *req.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) deleteItem(c echo.Context) error {
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.carts.DeleteCartItem(c.Request().Context(), middleware.PrincipalFrom(c), itemID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) merge(c echo.Context) error {
	userID, _ := middleware.UserID(c)
	sid := middleware.SessionID(c)
	if sid == "" {
		return writeError(c, usecase.ErrValidation(middleware.SessionHeader+" is required"))
	}

	out, err := h.carts.MergeCart(c.Request().Context(), userID, sid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) checkout(c echo.Context) error {
	userID, _ := middleware.UserID(c)

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	res, err := h.checkouts.Checkout(c.Request().Context(), userID, usecase.CheckoutInput{
		PaymentMethodID: req.PaymentMethodID,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, CheckoutResponse{
		OrderID:     res.OrderID,
		PaymentID:   res.PaymentID,
		TotalAmount: res.TotalAmount.StringFixed(2),
	})
}
