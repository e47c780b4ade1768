package handler

import (
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

const proofFormField = "proof"

// Buyer order history and payment proof upload.
type OrderHandler struct {
	orders *usecase.OrderUsecase
	proofs *usecase.PaymentProofUsecase
}

// DI
func NewOrderHandler(orders *usecase.OrderUsecase, proofs *usecase.PaymentProofUsecase) *OrderHandler {
	return &OrderHandler{orders: orders, proofs: proofs}
}

type ProofResponse struct {
	PaymentID            int64   `json:"payment_id"`
	OrderID              int64   `json:"order_id"`
	PaymentMethodID      int64   `json:"payment_method_id"`
	Status               string  `json:"status"`
	TransactionReference *string `json:"transaction_reference"`
	ProofPath            string  `json:"proof_path"`
	ProofURL             string  `json:"proof_url"`
}

func (h *OrderHandler) RegisterRoutes(g *echo.Group) {
	orders := g.Group("/orders", middleware.RequireUser())

	orders.GET("", h.list)
	orders.GET("/:id", h.show)
	orders.POST("/:id/payment-proof", h.submitProof)

	// proof_url points here; buyer of the order or admin only
	g.GET("/proofs/*", h.downloadProof, middleware.RequireUser())
}

func (h *OrderHandler) list(c echo.Context) error {
	userID, _ := middleware.UserID(c)
	page, limit, ok := pageQuery(c)
	if !ok {
		return badRequest(c, "invalid page or limit")
	}

	out, err := h.orders.ListMyOrders(c.Request().Context(), userID, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) show(c echo.Context) error {
	userID, _ := middleware.UserID(c)
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.orders.GetMyOrder(c.Request().Context(), userID, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) submitProof(c echo.Context) error {
	userID, _ := middleware.UserID(c)
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	fh, err := c.FormFile(proofFormField)
	if err != nil {
		return writeError(c, usecase.ErrValidation("proof is required"))
	}
	f, err := fh.Open()
	if err != nil {
		return writeError(c, err)
	}
	defer f.Close()

	in := usecase.SubmitProofInput{
		OrderID:  orderID,
		File:     f,
		Filename: fh.Filename,
		Size:     fh.Size,
	}
	if v := strings.TrimSpace(c.FormValue("payment_method_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return writeError(c, usecase.ErrValidation("invalid payment_method_id"))
		}
		in.PaymentMethodID = &id
	}
	if v := c.FormValue("transaction_reference"); v != "" {
		in.TransactionReference = &v
	}

	p, err := h.proofs.SubmitProof(c.Request().Context(), userID, in)
	if err != nil {
		return writeError(c, err)
	}

	out := ProofResponse{
		PaymentID:            p.ID,
		OrderID:              p.OrderID,
		PaymentMethodID:      p.PaymentMethodID,
		Status:               string(p.Status),
		TransactionReference: p.TransactionReference,
	}
	if p.ProofPath != nil {
		out.ProofPath = *p.ProofPath
		out.ProofURL = h.proofs.ProofURL(*p.ProofPath)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) downloadProof(c echo.Context) error {
	userID, _ := middleware.UserID(c)
	p := c.Param("*")

	rc, err := h.proofs.OpenProof(c.Request().Context(), userID, middleware.IsAdmin(c), p)
	if err != nil {
		return writeError(c, err)
	}
	defer rc.Close()

	ct := mime.TypeByExtension(path.Ext(p))
	if ct == "" {
		ct = echo.MIMEOctetStream
	}
	c.Response().Header().Set("Cache-Control", "private, no-store")
	return c.Stream(http.StatusOK, ct, rc)
}
