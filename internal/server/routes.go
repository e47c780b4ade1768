package server

import (
	"storefront/internal/config"
	mw "storefront/internal/middleware"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, cfg config.Config, h Handlers) {
	h.Health.RegisterRoutes(e)

	api := e.Group("/api/v1", mw.Principal(cfg))
	h.Cart.RegisterRoutes(api)
	h.Orders.RegisterRoutes(api)
	h.AdminOrder.RegisterRoutes(api)
}
