package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	ProductID int64  `json:"product_id,omitempty"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
}

var kindStatus = map[usecase.ErrorKind]int{
	usecase.KindUnauthenticated:      http.StatusUnauthorized,
	usecase.KindNotFound:             http.StatusNotFound,
	usecase.KindValidation:           http.StatusUnprocessableEntity,
	usecase.KindEmptyCart:            http.StatusUnprocessableEntity,
	usecase.KindInactiveProduct:      http.StatusUnprocessableEntity,
	usecase.KindInsufficientStock:    http.StatusUnprocessableEntity,
	usecase.KindTransitionNotAllowed: http.StatusUnprocessableEntity,
	usecase.KindInvalidOperation:     http.StatusUnprocessableEntity,
}

// writeError renders usecase errors by kind. Anything else is a 500 and is
// the only case logged.
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if ue, ok := usecase.AsError(err); ok {
		status, known := kindStatus[ue.Kind]
		if known {
			return c.JSON(status, ErrorResponse{
				Error:     ue.Message,
				Kind:      string(ue.Kind),
				ProductID: ue.ProductID,
				From:      ue.From,
				To:        ue.To,
			})
		}
	}

	//500
	slog.ErrorContext(c.Request().Context(), "request failed",
		slog.String("method", c.Request().Method),
		slog.String("path", c.Path()),
		slog.Any("err", err),
	)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func parseIDParam(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// pageQuery reads page and limit; zero means "use the default".
func pageQuery(c echo.Context) (int, int, bool) {
	page, limit := 0, 0
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, false
		}
		page = p
	}
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, false
		}
		limit = l
	}
	return page, limit, true
}

func optionalInt64Query(c echo.Context, name string) (*int64, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, false
	}
	return &id, true
}
