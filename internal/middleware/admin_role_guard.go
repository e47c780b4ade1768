package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const RoleAdmin = "ADMIN"

// AdminRoleGuard runs after Principal and lets only ADMIN through.
func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := UserID(c); !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//USER is rejected
			if !IsAdmin(c) {
				return c.JSON(http.StatusForbidden, errorJSON("admin only"))
			}

			return next(c)
		}
	}
}

func IsAdmin(c echo.Context) bool {
	role, _ := c.Get(CtxUserRoleKey).(string)
	return role == RoleAdmin
}
