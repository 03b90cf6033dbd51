package middleware

import (
	"recipingAds/business/selection"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// TraceID puts a request trace id on the request context so selection logs
// and events can be correlated. An incoming X-Request-ID is reused.
func TraceID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}

			req := c.Request()
			c.SetRequest(req.WithContext(selection.WithTraceID(req.Context(), id)))
			c.Response().Header().Set(echo.HeaderXRequestID, id)

			return next(c)
		}
	}
}
