package rest

import "github.com/labstack/echo/v4"

// ResponseError represent the response error struct
type ResponseError struct {
	Message string `json:"message"`
}

// userIDFrom returns 0 for guests.
func userIDFrom(c echo.Context) uint {
	id, _ := c.Get("user_id").(uint)
	return id
}
