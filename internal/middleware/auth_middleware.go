package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"recipingAds/pkg/logger"
	jsonres "recipingAds/pkg/response"
	"recipingAds/pkg/utils"

	"github.com/labstack/echo/v4"
)

// AuthMiddleware requires a valid bearer token.
func AuthMiddleware(secret string) echo.MiddlewareFunc {
	return authenticate(secret, false)
}

// OptionalAuth lets guests through without a user id. A token that is
// present but unusable is logged and the request continues as a guest.
func OptionalAuth(secret string) echo.MiddlewareFunc {
	return authenticate(secret, true)
}

func authenticate(secret string, optional bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				if optional {
					return next(c)
				}
				return c.JSON(http.StatusUnauthorized, jsonres.Error(
					"UNAUTHORIZED", "Missing authorization header", nil,
				))
			}

			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				if optional {
					logger.Warn("Invalid authorization format, continuing as guest", "path", c.Path())
					return next(c)
				}
				return c.JSON(http.StatusUnauthorized, jsonres.Error(
					"UNAUTHORIZED", "Invalid authorization format", nil,
				))
			}

			claims, err := utils.ParseJWT(tokenParts[1], secret)
			if err != nil {
				if optional {
					logger.Warn("Invalid token, continuing as guest", "path", c.Path(), "error", err)
					return next(c)
				}
				return c.JSON(http.StatusUnauthorized, jsonres.Error(
					"UNAUTHORIZED", "Invalid token", nil,
				))
			}

			userID, err := strconv.ParseUint(claims.UserID, 10, 64)
			if err != nil || userID == 0 {
				logger.Warn("Invalid user ID in token", "user_id", claims.UserID, "optional", optional)
				if optional {
					return next(c)
				}
				return c.JSON(http.StatusForbidden, jsonres.Error(
					"FORBIDDEN", "Invalid user ID in token", nil,
				))
			}

			c.Set("user_id", uint(userID))
			c.Set("role", claims.Role)

			return next(c)
		}
	}
}

func AdminOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			roleStr, ok := c.Get("role").(string)
			if !ok || strings.ToUpper(roleStr) != "ADMIN" {
				return c.JSON(http.StatusForbidden, jsonres.Error(
					"FORBIDDEN", "Admin access required", nil,
				))
			}

			return next(c)
		}
	}
}
