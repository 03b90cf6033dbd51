package router

import (
	"recipingAds/internal/rest"

	"github.com/labstack/echo/v4"
)

func SetupServeRoutes(api *echo.Group, handler *rest.ServeHandler, optionalAuth, authRequired, adminOnly echo.MiddlewareFunc) {
	api.GET("/serve", handler.Serve, optionalAuth)
	api.GET("/serve/debug", handler.Debug, authRequired, adminOnly)
	api.POST("/ads/:id/click", handler.Click, optionalAuth)
}

func SetupAdminRoutes(api *echo.Group, handler *rest.AdminHandler, authRequired, adminOnly echo.MiddlewareFunc) {
	admin := api.Group("/admin", authRequired, adminOnly)

	admin.GET("/selection/stats", handler.SelectionStats)
	admin.GET("/experiments/performance", handler.Performance)
	admin.GET("/scenarios/health", handler.PoolHealth)
	admin.DELETE("/profiles/:user_id/cache", handler.InvalidateProfile)
}
