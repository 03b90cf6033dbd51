package rest

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"recipingAds/business/selection"
	"recipingAds/domain"
	"recipingAds/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/labstack/echo/v4"
)

type (
	AdminHandler struct {
		stats    SelectionStats
		reports  Reports
		profiles ProfileInvalidator
	}

	SelectionStats interface {
		Stats(ctx context.Context, userID uint) (selection.Stats, error)
	}

	Reports interface {
		PoolHealth(ctx context.Context) ([]domain.ScenarioPoolHealth, error)
		Performance(ctx context.Context, window time.Duration) ([]domain.ScenarioPerformance, error)
	}

	// ProfileInvalidator drops a cached user profile.
	ProfileInvalidator interface {
		Invalidate(ctx context.Context, userID uint) error
	}
)

// NewAdminHandler builds the admin handler. profiles may be nil when no
// profile cache is configured.
func NewAdminHandler(stats SelectionStats, reports Reports, profiles ProfileInvalidator) *AdminHandler {
	return &AdminHandler{stats: stats, reports: reports, profiles: profiles}
}

// GET /api/v1/admin/selection/stats?user_id=42
func (h *AdminHandler) SelectionStats(c echo.Context) error {
	userIDStr := c.QueryParam("user_id")
	if userIDStr == "" {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "user_id is required"})
	}
	userID, err := strconv.ParseUint(userIDStr, 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid user_id"})
	}

	st, err := h.stats.Stats(c.Request().Context(), uint(userID))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(st))
}

// GET /api/v1/admin/experiments/performance?days=7
func (h *AdminHandler) Performance(c echo.Context) error {
	var window time.Duration
	if days := c.QueryParam("days"); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n < 1 || n > 90 {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: "days must be between 1 and 90"})
		}
		window = time.Duration(n) * 24 * time.Hour
	}

	rows, err := h.reports.Performance(c.Request().Context(), window)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(rows))
}

// GET /api/v1/admin/scenarios/health
func (h *AdminHandler) PoolHealth(c echo.Context) error {
	rows, err := h.reports.PoolHealth(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(rows))
}

// DELETE /api/v1/admin/profiles/:user_id/cache
func (h *AdminHandler) InvalidateProfile(c echo.Context) error {
	if h.profiles == nil {
		return c.JSON(http.StatusServiceUnavailable, ResponseError{Message: "profile cache is not enabled"})
	}

	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil || userID == 0 {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid user_id"})
	}

	if err := h.profiles.Invalidate(c.Request().Context(), uint(userID)); err != nil {
		logger.Error("Profile cache invalidation failed", "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	logger.Info("Profile cache invalidated", "user_id", userID)
	return c.NoContent(http.StatusNoContent)
}
