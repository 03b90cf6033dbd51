package rest

import (
	"context"
	"errors"
	"net/http"

	"recipingAds/business/delivery"
	"recipingAds/business/selection"
	"recipingAds/domain"
	"recipingAds/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	ServeHandler struct {
		validate *validator.Validate
		serving  ServingService
		clicks   ClickRecorder
	}

	ServingService interface {
		Serve(ctx context.Context, userID uint) (map[string][]domain.CreativeView, error)
		Debug(ctx context.Context, userID uint) (selection.Result, error)
	}

	ClickRecorder interface {
		RecordClick(ctx context.Context, in delivery.ClickInput) (domain.Creative, error)
	}

	ServeResponse struct {
		TraceID string                           `json:"trace_id"`
		Slots   map[string][]domain.CreativeView `json:"slots"`
	}

	ClickRequest struct {
		CreativeID uint64 `param:"id" validate:"required"`
		Slot       string `json:"slot" validate:"omitempty,max=64"`
		TraceID    string `json:"trace_id" validate:"omitempty,max=64"`
		// echoed from the served creative's experiment_scenario
		ScenarioCode string `json:"experiment_scenario" validate:"omitempty,max=64"`
	}

	ClickResponse struct {
		CreativeID uint64 `json:"creative_id"`
		TargetURL  string `json:"target_url"`
		Clicks     int64  `json:"clicks"`
	}

	DebugQuery struct {
		UserID uint `query:"user_id"`
	}
)

func NewServeHandler(serving ServingService, clicks ClickRecorder) *ServeHandler {
	return &ServeHandler{
		validate: validator.New(),
		serving:  serving,
		clicks:   clicks,
	}
}

// Serve returns creatives for every active slot. Guests are served with
// user id 0.
func (h *ServeHandler) Serve(c echo.Context) error {
	ctx := c.Request().Context()

	slots, err := h.serving.Serve(ctx, userIDFrom(c))
	if err != nil {
		logger.Warn("Serve failed, returning empty slots",
			"trace_id", selection.TraceIDFromContext(ctx),
			"error", err,
		)
		slots = map[string][]domain.CreativeView{}
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(ServeResponse{
		TraceID: selection.TraceIDFromContext(ctx),
		Slots:   slots,
	}))
}

func (h *ServeHandler) Click(c echo.Context) error {
	var req ClickRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid creative id"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx := c.Request().Context()
	traceID := req.TraceID
	if traceID == "" {
		traceID = selection.TraceIDFromContext(ctx)
	}

	creative, err := h.clicks.RecordClick(ctx, delivery.ClickInput{
		CreativeID:   req.CreativeID,
		UserID:       userIDFrom(c),
		Slot:         req.Slot,
		TraceID:      traceID,
		ScenarioCode: req.ScenarioCode,
	})
	if errors.Is(err, delivery.ErrCreativeNotFound) {
		return c.JSON(http.StatusNotFound, ResponseError{Message: "creative not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(ClickResponse{
		CreativeID: creative.ID,
		TargetURL:  creative.TargetURL,
		Clicks:     creative.ClickCount,
	}))
}

// GET /api/v1/serve/debug?user_id=42
func (h *ServeHandler) Debug(c echo.Context) error {
	var q DebugQuery
	if err := c.Bind(&q); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid user_id"})
	}

	res, err := h.serving.Debug(c.Request().Context(), q.UserID)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(res))
}
