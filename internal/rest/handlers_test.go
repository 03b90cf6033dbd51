package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"recipingAds/business/delivery"
	"recipingAds/business/selection"
	"recipingAds/domain"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServing struct {
	servedFor uint
	debugFor  uint
	err       error
}

func (f *fakeServing) Serve(_ context.Context, userID uint) (map[string][]domain.CreativeView, error) {
	f.servedFor = userID
	if f.err != nil {
		return nil, f.err
	}
	return map[string][]domain.CreativeView{
		"MAIN_TOP":    {{ID: 7, Title: "Salad bowl", ScenarioCode: "SC_DIET_A"}},
		"MAIN_MIDDLE": {},
	}, nil
}

func (f *fakeServing) Debug(_ context.Context, userID uint) (selection.Result, error) {
	f.debugFor = userID
	return selection.Result{UserID: userID, Segment: selection.SegmentDietFemaleAll}, f.err
}

type fakeClicks struct {
	got delivery.ClickInput
	err error
}

func (f *fakeClicks) RecordClick(_ context.Context, in delivery.ClickInput) (domain.Creative, error) {
	f.got = in
	if f.err != nil {
		return domain.Creative{}, f.err
	}
	return domain.Creative{ID: in.CreativeID, TargetURL: "https://example.com/r", ClickCount: 3}, nil
}

type fakeAdmin struct {
	window      time.Duration
	invalidated []uint
	err         error
}

func (f *fakeAdmin) Invalidate(_ context.Context, userID uint) error {
	if f.err != nil {
		return f.err
	}
	f.invalidated = append(f.invalidated, userID)
	return nil
}

func (f *fakeAdmin) Stats(_ context.Context, userID uint) (selection.Stats, error) {
	return selection.Stats{UserID: userID, Slots: []selection.SlotStats{{Slot: "MAIN_TOP", Candidates: 4}}}, f.err
}

func (f *fakeAdmin) PoolHealth(context.Context) ([]domain.ScenarioPoolHealth, error) {
	return []domain.ScenarioPoolHealth{{ScenarioCode: "SC_DIET_A", Empty: true}}, f.err
}

func (f *fakeAdmin) Performance(_ context.Context, window time.Duration) ([]domain.ScenarioPerformance, error) {
	f.window = window
	return []domain.ScenarioPerformance{{ScenarioCode: "SC_DIET_A", Impressions: 10, Clicks: 1, CTR: 0.1}}, f.err
}

func newCtx(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func TestServe_GuestAndUser(t *testing.T) {
	svc := &fakeServing{}
	h := NewServeHandler(svc, &fakeClicks{})

	c, rec := newCtx(http.MethodGet, "/api/v1/serve", "")
	require.NoError(t, h.Serve(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint(0), svc.servedFor)
	assert.Contains(t, rec.Body.String(), "Salad bowl")
	assert.Contains(t, rec.Body.String(), `"MAIN_MIDDLE":[]`)

	c, _ = newCtx(http.MethodGet, "/api/v1/serve", "")
	c.Set("user_id", uint(42))
	require.NoError(t, h.Serve(c))
	assert.Equal(t, uint(42), svc.servedFor)
}

func TestServe_ErrorStillServesEmpty(t *testing.T) {
	h := NewServeHandler(&fakeServing{err: context.Canceled}, &fakeClicks{})
	c, rec := newCtx(http.MethodGet, "/api/v1/serve", "")
	require.NoError(t, h.Serve(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"slots":{}`)
}

func TestClick(t *testing.T) {
	clicks := &fakeClicks{}
	h := NewServeHandler(&fakeServing{}, clicks)

	c, rec := newCtx(http.MethodPost, "/api/v1/ads/7/click", `{"slot":"MAIN_TOP","trace_id":"t-1","experiment_scenario":"SC_DIET_EMO_A"}`)
	c.SetParamNames("id")
	c.SetParamValues("7")
	c.Set("user_id", uint(42))

	require.NoError(t, h.Click(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, delivery.ClickInput{CreativeID: 7, UserID: 42, Slot: "MAIN_TOP", TraceID: "t-1", ScenarioCode: "SC_DIET_EMO_A"}, clicks.got)
	assert.Contains(t, rec.Body.String(), "https://example.com/r")
}

func TestClick_Errors(t *testing.T) {
	cases := []struct {
		name string
		id   string
		err  error
		code int
	}{
		{"bad id", "abc", nil, http.StatusBadRequest},
		{"zero id", "0", nil, http.StatusBadRequest},
		{"unknown creative", "9", delivery.ErrCreativeNotFound, http.StatusNotFound},
		{"store failure", "9", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewServeHandler(&fakeServing{}, &fakeClicks{err: tc.err})
			c, rec := newCtx(http.MethodPost, "/api/v1/ads/"+tc.id+"/click", "")
			c.SetParamNames("id")
			c.SetParamValues(tc.id)

			require.NoError(t, h.Click(c))
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestDebug(t *testing.T) {
	svc := &fakeServing{}
	h := NewServeHandler(svc, &fakeClicks{})

	c, rec := newCtx(http.MethodGet, "/api/v1/serve/debug?user_id=42", "")
	require.NoError(t, h.Debug(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint(42), svc.debugFor)
	assert.Contains(t, rec.Body.String(), "DIET_FEMALE_ALL")

	c, rec = newCtx(http.MethodGet, "/api/v1/serve/debug?user_id=x", "")
	require.NoError(t, h.Debug(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_SelectionStats(t *testing.T) {
	h := NewAdminHandler(&fakeAdmin{}, &fakeAdmin{}, nil)

	c, rec := newCtx(http.MethodGet, "/api/v1/admin/selection/stats", "")
	require.NoError(t, h.SelectionStats(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newCtx(http.MethodGet, "/api/v1/admin/selection/stats?user_id=42", "")
	require.NoError(t, h.SelectionStats(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"candidates":4`)
}

func TestAdmin_Performance(t *testing.T) {
	reports := &fakeAdmin{}
	h := NewAdminHandler(&fakeAdmin{}, reports, nil)

	c, rec := newCtx(http.MethodGet, "/api/v1/admin/experiments/performance?days=3", "")
	require.NoError(t, h.Performance(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 72*time.Hour, reports.window)

	c, rec = newCtx(http.MethodGet, "/api/v1/admin/experiments/performance?days=365", "")
	require.NoError(t, h.Performance(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_PoolHealth(t *testing.T) {
	h := NewAdminHandler(&fakeAdmin{}, &fakeAdmin{}, nil)
	c, rec := newCtx(http.MethodGet, "/api/v1/admin/scenarios/health", "")
	require.NoError(t, h.PoolHealth(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "SC_DIET_A")

	h = NewAdminHandler(&fakeAdmin{}, &fakeAdmin{err: errors.New("db down")}, nil)
	c, rec = newCtx(http.MethodGet, "/api/v1/admin/scenarios/health", "")
	require.NoError(t, h.PoolHealth(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAdmin_InvalidateProfile(t *testing.T) {
	invalidate := func(h *AdminHandler, userID string) *httptest.ResponseRecorder {
		c, rec := newCtx(http.MethodDelete, "/api/v1/admin/profiles/"+userID+"/cache", "")
		c.SetParamNames("user_id")
		c.SetParamValues(userID)
		require.NoError(t, h.InvalidateProfile(c))
		return rec
	}

	profiles := &fakeAdmin{}
	h := NewAdminHandler(&fakeAdmin{}, &fakeAdmin{}, profiles)
	assert.Equal(t, http.StatusNoContent, invalidate(h, "42").Code)
	assert.Equal(t, []uint{42}, profiles.invalidated)

	assert.Equal(t, http.StatusBadRequest, invalidate(h, "abc").Code)
	assert.Equal(t, http.StatusBadRequest, invalidate(h, "0").Code)
	assert.Equal(t, []uint{42}, profiles.invalidated)

	h = NewAdminHandler(&fakeAdmin{}, &fakeAdmin{}, &fakeAdmin{err: errors.New("redis down")})
	assert.Equal(t, http.StatusInternalServerError, invalidate(h, "42").Code)

	h = NewAdminHandler(&fakeAdmin{}, &fakeAdmin{}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, invalidate(h, "42").Code)
}
