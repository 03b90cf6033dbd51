package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"recipingAds/business/selection"
	"recipingAds/domain"
	"recipingAds/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type perfStub struct {
	since time.Time
	err   error
}

func (p *perfStub) ScenarioPerformance(_ context.Context, since time.Time) ([]domain.ScenarioPerformance, error) {
	p.since = since
	if p.err != nil {
		return nil, p.err
	}
	return []domain.ScenarioPerformance{{ScenarioCode: "SC_DIET_EMO_A", Group: "A", Impressions: 10, Clicks: 1, CTR: 0.1}}, nil
}

func TestPoolHealth(t *testing.T) {
	cat, err := selection.DefaultCatalog()
	require.NoError(t, err)

	score := 1.0
	store := memory.NewCreativeStore(
		domain.Creative{ID: 1, ScenarioCode: "SC_DIET_EMO_A", SlotName: "MAIN_TOP", Score: &score, Status: domain.CreativeStatusActive},
		domain.Creative{ID: 2, ScenarioCode: "SC_DIET_EMO_A", SlotName: "MAIN_MIDDLE", Score: &score, Status: domain.CreativeStatusActive},
		domain.Creative{ID: 3, ScenarioCode: "SC_DIET_FUN_B", SlotName: "MAIN_TOP", Score: &score, Status: domain.CreativeStatusPaused},
	)

	report, err := NewService(cat, store, &perfStub{}).PoolHealth(context.Background())
	require.NoError(t, err)
	require.Len(t, report, 7, "one row per active scenario")

	byCode := map[string]domain.ScenarioPoolHealth{}
	for _, r := range report {
		byCode[r.ScenarioCode] = r
	}
	assert.Equal(t, int64(2), byCode["SC_DIET_EMO_A"].ActiveCreatives)
	assert.False(t, byCode["SC_DIET_EMO_A"].Empty)
	assert.True(t, byCode["SC_DIET_FUN_B"].Empty)
	assert.Equal(t, "CONTROL", byCode["SC_DEFAULT_GENERAL"].Group)
	assert.NotContains(t, byCode, "SC_VEGAN_VAL_A")
}

func TestPerformance(t *testing.T) {
	cat, err := selection.DefaultCatalog()
	require.NoError(t, err)

	now := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	stub := &perfStub{}
	svc := NewService(cat, memory.NewCreativeStore(), stub)
	svc.now = func() time.Time { return now }

	rows, err := svc.Performance(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, now.Add(-7*24*time.Hour), stub.since)

	stub.err = errors.New("db down")
	_, err = svc.Performance(context.Background(), time.Hour)
	assert.Error(t, err)
}
