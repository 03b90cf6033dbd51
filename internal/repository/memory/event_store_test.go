package memory

import (
	"context"
	"testing"
	"time"

	"recipingAds/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventStore_ScenarioPerformance(t *testing.T) {
	s := NewEventStore()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	save := func(typ domain.AdEventType, sc, group string, at time.Time) {
		require.NoError(t, s.SaveEvent(ctx, domain.AdEvent{Type: typ, ScenarioCode: sc, Group: group, CreatedAt: at}))
	}
	for i := 0; i < 4; i++ {
		save(domain.AdEventImpression, "SC_DIET_B", "B", now)
	}
	save(domain.AdEventClick, "SC_DIET_B", "B", now)
	save(domain.AdEventImpression, "SC_DIET_A", "A", now)
	save(domain.AdEventImpression, "SC_DIET_A", "A", now.Add(-10*24*time.Hour))
	save(domain.AdEventFallback, "SC_DIET_A", "A", now)
	save(domain.AdEventImpression, "", "", now)

	rows, err := s.ScenarioPerformance(ctx, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []domain.ScenarioPerformance{
		{ScenarioCode: "SC_DIET_A", Group: "A", Impressions: 1},
		{ScenarioCode: "SC_DIET_B", Group: "B", Impressions: 4, Clicks: 1, CTR: 0.25},
	}, rows)
	assert.Len(t, s.Events(), 9)
}
