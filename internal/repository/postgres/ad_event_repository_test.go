package postgres

import (
	"context"
	"testing"
	"time"

	"recipingAds/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdEventRepository_SaveEvent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAdEventRepository(db)

	mock.ExpectExec(`INSERT INTO "ad_events"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveEvent(context.Background(), domain.AdEvent{
		ID:           "0b8f7c1e-6f8a-4c43-9d1f-2b6b0c7c9a10",
		Type:         domain.AdEventImpression,
		CreativeID:   1,
		Slot:         "MAIN_TOP",
		ScenarioCode: "SC_DIET_EMO_A",
		Group:        "A",
		Context:      map[string]any{"charge": 0},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdEventRepository_SaveEventCancelled(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewAdEventRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.SaveEvent(ctx, domain.AdEvent{ID: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAdEventRepository_ScenarioPerformance(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAdEventRepository(db)

	mock.ExpectQuery(`SELECT scenario_code, experiment_group, SUM\(CASE WHEN event_type = \$1 THEN 1 ELSE 0 END\) AS impressions, .* FROM "ad_events" WHERE .* GROUP BY scenario_code, experiment_group ORDER BY scenario_code, experiment_group`).
		WillReturnRows(sqlmock.NewRows([]string{"scenario_code", "experiment_group", "impressions", "clicks"}).
			AddRow("SC_DIET_EMO_A", "A", 200, 8).
			AddRow("SC_DIET_FUN_B", "B", 0, 0))

	got, err := repo.ScenarioPerformance(context.Background(), time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.ScenarioPerformance{ScenarioCode: "SC_DIET_EMO_A", Group: "A", Impressions: 200, Clicks: 8, CTR: 0.04}, got[0])
	assert.Zero(t, got[1].CTR)
	require.NoError(t, mock.ExpectationsWereMet())
}
