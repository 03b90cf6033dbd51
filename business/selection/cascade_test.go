package selection

import (
	"context"
	"testing"

	"recipingAds/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mainTop = Slot{Name: "MAIN_TOP", Capacity: 1, Active: true}

func newTestCascade(t *testing.T, store CandidateStore) *Cascade {
	return NewCascade(store, mustDefaultCatalog(t).DefaultScenario())
}

func dietA(t *testing.T) Scenario {
	sc, ok := mustDefaultCatalog(t).Scenario(SegmentDietFemaleAll, GroupA)
	require.True(t, ok)
	return sc
}

func TestCascade_ScenarioMatch(t *testing.T) {
	store := newFakeStore(
		targeted(mk(1, "MAIN_TOP", "SC_DIET_EMO_A", 2), SegmentDietFemaleAll),
		targeted(mk(2, "MAIN_TOP", "SC_DIET_EMO_A", 9), SegmentActiveMom),
		mk(3, "MAIN_TOP", "SC_DEFAULT_GENERAL", 10),
	)

	out, err := newTestCascade(t, store).Run(context.Background(), Plan{
		Slot: mainTop, Segment: SegmentDietFemaleAll, Assigned: dietA(t), Now: baseTime,
	})
	require.NoError(t, err)

	assert.Equal(t, []uint64{1}, ids(out.Creatives), "creative targeted at another segment is skipped")
	assert.Equal(t, LevelScenario, out.Trace.FallbackLevel)
	assert.False(t, out.Trace.FallbackUsed)
	assert.Equal(t, "SC_DIET_EMO_A", out.Trace.FinalScenario)
	assert.Equal(t, []Strategy{StrategyScenarioMatch}, out.Trace.Attempted())
	assert.Equal(t, Step{Level: 0, Strategy: StrategyScenarioMatch, Code: "SC_DIET_EMO_A", Candidates: 2, Eligible: 2, Matched: 1, Selected: 1, Success: true}, out.Trace.Steps[0])
}

func TestCascade_DegradesLevelByLevel(t *testing.T) {
	paused := mk(10, "MAIN_TOP", "SC_DIET_EMO_A", 50)
	paused.Status = domain.CreativeStatusPaused

	tests := []struct {
		name      string
		creatives []domain.Creative
		wantIDs   []uint64
		wantLevel int
		wantSteps []Strategy
	}{
		{
			name:      "default pool",
			creatives: []domain.Creative{paused, mk(1, "MAIN_TOP", "SC_DEFAULT_GENERAL", 1)},
			wantIDs:   []uint64{1},
			wantLevel: LevelDefault,
			wantSteps: []Strategy{StrategyScenarioMatch, StrategyControlScenario},
		},
		{
			name:      "segment wide",
			creatives: []domain.Creative{paused, targeted(mk(2, "MAIN_TOP", "SC_OTHER", 1), SegmentDietFemaleAll)},
			wantIDs:   []uint64{2},
			wantLevel: LevelSegmentWide,
			wantSteps: []Strategy{StrategyScenarioMatch, StrategyControlScenario, StrategySegmentBased},
		},
		{
			name:      "slot wide ignores targeting",
			creatives: []domain.Creative{paused, targeted(mk(3, "MAIN_TOP", "SC_OTHER", 1), SegmentActiveMom)},
			wantIDs:   []uint64{3},
			wantLevel: LevelSlotWide,
			wantSteps: []Strategy{StrategyScenarioMatch, StrategyControlScenario, StrategySegmentBased, StrategyPositionBased},
		},
		{
			name:      "exhausted",
			creatives: []domain.Creative{paused, mk(4, "MAIN_MIDDLE", "SC_DIET_EMO_A", 1)},
			wantIDs:   []uint64{},
			wantLevel: LevelSlotWide,
			wantSteps: []Strategy{StrategyScenarioMatch, StrategyControlScenario, StrategySegmentBased, StrategyPositionBased},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := newTestCascade(t, newFakeStore(tt.creatives...)).Run(context.Background(), Plan{
				Slot: mainTop, Segment: SegmentDietFemaleAll, Assigned: dietA(t), Now: baseTime,
			})
			require.NoError(t, err)

			assert.Equal(t, tt.wantIDs, ids(out.Creatives))
			assert.NotNil(t, out.Creatives)
			assert.Equal(t, tt.wantLevel, out.Trace.FallbackLevel)
			assert.True(t, out.Trace.FallbackUsed)
			assert.Equal(t, "SC_DIET_EMO_A", out.Trace.OriginalScenario)
			assert.Equal(t, tt.wantSteps, out.Trace.Attempted())
		})
	}
}

func TestCascade_DefaultPoolQueriedOnce(t *testing.T) {
	store := newFakeStore(mk(1, "MAIN_TOP", "SC_OTHER", 1))
	def := mustDefaultCatalog(t).DefaultScenario()

	out, err := newTestCascade(t, store).Run(context.Background(), Plan{
		Slot: mainTop, Segment: SegmentDietFemaleAll, Assigned: def, Now: baseTime,
	})
	require.NoError(t, err)

	assert.Equal(t, []uint64{1}, ids(out.Creatives))
	assert.Equal(t, []Strategy{StrategyControlScenario, StrategySegmentBased, StrategyPositionBased}, out.Trace.Attempted())
	assert.Equal(t, []string{
		"scenario:SC_DEFAULT_GENERAL:MAIN_TOP",
		"segment:DIET_FEMALE_ALL:MAIN_TOP",
		"slot:MAIN_TOP",
	}, store.callsFor("MAIN_TOP"))
}

func TestCascade_GeneralSegmentSkipsSegmentWide(t *testing.T) {
	store := newFakeStore()
	def := mustDefaultCatalog(t).DefaultScenario()

	out, err := newTestCascade(t, store).Run(context.Background(), Plan{
		Slot: mainTop, Segment: SegmentGeneralAll, Assigned: def, Now: baseTime,
	})
	require.NoError(t, err)

	assert.Empty(t, out.Creatives)
	assert.Equal(t, LevelSlotWide, out.Trace.FallbackLevel)
	assert.Equal(t, []string{"scenario:SC_DEFAULT_GENERAL:MAIN_TOP", "slot:MAIN_TOP"}, store.callsFor("MAIN_TOP"))
}

func TestCascade_CapacityAndEligibility(t *testing.T) {
	spent := mk(1, "MAIN_TOP", "SC_DIET_EMO_A", 100)
	spent.Budget = int64p(100)
	spent.SpentAmount = 100

	unlimited := mk(2, "MAIN_TOP", "SC_DIET_EMO_A", 1)
	unlimited.SpentAmount = 1 << 30

	slot := Slot{Name: "MAIN_TOP", Capacity: 2, Active: true}
	store := newFakeStore(spent, unlimited, mk(3, "MAIN_TOP", "SC_DIET_EMO_A", 5), mk(4, "MAIN_TOP", "SC_DIET_EMO_A", 4))

	out, err := newTestCascade(t, store).Run(context.Background(), Plan{
		Slot: slot, Segment: SegmentDietFemaleAll, Assigned: dietA(t), Now: baseTime,
	})
	require.NoError(t, err)

	assert.Equal(t, []uint64{3, 4}, ids(out.Creatives))
	assert.Equal(t, 4, out.Trace.Steps[0].Candidates)
	assert.Equal(t, 3, out.Trace.Steps[0].Eligible)
	for _, c := range out.Creatives {
		assert.True(t, IsEligible(c, baseTime))
	}
}

func TestCascade_PoolsWidenTowardSlotWide(t *testing.T) {
	store := newFakeStore(
		targeted(mk(1, "MAIN_TOP", "SC_X", 1), SegmentDietFemaleAll),
		targeted(mk(2, "MAIN_TOP", "SC_Y", 1), SegmentActiveMom),
		mk(3, "MAIN_TOP", "SC_Z", 1),
	)
	for i := range store.creatives {
		store.creatives[i].Status = domain.CreativeStatusPaused
	}

	out, err := newTestCascade(t, store).Run(context.Background(), Plan{
		Slot: mainTop, Segment: SegmentDietFemaleAll, Assigned: dietA(t), Now: baseTime,
	})
	require.NoError(t, err)

	steps := out.Trace.Steps
	require.Len(t, steps, 4)
	assert.LessOrEqual(t, steps[LevelSegmentWide].Candidates, steps[LevelSlotWide].Candidates)
	assert.Equal(t, 1, steps[LevelSegmentWide].Candidates)
	assert.Equal(t, 3, steps[LevelSlotWide].Candidates)
}

func TestCascade_StoreErrorAborts(t *testing.T) {
	store := newFakeStore()
	store.failOn["segment:DIET_FEMALE_ALL:MAIN_TOP"] = errStoreDown

	out, err := newTestCascade(t, store).Run(context.Background(), Plan{
		Slot: mainTop, Segment: SegmentDietFemaleAll, Assigned: dietA(t), Now: baseTime,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errStoreDown)
	assert.Empty(t, out.Creatives)
	assert.Len(t, out.Trace.Steps, 2)
	assert.NotContains(t, store.callsFor("MAIN_TOP"), "slot:MAIN_TOP")
}

func TestCascade_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := newFakeStore(mk(1, "MAIN_TOP", "SC_DIET_EMO_A", 1))
	_, err := newTestCascade(t, store).Run(ctx, Plan{
		Slot: mainTop, Segment: SegmentDietFemaleAll, Assigned: dietA(t), Now: baseTime,
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.callsFor("MAIN_TOP"))
}
