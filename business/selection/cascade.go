package selection

import (
	"context"
	"fmt"
	"time"

	"recipingAds/domain"
)

// CandidateStore returns snapshots of the creatives competing for a slot.
// Implementations never return deleted creatives and may drop rows that are
// not serveable at now before applying their pool limit.
type CandidateStore interface {
	ByScenarioAndSlot(ctx context.Context, scenarioCode, slot string, now time.Time) ([]domain.Creative, error)
	BySegmentAndSlot(ctx context.Context, segment Segment, slot string, now time.Time) ([]domain.Creative, error)
	BySlotOnly(ctx context.Context, slot string, now time.Time) ([]domain.Creative, error)
}

// Plan is the input of one cascade run.
type Plan struct {
	Slot     Slot
	Segment  Segment
	Assigned Scenario
	Now      time.Time
}

type Outcome struct {
	Creatives []domain.Creative
	Trace     SelectionTrace
}

type level struct {
	n            int
	strategy     Strategy
	code         string
	matchSegment bool
	fetch        func(ctx context.Context) ([]domain.Creative, error)
}

// Cascade degrades from the assigned scenario pool to the default pool, then
// the segment-wide pool, then the slot-wide pool, stopping at the first level
// that yields a creative.
type Cascade struct {
	store           CandidateStore
	defaultScenario Scenario
}

func NewCascade(store CandidateStore, defaultScenario Scenario) *Cascade {
	return &Cascade{store: store, defaultScenario: defaultScenario}
}

// Run resolves one slot. A store error aborts the run and is returned with
// the partial trace.
func (c *Cascade) Run(ctx context.Context, p Plan) (Outcome, error) {
	start := time.Now()
	trace := SelectionTrace{
		Slot:             p.Slot.Name,
		Segment:          p.Segment,
		OriginalScenario: p.Assigned.Code,
	}

	for _, l := range c.levels(p) {
		if err := ctx.Err(); err != nil {
			trace.Elapsed = time.Since(start)
			return Outcome{Creatives: []domain.Creative{}, Trace: trace}, fmt.Errorf("context error: %w", err)
		}

		pool, err := l.fetch(ctx)
		if err != nil {
			trace.Elapsed = time.Since(start)
			return Outcome{Creatives: []domain.Creative{}, Trace: trace},
				fmt.Errorf("level %d (%s) for slot %s: %w", l.n, l.strategy, p.Slot.Name, err)
		}

		picked, step := pick(pool, p, l)
		trace.Steps = append(trace.Steps, step)
		if len(picked) == 0 {
			continue
		}

		trace.FallbackLevel = l.n
		trace.FallbackUsed = l.n > LevelScenario
		trace.FinalStrategy = l.strategy
		if l.n <= LevelDefault {
			trace.FinalScenario = l.code
		}
		trace.SelectedCount = len(picked)
		trace.Elapsed = time.Since(start)
		return Outcome{Creatives: picked, Trace: trace}, nil
	}

	trace.FallbackLevel = LevelSlotWide
	trace.FallbackUsed = true
	trace.Elapsed = time.Since(start)
	return Outcome{Creatives: []domain.Creative{}, Trace: trace}, nil
}

// levels lists the pools to try for p. The default pool is listed once even
// when it is also the assigned pool, and the segment-wide pool only exists
// for a specific segment.
func (c *Cascade) levels(p Plan) []level {
	slot, now := p.Slot.Name, p.Now
	out := make([]level, 0, 4)

	if p.Assigned.Code != "" && p.Assigned.Code != c.defaultScenario.Code {
		code := p.Assigned.Code
		out = append(out, level{
			n: LevelScenario, strategy: StrategyScenarioMatch, code: code, matchSegment: true,
			fetch: func(ctx context.Context) ([]domain.Creative, error) {
				return c.store.ByScenarioAndSlot(ctx, code, slot, now)
			},
		})
	}

	defCode := c.defaultScenario.Code
	out = append(out, level{
		n: LevelDefault, strategy: StrategyControlScenario, code: defCode, matchSegment: true,
		fetch: func(ctx context.Context) ([]domain.Creative, error) {
			return c.store.ByScenarioAndSlot(ctx, defCode, slot, now)
		},
	})

	if p.Segment != "" && p.Segment != SegmentGeneralAll {
		seg := p.Segment
		out = append(out, level{
			n: LevelSegmentWide, strategy: StrategySegmentBased, code: string(seg),
			fetch: func(ctx context.Context) ([]domain.Creative, error) {
				return c.store.BySegmentAndSlot(ctx, seg, slot, now)
			},
		})
	}

	out = append(out, level{
		n: LevelSlotWide, strategy: StrategyPositionBased, code: slot,
		fetch: func(ctx context.Context) ([]domain.Creative, error) {
			return c.store.BySlotOnly(ctx, slot, now)
		},
	})

	return out
}

func pick(pool []domain.Creative, p Plan, l level) ([]domain.Creative, Step) {
	step := Step{Level: l.n, Strategy: l.strategy, Code: l.code, Candidates: len(pool)}

	eligible := filterEligible(pool, p.Now)
	step.Eligible = len(eligible)

	matched := eligible
	if l.matchSegment {
		matched = filterMatching(eligible, p.Segment)
	}
	step.Matched = len(matched)

	ranked := Rank(matched)
	if len(ranked) > p.Slot.Capacity {
		ranked = ranked[:p.Slot.Capacity]
	}
	step.Selected = len(ranked)
	step.Success = len(ranked) > 0

	return ranked, step
}
