package delivery

import (
	"context"
	"errors"
	"fmt"

	"recipingAds/business/selection"
	"recipingAds/domain"

	"go.uber.org/zap"
)

var ErrCreativeNotFound = errors.New("creative not found")

// CounterStore applies atomic counter updates. Increments must be a single
// row-level `col = col + n` update so concurrent requests never lose counts.
type CounterStore interface {
	FindByID(ctx context.Context, id uint64) (domain.Creative, bool, error)
	IncrementImpression(ctx context.Context, id uint64, charge int64) error
	IncrementClick(ctx context.Context, id uint64, charge int64) error
	// ExhaustIfOverBudget pauses an active creative whose spend reached its
	// budget and reports whether this call made the transition.
	ExhaustIfOverBudget(ctx context.Context, id uint64) (bool, error)
}

type ScenarioLookup interface {
	ScenarioByCode(code string) (selection.Scenario, bool)
}

type Recorder struct {
	store     CounterStore
	sink      selection.EventSink
	scenarios ScenarioLookup
	log       *zap.SugaredLogger
}

func NewRecorder(store CounterStore, sink selection.EventSink, scenarios ScenarioLookup, log *zap.SugaredLogger) *Recorder {
	if sink == nil {
		sink = selection.NopSink{}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Recorder{store: store, sink: sink, scenarios: scenarios, log: log}
}

// RecordImpressions counts one impression for every creative served in res.
// Counter failures are logged and skipped; the returned value is the number
// of impressions persisted.
func (r *Recorder) RecordImpressions(ctx context.Context, res selection.Result) int {
	recorded := 0

	for slot, creatives := range res.Slots {
		sc := res.Assignments[slot]
		tr := res.Traces[slot]

		for _, c := range creatives {
			charge := c.Charge(domain.AdEventImpression)
			if err := r.store.IncrementImpression(ctx, c.ID, charge); err != nil {
				CounterFailuresTotal.WithLabelValues("impression").Inc()
				r.log.Errorw("failed to record impression",
					"trace_id", res.TraceID,
					"creative_id", c.ID,
					"slot", slot,
					"error", err,
				)
				continue
			}
			recorded++
			ImpressionsTotal.WithLabelValues(slot, string(sc.Group)).Inc()

			r.sink.Emit(ctx, domain.AdEvent{
				Type:          domain.AdEventImpression,
				TraceID:       res.TraceID,
				UserID:        res.UserID,
				CreativeID:    c.ID,
				Slot:          slot,
				ScenarioCode:  sc.Code,
				Group:         string(sc.Group),
				Segment:       string(res.Segment),
				FallbackLevel: tr.FallbackLevel,
				Context: map[string]any{
					"creative_scenario": c.ScenarioCode,
					"billing_type":      string(c.BillingType),
					"charge":            charge,
				},
			})

			if charge > 0 && c.Budget != nil {
				r.exhaust(ctx, res.TraceID, res.UserID, slot, c)
			}
		}
	}

	return recorded
}

type ClickInput struct {
	CreativeID uint64
	UserID     uint
	Slot       string
	TraceID    string
	// ScenarioCode is the experiment scenario the serve was attributed to.
	// Empty falls back to the creative's own scenario.
	ScenarioCode string
}

// RecordClick counts a click and charges CPC creatives.
func (r *Recorder) RecordClick(ctx context.Context, in ClickInput) (domain.Creative, error) {
	if err := ctx.Err(); err != nil {
		return domain.Creative{}, fmt.Errorf("context error: %w", err)
	}

	c, ok, err := r.store.FindByID(ctx, in.CreativeID)
	if err != nil {
		return domain.Creative{}, fmt.Errorf("failed to load creative %d: %w", in.CreativeID, err)
	}
	if !ok || c.Status == domain.CreativeStatusDeleted {
		return domain.Creative{}, ErrCreativeNotFound
	}

	charge := c.Charge(domain.AdEventClick)
	if err := r.store.IncrementClick(ctx, c.ID, charge); err != nil {
		CounterFailuresTotal.WithLabelValues("click").Inc()
		return domain.Creative{}, fmt.Errorf("failed to record click for creative %d: %w", c.ID, err)
	}
	c.ClickCount++
	c.SpentAmount += charge

	slot := in.Slot
	if slot == "" {
		slot = c.SlotName
	}

	scenario, group := r.attribute(in.ScenarioCode, c.ScenarioCode)
	ClicksTotal.WithLabelValues(slot, group).Inc()

	ctr := c.CTR()
	r.sink.Emit(ctx, domain.AdEvent{
		Type:         domain.AdEventClick,
		TraceID:      in.TraceID,
		UserID:       in.UserID,
		CreativeID:   c.ID,
		Slot:         slot,
		ScenarioCode: scenario,
		Group:        group,
		Context: map[string]any{
			"creative_scenario": c.ScenarioCode,
			"ctr":               ctr,
			"ctr_bucket":        CTRBucket(ctr),
			"billing_type":      string(c.BillingType),
			"charge":            charge,
		},
	})

	if charge > 0 && c.Budget != nil {
		if r.exhaust(ctx, in.TraceID, in.UserID, slot, c) {
			c.Status = domain.CreativeStatusPaused
		}
	}

	return c, nil
}

// attribute resolves the report key for a click. A served scenario unknown
// to the catalog is ignored in favour of the creative's own.
func (r *Recorder) attribute(served, own string) (string, string) {
	if r.scenarios == nil {
		if served != "" {
			return served, ""
		}
		return own, ""
	}
	if served != "" {
		if sc, ok := r.scenarios.ScenarioByCode(served); ok {
			return sc.Code, string(sc.Group)
		}
	}
	if sc, ok := r.scenarios.ScenarioByCode(own); ok {
		return sc.Code, string(sc.Group)
	}
	return own, ""
}

func (r *Recorder) exhaust(ctx context.Context, traceID string, userID uint, slot string, c domain.Creative) bool {
	paused, err := r.store.ExhaustIfOverBudget(ctx, c.ID)
	if err != nil {
		CounterFailuresTotal.WithLabelValues("exhaust").Inc()
		r.log.Errorw("failed to check budget",
			"trace_id", traceID,
			"creative_id", c.ID,
			"error", err,
		)
		return false
	}
	if !paused {
		return false
	}

	BudgetExhaustedTotal.Inc()
	r.log.Infow("creative budget exhausted",
		"trace_id", traceID,
		"creative_id", c.ID,
		"budget", *c.Budget,
	)
	r.sink.Emit(ctx, domain.AdEvent{
		Type:         domain.AdEventBudgetExhausted,
		TraceID:      traceID,
		UserID:       userID,
		CreativeID:   c.ID,
		Slot:         slot,
		ScenarioCode: c.ScenarioCode,
		Context:      map[string]any{"budget": *c.Budget},
	})

	return true
}

// CTRBucket groups click-through rates for reporting.
func CTRBucket(ctr float64) string {
	switch {
	case ctr >= 0.03:
		return "HIGH"
	case ctr >= 0.015:
		return "MEDIUM"
	default:
		return "LOW"
	}
}
