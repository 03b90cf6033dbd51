package selection

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"recipingAds/domain"

	"go.uber.org/zap"
)

// EventSink receives serving events. Emit must not block selection.
type EventSink interface {
	Emit(ctx context.Context, event domain.AdEvent)
}

type NopSink struct{}

func (NopSink) Emit(context.Context, domain.AdEvent) {}

// Result is the outcome of one request across every active slot.
type Result struct {
	TraceID     string                       `json:"trace_id,omitempty"`
	UserID      uint                         `json:"user_id,omitempty"`
	Segment     Segment                      `json:"segment"`
	Slots       map[string][]domain.Creative `json:"slots"`
	Traces      map[string]SelectionTrace    `json:"traces"`
	Assignments map[string]Scenario          `json:"assignments"`
}

type Option func(*Selector)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Selector) {
		if log != nil {
			s.log = log
		}
	}
}

func WithEventSink(sink EventSink) Option {
	return func(s *Selector) {
		if sink != nil {
			s.sink = sink
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Selector) {
		if now != nil {
			s.now = now
		}
	}
}

// Selector runs classification, assignment and the fallback cascade for
// every active slot of a page.
type Selector struct {
	catalog    *Catalog
	store      CandidateStore
	classifier *Classifier
	assigner   *Assigner
	cascade    *Cascade
	sink       EventSink
	log        *zap.SugaredLogger
	now        func() time.Time
}

func NewSelector(catalog *Catalog, store CandidateStore, opts ...Option) *Selector {
	s := &Selector{
		catalog: catalog,
		store:   store,
		sink:    NopSink{},
		log:     zap.NewNop().Sugar(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.classifier = NewClassifier(catalog)
	s.assigner = NewAssigner(catalog, s.log)
	s.cascade = NewCascade(store, catalog.DefaultScenario())

	return s
}

func (s *Selector) Catalog() *Catalog {
	return s.catalog
}

// Classify exposes the segment a requester would be served under.
func (s *Selector) Classify(user *UserContext) Segment {
	return s.classifier.Classify(user)
}

// SelectAll never fails as a whole. A slot whose pipeline errors or panics
// resolves to an empty list with the failure recorded on its trace.
func (s *Selector) SelectAll(ctx context.Context, user *UserContext) Result {
	seg := s.classifier.Classify(user)
	now := s.now()

	res := Result{
		TraceID:     TraceIDFromContext(ctx),
		Segment:     seg,
		Slots:       make(map[string][]domain.Creative),
		Traces:      make(map[string]SelectionTrace),
		Assignments: make(map[string]Scenario),
	}
	if user != nil {
		res.UserID = user.UserID
	}

	for _, slot := range s.catalog.ActiveSlots() {
		sc, out := s.selectSlot(ctx, res.UserID, seg, slot, now)
		res.Slots[slot.Name] = out.Creatives
		res.Traces[slot.Name] = out.Trace
		res.Assignments[slot.Name] = sc
	}

	return res
}

func (s *Selector) selectSlot(ctx context.Context, userID uint, seg Segment, slot Slot, now time.Time) (sc Scenario, out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = s.slotFailed(ctx, userID, seg, slot, sc, fmt.Errorf("panic: %v", r))
		}
	}()

	sc = s.assigner.Assign(ctx, userID, seg, slot.Name)

	out, err := s.cascade.Run(ctx, Plan{Slot: slot, Segment: seg, Assigned: sc, Now: now})
	if err != nil {
		return sc, s.slotFailed(ctx, userID, seg, slot, sc, err)
	}

	SlotsResolvedTotal.WithLabelValues(slot.Name, strconv.Itoa(out.Trace.FallbackLevel)).Inc()

	if out.Trace.FallbackUsed {
		s.log.Infow("selection fallback",
			"trace_id", TraceIDFromContext(ctx),
			"slot", slot.Name,
			"segment", seg,
			"original_scenario", out.Trace.OriginalScenario,
			"fallback_level", out.Trace.FallbackLevel,
			"strategy", out.Trace.FinalStrategy,
			"selected", out.Trace.SelectedCount,
		)
		s.sink.Emit(ctx, domain.AdEvent{
			Type:          domain.AdEventFallback,
			TraceID:       TraceIDFromContext(ctx),
			UserID:        userID,
			Slot:          slot.Name,
			ScenarioCode:  sc.Code,
			Group:         string(sc.Group),
			Segment:       string(seg),
			FallbackLevel: out.Trace.FallbackLevel,
			ElapsedMs:     out.Trace.Elapsed.Milliseconds(),
			Context: map[string]any{
				"strategy":       string(out.Trace.FinalStrategy),
				"final_scenario": out.Trace.FinalScenario,
				"selected":       out.Trace.SelectedCount,
			},
		})
	}

	return sc, out
}

func (s *Selector) slotFailed(ctx context.Context, userID uint, seg Segment, slot Slot, sc Scenario, err error) Outcome {
	SlotErrorsTotal.WithLabelValues(slot.Name).Inc()
	s.log.Errorw("slot selection failed",
		"trace_id", TraceIDFromContext(ctx),
		"slot", slot.Name,
		"segment", seg,
		"scenario", sc.Code,
		"error", err,
	)
	s.sink.Emit(ctx, domain.AdEvent{
		Type:         domain.AdEventSlotError,
		TraceID:      TraceIDFromContext(ctx),
		UserID:       userID,
		Slot:         slot.Name,
		ScenarioCode: sc.Code,
		Segment:      string(seg),
		Context:      map[string]any{"error": err.Error()},
	})

	return Outcome{
		Creatives: []domain.Creative{},
		Trace: SelectionTrace{
			Slot:             slot.Name,
			Segment:          seg,
			OriginalScenario: sc.Code,
			FallbackUsed:     true,
			FallbackLevel:    LevelSlotWide,
			Err:              err.Error(),
		},
	}
}

// SlotStats is the pool breakdown of the assigned scenario for one slot.
type SlotStats struct {
	Slot       string `json:"slot"`
	Scenario   string `json:"scenario"`
	Group      Group  `json:"group"`
	Capacity   int    `json:"capacity"`
	Candidates int    `json:"candidates"`
	Eligible   int    `json:"eligible"`
	Matched    int    `json:"matched"`
}

type Stats struct {
	UserID  uint        `json:"user_id"`
	Segment Segment     `json:"segment"`
	Slots   []SlotStats `json:"slots"`
}

// Stats reports, per active slot, how many creatives back the scenario the
// requester is assigned to. Unlike SelectAll it surfaces store errors.
func (s *Selector) Stats(ctx context.Context, user *UserContext) (Stats, error) {
	seg := s.classifier.Classify(user)
	now := s.now()

	st := Stats{Segment: seg}
	if user != nil {
		st.UserID = user.UserID
	}

	for _, slot := range s.catalog.ActiveSlots() {
		sc := s.assigner.Assign(ctx, st.UserID, seg, slot.Name)

		pool, err := s.store.ByScenarioAndSlot(ctx, sc.Code, slot.Name, now)
		if err != nil {
			return Stats{}, fmt.Errorf("failed to load pool for %s/%s: %w", sc.Code, slot.Name, err)
		}
		eligible := filterEligible(pool, now)

		st.Slots = append(st.Slots, SlotStats{
			Slot:       slot.Name,
			Scenario:   sc.Code,
			Group:      sc.Group,
			Capacity:   slot.Capacity,
			Candidates: len(pool),
			Eligible:   len(eligible),
			Matched:    len(filterMatching(eligible, seg)),
		})
	}

	return st, nil
}
