package selection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"recipingAds/domain"

	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mustDefaultCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := DefaultCatalog()
	require.NoError(t, err)
	return cat
}

func mk(id uint64, slot, scenario string, score float64) domain.Creative {
	s := score
	return domain.Creative{
		ID:           id,
		Title:        fmt.Sprintf("creative-%d", id),
		SlotName:     slot,
		ScenarioCode: scenario,
		Score:        &s,
		Status:       domain.CreativeStatusActive,
		BillingType:  domain.BillingCPC,
		CreatedAt:    baseTime.Add(-time.Duration(id) * time.Hour),
	}
}

func targeted(c domain.Creative, seg Segment) domain.Creative {
	c.TargetSegment = string(seg)
	return c
}

func ids(cs []domain.Creative) []uint64 {
	out := make([]uint64, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}

// fakeStore answers queries from a flat creative list the way the SQL store
// does and records every query it receives.
type fakeStore struct {
	mu        sync.Mutex
	creatives []domain.Creative
	calls     []string
	failOn    map[string]error
	panicOn   string
}

func newFakeStore(cs ...domain.Creative) *fakeStore {
	return &fakeStore{creatives: cs, failOn: map[string]error{}}
}

func (f *fakeStore) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if call == f.panicOn {
		panic("store exploded")
	}
	return f.failOn[call]
}

func (f *fakeStore) callsFor(slot string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if len(c) >= len(slot) && c[len(c)-len(slot):] == slot {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeStore) filter(keep func(domain.Creative) bool) []domain.Creative {
	out := []domain.Creative{}
	for _, c := range f.creatives {
		if c.Status != domain.CreativeStatusDeleted && keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeStore) ByScenarioAndSlot(_ context.Context, code, slot string, _ time.Time) ([]domain.Creative, error) {
	if err := f.record("scenario:" + code + ":" + slot); err != nil {
		return nil, err
	}
	return f.filter(func(c domain.Creative) bool { return c.ScenarioCode == code && c.SlotName == slot }), nil
}

func (f *fakeStore) BySegmentAndSlot(_ context.Context, seg Segment, slot string, _ time.Time) ([]domain.Creative, error) {
	if err := f.record("segment:" + string(seg) + ":" + slot); err != nil {
		return nil, err
	}
	return f.filter(func(c domain.Creative) bool { return c.TargetSegment == string(seg) && c.SlotName == slot }), nil
}

func (f *fakeStore) BySlotOnly(_ context.Context, slot string, _ time.Time) ([]domain.Creative, error) {
	if err := f.record("slot:" + slot); err != nil {
		return nil, err
	}
	return f.filter(func(c domain.Creative) bool { return c.SlotName == slot }), nil
}

var errStoreDown = errors.New("store unavailable")

type recordingSink struct {
	mu     sync.Mutex
	events []domain.AdEvent
}

func (s *recordingSink) Emit(_ context.Context, e domain.AdEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) ofType(t domain.AdEventType) []domain.AdEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AdEvent
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
