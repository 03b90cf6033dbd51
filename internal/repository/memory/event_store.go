package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"recipingAds/domain"
)

// EventStore keeps ad events in process for local runs and simulations.
type EventStore struct {
	mu     sync.RWMutex
	events []domain.AdEvent
}

func NewEventStore() *EventStore {
	return &EventStore{}
}

func (s *EventStore) SaveEvent(ctx context.Context, e domain.AdEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
	return nil
}

func (s *EventStore) Events() []domain.AdEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AdEvent(nil), s.events...)
}

type perfKey struct {
	scenario string
	group    string
}

// ScenarioPerformance mirrors the postgres aggregation: impressions and
// clicks per scenario and group, ordered by scenario then group.
func (s *EventStore) ScenarioPerformance(ctx context.Context, since time.Time) ([]domain.ScenarioPerformance, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	s.mu.RLock()
	agg := make(map[perfKey]*domain.ScenarioPerformance)
	for _, e := range s.events {
		if e.ScenarioCode == "" || e.CreatedAt.Before(since) {
			continue
		}
		if e.Type != domain.AdEventImpression && e.Type != domain.AdEventClick {
			continue
		}
		k := perfKey{e.ScenarioCode, e.Group}
		p, ok := agg[k]
		if !ok {
			p = &domain.ScenarioPerformance{ScenarioCode: e.ScenarioCode, Group: e.Group}
			agg[k] = p
		}
		if e.Type == domain.AdEventImpression {
			p.Impressions++
		} else {
			p.Clicks++
		}
	}
	s.mu.RUnlock()

	out := make([]domain.ScenarioPerformance, 0, len(agg))
	for _, p := range agg {
		if p.Impressions > 0 {
			p.CTR = float64(p.Clicks) / float64(p.Impressions)
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScenarioCode != out[j].ScenarioCode {
			return out[i].ScenarioCode < out[j].ScenarioCode
		}
		return out[i].Group < out[j].Group
	})

	return out, nil
}
