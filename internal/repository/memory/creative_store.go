package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"recipingAds/business/delivery"
	"recipingAds/business/selection"
	"recipingAds/domain"

	"gopkg.in/yaml.v3"
)

const defaultMaxPool = 200

// CreativeStore keeps creatives in process. It serves the same queries as
// the postgres store, dropping rows that are not serveable before the pool
// limit, and is used for offline simulation and tests.
type CreativeStore struct {
	mu        sync.RWMutex
	creatives map[uint64]*domain.Creative
	maxPool   int
}

var (
	_ selection.CandidateStore = (*CreativeStore)(nil)
	_ delivery.CounterStore    = (*CreativeStore)(nil)
)

func NewCreativeStore(creatives ...domain.Creative) *CreativeStore {
	s := &CreativeStore{
		creatives: make(map[uint64]*domain.Creative, len(creatives)),
		maxPool:   defaultMaxPool,
	}
	for _, c := range creatives {
		s.Put(c)
	}
	return s
}

func (s *CreativeStore) Put(c domain.Creative) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := c
	s.creatives[c.ID] = &cp
}

func (s *CreativeStore) Get(id uint64) (domain.Creative, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.creatives[id]
	if !ok {
		return domain.Creative{}, false
	}
	return *c, true
}

func (s *CreativeStore) query(ctx context.Context, now time.Time, keep func(*domain.Creative) bool) ([]domain.Creative, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	s.mu.RLock()
	out := make([]domain.Creative, 0)
	for _, c := range s.creatives {
		if selection.IsEligible(*c, now) && keep(c) {
			out = append(out, *c)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ScoreValue() != out[j].ScoreValue() {
			return out[i].ScoreValue() > out[j].ScoreValue()
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > s.maxPool {
		out = out[:s.maxPool]
	}
	return out, nil
}

func (s *CreativeStore) ByScenarioAndSlot(ctx context.Context, scenarioCode, slot string, now time.Time) ([]domain.Creative, error) {
	return s.query(ctx, now, func(c *domain.Creative) bool {
		return c.ScenarioCode == scenarioCode && c.SlotName == slot
	})
}

func (s *CreativeStore) BySegmentAndSlot(ctx context.Context, segment selection.Segment, slot string, now time.Time) ([]domain.Creative, error) {
	return s.query(ctx, now, func(c *domain.Creative) bool {
		return c.TargetSegment == string(segment) && c.SlotName == slot
	})
}

func (s *CreativeStore) BySlotOnly(ctx context.Context, slot string, now time.Time) ([]domain.Creative, error) {
	return s.query(ctx, now, func(c *domain.Creative) bool {
		return c.SlotName == slot
	})
}

func (s *CreativeStore) FindByID(ctx context.Context, id uint64) (domain.Creative, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Creative{}, false, fmt.Errorf("context error: %w", err)
	}
	c, ok := s.Get(id)
	return c, ok, nil
}

func (s *CreativeStore) update(ctx context.Context, id uint64, apply func(*domain.Creative)) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.creatives[id]
	if !ok {
		return delivery.ErrCreativeNotFound
	}
	apply(c)
	c.UpdatedAt = time.Now()
	return nil
}

func (s *CreativeStore) IncrementImpression(ctx context.Context, id uint64, charge int64) error {
	return s.update(ctx, id, func(c *domain.Creative) {
		c.ImpressionCount++
		c.SpentAmount += charge
	})
}

func (s *CreativeStore) IncrementClick(ctx context.Context, id uint64, charge int64) error {
	return s.update(ctx, id, func(c *domain.Creative) {
		c.ClickCount++
		c.SpentAmount += charge
	})
}

func (s *CreativeStore) ExhaustIfOverBudget(ctx context.Context, id uint64) (bool, error) {
	paused := false
	err := s.update(ctx, id, func(c *domain.Creative) {
		if c.Status == domain.CreativeStatusActive && c.Budget != nil && c.SpentAmount >= *c.Budget {
			c.Status = domain.CreativeStatusPaused
			paused = true
		}
	})
	return paused, err
}

// ActiveCountsByScenario counts active creatives per scenario code.
func (s *CreativeStore) ActiveCountsByScenario(ctx context.Context) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int64)
	for _, c := range s.creatives {
		if c.Status == domain.CreativeStatusActive && c.ScenarioCode != "" {
			out[c.ScenarioCode]++
		}
	}
	return out, nil
}

type seedCreative struct {
	ID            uint64     `yaml:"id"`
	Title         string     `yaml:"title"`
	Slot          string     `yaml:"slot"`
	Scenario      string     `yaml:"scenario"`
	TargetSegment string     `yaml:"target_segment"`
	Score         *float64   `yaml:"score"`
	Status        string     `yaml:"status"`
	Billing       string     `yaml:"billing"`
	Budget        *int64     `yaml:"budget"`
	Spent         int64      `yaml:"spent"`
	Impressions   int64      `yaml:"impressions"`
	Clicks        int64      `yaml:"clicks"`
	StartAt       *time.Time `yaml:"start_at"`
	EndAt         *time.Time `yaml:"end_at"`
}

// LoadFile builds a store from a YAML list of creatives. Missing status
// defaults to ACTIVE and missing billing to CPC.
func LoadFile(path string) (*CreativeStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read creatives %s: %w", path, err)
	}

	var seeds []seedCreative
	if err := yaml.Unmarshal(raw, &seeds); err != nil {
		return nil, fmt.Errorf("failed to decode creatives: %w", err)
	}

	s := NewCreativeStore()
	for _, sd := range seeds {
		if sd.ID == 0 {
			return nil, fmt.Errorf("creative %q has no id", sd.Title)
		}
		c := domain.Creative{
			ID:              sd.ID,
			Title:           sd.Title,
			SlotName:        sd.Slot,
			ScenarioCode:    sd.Scenario,
			TargetSegment:   sd.TargetSegment,
			Score:           sd.Score,
			Status:          domain.CreativeStatus(sd.Status),
			BillingType:     domain.BillingType(sd.Billing),
			Budget:          sd.Budget,
			SpentAmount:     sd.Spent,
			ImpressionCount: sd.Impressions,
			ClickCount:      sd.Clicks,
			StartAt:         sd.StartAt,
			EndAt:           sd.EndAt,
		}
		if c.Status == "" {
			c.Status = domain.CreativeStatusActive
		}
		if c.BillingType == "" {
			c.BillingType = domain.BillingCPC
		}
		s.Put(c)
	}

	return s, nil
}
