package reporting

import (
	"context"
	"fmt"
	"time"

	"recipingAds/business/selection"
	"recipingAds/domain"
	"recipingAds/pkg/metrics"
)

type ActiveCounter interface {
	ActiveCountsByScenario(ctx context.Context) (map[string]int64, error)
}

type PerformanceReader interface {
	ScenarioPerformance(ctx context.Context, since time.Time) ([]domain.ScenarioPerformance, error)
}

type Service struct {
	catalog     *selection.Catalog
	counts      ActiveCounter
	performance PerformanceReader
	now         func() time.Time
}

func NewService(catalog *selection.Catalog, counts ActiveCounter, performance PerformanceReader) *Service {
	return &Service{
		catalog:     catalog,
		counts:      counts,
		performance: performance,
		now:         time.Now,
	}
}

// PoolHealth lists every active scenario with the number of active
// creatives behind it. Empty pools mean every request for that scenario
// falls back.
func (s *Service) PoolHealth(ctx context.Context) ([]domain.ScenarioPoolHealth, error) {
	counts, err := s.counts.ActiveCountsByScenario(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pool counts: %w", err)
	}

	scenarios := s.catalog.ActiveScenarios()
	out := make([]domain.ScenarioPoolHealth, 0, len(scenarios))
	for _, sc := range scenarios {
		n := counts[sc.Code]
		metrics.ActiveCreatives.WithLabelValues(sc.Code).Set(float64(n))
		out = append(out, domain.ScenarioPoolHealth{
			ScenarioCode:    sc.Code,
			Segment:         string(sc.Segment),
			Group:           string(sc.Group),
			ActiveCreatives: n,
			Empty:           n == 0,
		})
	}

	return out, nil
}

// Performance reports CTR per scenario and group over the trailing window.
func (s *Service) Performance(ctx context.Context, window time.Duration) ([]domain.ScenarioPerformance, error) {
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}

	rows, err := s.performance.ScenarioPerformance(ctx, s.now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario performance: %w", err)
	}
	return rows, nil
}
