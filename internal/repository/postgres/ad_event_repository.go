package postgres

import (
	"context"
	"fmt"
	"time"

	"recipingAds/domain"
	"recipingAds/internal/events"

	"gorm.io/gorm"
)

type AdEventRepository struct {
	DB *gorm.DB
}

var _ events.EventWriter = (*AdEventRepository)(nil)

func NewAdEventRepository(db *gorm.DB) *AdEventRepository {
	return &AdEventRepository{DB: db}
}

func (r *AdEventRepository) SaveEvent(ctx context.Context, event domain.AdEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("failed to save ad event: %w", err)
	}

	return nil
}

type performanceRow struct {
	ScenarioCode string `gorm:"column:scenario_code"`
	Group        string `gorm:"column:experiment_group"`
	Impressions  int64  `gorm:"column:impressions"`
	Clicks       int64  `gorm:"column:clicks"`
}

// ScenarioPerformance aggregates impressions and clicks per scenario and
// experiment group since the given time.
func (r *AdEventRepository) ScenarioPerformance(ctx context.Context, since time.Time) ([]domain.ScenarioPerformance, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rows []performanceRow
	err := r.DB.WithContext(ctx).
		Model(&domain.AdEvent{}).
		Select(
			"scenario_code, experiment_group, "+
				"SUM(CASE WHEN event_type = ? THEN 1 ELSE 0 END) AS impressions, "+
				"SUM(CASE WHEN event_type = ? THEN 1 ELSE 0 END) AS clicks",
			domain.AdEventImpression, domain.AdEventClick,
		).
		Where("event_type IN ? AND created_at >= ? AND scenario_code <> ''",
			[]domain.AdEventType{domain.AdEventImpression, domain.AdEventClick}, since).
		Group("scenario_code, experiment_group").
		Order("scenario_code, experiment_group").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate scenario performance: %w", err)
	}

	out := make([]domain.ScenarioPerformance, 0, len(rows))
	for _, row := range rows {
		p := domain.ScenarioPerformance{
			ScenarioCode: row.ScenarioCode,
			Group:        row.Group,
			Impressions:  row.Impressions,
			Clicks:       row.Clicks,
		}
		if row.Impressions > 0 {
			p.CTR = float64(row.Clicks) / float64(row.Impressions)
		}
		out = append(out, p)
	}

	return out, nil
}

// Migrate creates or updates the tables this service owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.Creative{}, &domain.AdEvent{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}
