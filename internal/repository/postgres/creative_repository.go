package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recipingAds/business/delivery"
	"recipingAds/business/selection"
	"recipingAds/domain"

	"gorm.io/gorm"
)

const defaultMaxPool = 200

type CreativeRepository struct {
	DB      *gorm.DB
	MaxPool int
}

var (
	_ selection.CandidateStore = (*CreativeRepository)(nil)
	_ delivery.CounterStore    = (*CreativeRepository)(nil)
)

func NewCreativeRepository(db *gorm.DB, maxPool int) *CreativeRepository {
	if maxPool <= 0 {
		maxPool = defaultMaxPool
	}
	return &CreativeRepository{DB: db, MaxPool: maxPool}
}

// ---- Candidates ----

// serveable mirrors selection.IsEligible so the pool limit is spent on rows
// that can actually be shown. Bounds are inclusive.
const serveable = " AND status = ?" +
	" AND (start_at IS NULL OR start_at <= ?)" +
	" AND (end_at IS NULL OR end_at >= ?)" +
	" AND (budget IS NULL OR spent_amount < budget)"

func (r *CreativeRepository) candidates(ctx context.Context, now time.Time, query string, args ...any) ([]domain.Creative, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	args = append(args, domain.CreativeStatusActive, now, now)

	var rows []domain.Creative
	err := r.DB.WithContext(ctx).
		Where(query+serveable, args...).
		Order("score DESC NULLS LAST").
		Limit(r.MaxPool).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query creatives: %w", err)
	}

	return rows, nil
}

func (r *CreativeRepository) ByScenarioAndSlot(ctx context.Context, scenarioCode, slot string, now time.Time) ([]domain.Creative, error) {
	return r.candidates(ctx, now, "scenario_code = ? AND slot_name = ?", scenarioCode, slot)
}

func (r *CreativeRepository) BySegmentAndSlot(ctx context.Context, segment selection.Segment, slot string, now time.Time) ([]domain.Creative, error) {
	return r.candidates(ctx, now, "target_segment = ? AND slot_name = ?", string(segment), slot)
}

func (r *CreativeRepository) BySlotOnly(ctx context.Context, slot string, now time.Time) ([]domain.Creative, error) {
	return r.candidates(ctx, now, "slot_name = ?", slot)
}

// ---- Counters ----

func (r *CreativeRepository) FindByID(ctx context.Context, id uint64) (domain.Creative, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Creative{}, false, fmt.Errorf("context error: %w", err)
	}

	var c domain.Creative
	err := r.DB.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Creative{}, false, nil
	}
	if err != nil {
		return domain.Creative{}, false, fmt.Errorf("failed to query creative: %w", err)
	}

	return c, true, nil
}

func (r *CreativeRepository) increment(ctx context.Context, id uint64, counter string, charge int64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	res := r.DB.WithContext(ctx).
		Model(&domain.Creative{}).
		Where("id = ?", id).
		Updates(map[string]any{
			counter:        gorm.Expr(counter+" + ?", 1),
			"spent_amount": gorm.Expr("spent_amount + ?", charge),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to increment %s: %w", counter, res.Error)
	}
	if res.RowsAffected == 0 {
		return delivery.ErrCreativeNotFound
	}

	return nil
}

func (r *CreativeRepository) IncrementImpression(ctx context.Context, id uint64, charge int64) error {
	return r.increment(ctx, id, "impression_count", charge)
}

func (r *CreativeRepository) IncrementClick(ctx context.Context, id uint64, charge int64) error {
	return r.increment(ctx, id, "click_count", charge)
}

// ExhaustIfOverBudget is a conditional update so that only one of several
// concurrent callers observes the transition.
func (r *CreativeRepository) ExhaustIfOverBudget(ctx context.Context, id uint64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context error: %w", err)
	}

	res := r.DB.WithContext(ctx).
		Model(&domain.Creative{}).
		Where("id = ? AND status = ? AND budget IS NOT NULL AND spent_amount >= budget", id, domain.CreativeStatusActive).
		Update("status", domain.CreativeStatusPaused)
	if res.Error != nil {
		return false, fmt.Errorf("failed to pause exhausted creative: %w", res.Error)
	}

	return res.RowsAffected == 1, nil
}

// ---- Reports ----

type scenarioCountRow struct {
	ScenarioCode string `gorm:"column:scenario_code"`
	Total        int64  `gorm:"column:total"`
}

func (r *CreativeRepository) ActiveCountsByScenario(ctx context.Context) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rows []scenarioCountRow
	err := r.DB.WithContext(ctx).
		Model(&domain.Creative{}).
		Select("scenario_code, COUNT(*) AS total").
		Where("status = ? AND scenario_code <> ''", domain.CreativeStatusActive).
		Group("scenario_code").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count active creatives: %w", err)
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.ScenarioCode] = row.Total
	}
	return out, nil
}
