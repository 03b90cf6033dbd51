package serving

import (
	"context"
	"fmt"
	"time"

	"recipingAds/business/selection"
	"recipingAds/domain"
	"recipingAds/pkg/metrics"

	"go.uber.org/zap"
)

// ProfileLookup resolves requester attributes. ok is false for unknown users.
type ProfileLookup interface {
	Lookup(ctx context.Context, userID uint) (domain.UserProfile, bool, error)
}

type ImpressionRecorder interface {
	RecordImpressions(ctx context.Context, res selection.Result) int
}

type Config struct {
	RequestTimeout time.Duration
}

const defaultRequestTimeout = 800 * time.Millisecond

type Service struct {
	selector    *selection.Selector
	profiles    ProfileLookup
	impressions ImpressionRecorder
	cfg         Config
	log         *zap.SugaredLogger
}

func NewService(selector *selection.Selector, profiles ProfileLookup, impressions ImpressionRecorder, cfg Config, log *zap.SugaredLogger) *Service {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{
		selector:    selector,
		profiles:    profiles,
		impressions: impressions,
		cfg:         cfg,
		log:         log,
	}
}

// Serve selects creatives for every active slot and records one impression
// per served creative.
func (s *Service) Serve(ctx context.Context, userID uint) (map[string][]domain.CreativeView, error) {
	start := time.Now()
	defer func() {
		metrics.ServeDuration.Observe(time.Since(start).Seconds())
	}()
	metrics.ServeRequests.Inc()

	if err := ctx.Err(); err != nil {
		s.log.Debugw("request already done, serving empty slots",
			"trace_id", selection.TraceIDFromContext(ctx),
			"error", err,
		)
		return s.emptySlots(), nil
	}

	res, err := s.selectFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.impressions != nil {
		// impressions outlive the request deadline
		s.impressions.RecordImpressions(context.WithoutCancel(ctx), res)
	}

	out := make(map[string][]domain.CreativeView, len(res.Slots))
	for slot, creatives := range res.Slots {
		sc := res.Assignments[slot]
		views := make([]domain.CreativeView, 0, len(creatives))
		for _, c := range creatives {
			v := c.View()
			v.ExperimentScenario = sc.Code
			v.ExperimentGroup = string(sc.Group)
			views = append(views, v)
		}
		out[slot] = views
	}

	return out, nil
}

func (s *Service) emptySlots() map[string][]domain.CreativeView {
	slots := s.selector.Catalog().ActiveSlots()
	out := make(map[string][]domain.CreativeView, len(slots))
	for _, slot := range slots {
		out[slot.Name] = []domain.CreativeView{}
	}
	return out
}

// Debug runs selection without recording impressions and returns the full
// result including traces.
func (s *Service) Debug(ctx context.Context, userID uint) (selection.Result, error) {
	return s.selectFor(ctx, userID)
}

func (s *Service) Stats(ctx context.Context, userID uint) (selection.Stats, error) {
	if err := ctx.Err(); err != nil {
		return selection.Stats{}, fmt.Errorf("context error: %w", err)
	}

	st, err := s.selector.Stats(ctx, s.userContext(ctx, userID))
	if err != nil {
		return selection.Stats{}, fmt.Errorf("failed to compute selection stats: %w", err)
	}
	return st, nil
}

func (s *Service) selectFor(ctx context.Context, userID uint) (selection.Result, error) {
	if err := ctx.Err(); err != nil {
		return selection.Result{}, fmt.Errorf("context error: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	return s.selector.SelectAll(ctx, s.userContext(ctx, userID)), nil
}

// userContext never fails: a lookup error or unknown user is served with
// no attributes while keeping the user id for experiment assignment.
func (s *Service) userContext(ctx context.Context, userID uint) *selection.UserContext {
	if userID == 0 {
		return nil
	}
	if s.profiles == nil {
		return &selection.UserContext{UserID: userID}
	}

	p, ok, err := s.profiles.Lookup(ctx, userID)
	if err != nil {
		s.log.Warnw("profile lookup failed, serving without attributes",
			"trace_id", selection.TraceIDFromContext(ctx),
			"user_id", userID,
			"error", err,
		)
		return &selection.UserContext{UserID: userID}
	}
	if !ok {
		return &selection.UserContext{UserID: userID}
	}

	p.UserID = userID
	return selection.UserContextFromProfile(p)
}
