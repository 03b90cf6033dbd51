package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"recipingAds/business/selection"
	"recipingAds/domain"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var DroppedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ad_events_dropped_total",
		Help: "Serving events dropped before persistence, by reason.",
	},
	[]string{"reason"},
)

func init() {
	prometheus.MustRegister(DroppedTotal)
}

var ErrSinkClosed = errors.New("event sink closed")

// LogSink writes every event as a structured log line.
type LogSink struct {
	log *zap.SugaredLogger
}

var _ selection.EventSink = (*LogSink)(nil)

func NewLogSink(log *zap.SugaredLogger) *LogSink {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Emit(_ context.Context, e domain.AdEvent) {
	kv := []any{
		"event_type", e.Type,
		"trace_id", e.TraceID,
		"user_id", e.UserID,
		"slot", e.Slot,
		"scenario", e.ScenarioCode,
		"group", e.Group,
		"segment", e.Segment,
	}
	if e.CreativeID != 0 {
		kv = append(kv, "creative_id", e.CreativeID)
	}
	if e.Type == domain.AdEventFallback || e.Type == domain.AdEventSlotError {
		kv = append(kv, "fallback_level", e.FallbackLevel, "elapsed_ms", e.ElapsedMs)
	}
	for k, v := range e.Context {
		kv = append(kv, k, v)
	}

	switch e.Type {
	case domain.AdEventSlotError:
		s.log.Warnw("ad_event", kv...)
	default:
		s.log.Infow("ad_event", kv...)
	}
}

// EventWriter persists one event.
type EventWriter interface {
	SaveEvent(ctx context.Context, e domain.AdEvent) error
}

type AsyncConfig struct {
	BufferSize   int
	WriteTimeout time.Duration
}

// AsyncSink queues events on a bounded buffer and persists them from a
// single background worker. Emit never blocks; a full buffer drops events.
type AsyncSink struct {
	writer EventWriter
	cfg    AsyncConfig
	log    *zap.SugaredLogger
	now    func() time.Time

	queue chan domain.AdEvent
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

var _ selection.EventSink = (*AsyncSink)(nil)

func NewAsyncSink(writer EventWriter, cfg AsyncConfig, log *zap.SugaredLogger) *AsyncSink {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Second
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	s := &AsyncSink{
		writer: writer,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
		queue:  make(chan domain.AdEvent, cfg.BufferSize),
		done:   make(chan struct{}),
	}
	go s.run()

	return s
}

func (s *AsyncSink) Emit(_ context.Context, e domain.AdEvent) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		DroppedTotal.WithLabelValues("closed").Inc()
		return
	}

	select {
	case s.queue <- e:
	default:
		DroppedTotal.WithLabelValues("buffer_full").Inc()
	}
}

func (s *AsyncSink) run() {
	defer close(s.done)

	for e := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
		if err := s.writer.SaveEvent(ctx, e); err != nil {
			DroppedTotal.WithLabelValues("write_error").Inc()
			s.log.Errorw("failed to persist ad event",
				"event_id", e.ID,
				"event_type", e.Type,
				"trace_id", e.TraceID,
				"error", err,
			)
		}
		cancel()
	}
}

// Close stops accepting events and waits for the queue to drain or ctx to end.
func (s *AsyncSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSinkClosed
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Multi fans an event out to several sinks in order.
type Multi []selection.EventSink

func (m Multi) Emit(ctx context.Context, e domain.AdEvent) {
	for _, s := range m {
		s.Emit(ctx, e)
	}
}
