package selection

import (
	"context"
	"time"
)

type ctxKey string

const TraceIDKey ctxKey = "trace_id"

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	if v := ctx.Value(TraceIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

type Strategy string

const (
	StrategyScenarioMatch   Strategy = "SCENARIO_MATCH"
	StrategyControlScenario Strategy = "CONTROL_SCENARIO"
	StrategySegmentBased    Strategy = "SEGMENT_BASED"
	StrategyPositionBased   Strategy = "POSITION_BASED"
)

const (
	LevelScenario = iota
	LevelDefault
	LevelSegmentWide
	LevelSlotWide
)

// Step records one cascade level that was actually queried.
type Step struct {
	Level      int      `json:"level"`
	Strategy   Strategy `json:"strategy"`
	Code       string   `json:"code,omitempty"`
	Candidates int      `json:"candidates"`
	Eligible   int      `json:"eligible"`
	Matched    int      `json:"matched"`
	Selected   int      `json:"selected"`
	Success    bool     `json:"success"`
}

// SelectionTrace is the per-slot diagnostic of one request.
type SelectionTrace struct {
	Slot             string        `json:"slot"`
	Segment          Segment       `json:"segment"`
	OriginalScenario string        `json:"original_scenario"`
	FinalScenario    string        `json:"final_scenario,omitempty"`
	FinalStrategy    Strategy      `json:"final_strategy,omitempty"`
	FallbackUsed     bool          `json:"fallback_used"`
	FallbackLevel    int           `json:"fallback_level"`
	Steps            []Step        `json:"steps"`
	SelectedCount    int           `json:"selected_count"`
	Elapsed          time.Duration `json:"elapsed_ns"`
	Err              string        `json:"error,omitempty"`
}

// Attempted lists the strategies queried, in order.
func (t SelectionTrace) Attempted() []Strategy {
	out := make([]Strategy, 0, len(t.Steps))
	for _, s := range t.Steps {
		out = append(out, s.Strategy)
	}
	return out
}
