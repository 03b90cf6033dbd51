package domain

import (
	"time"

	"gorm.io/datatypes"
)

type AdEventType string

const (
	AdEventImpression      AdEventType = "IMPRESSION"
	AdEventClick           AdEventType = "CLICK"
	AdEventFallback        AdEventType = "FALLBACK"
	AdEventBudgetExhausted AdEventType = "BUDGET_EXHAUSTED"
	AdEventSlotError       AdEventType = "SLOT_ERROR"
)

// AdEvent is one row of the serving log. Impression and click rows double as
// the per-group experiment record.
type AdEvent struct {
	ID            string      `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	Type          AdEventType `gorm:"column:event_type;not null;index" json:"event_type"`
	TraceID       string      `gorm:"column:trace_id" json:"trace_id,omitempty"`
	UserID        uint        `gorm:"column:user_id" json:"user_id,omitempty"`
	CreativeID    uint64      `gorm:"column:creative_id;index" json:"creative_id,omitempty"`
	Slot          string      `gorm:"column:slot" json:"slot"`
	ScenarioCode  string      `gorm:"column:scenario_code;index" json:"scenario_code,omitempty"`
	Group         string      `gorm:"column:experiment_group" json:"group,omitempty"`
	Segment       string      `gorm:"column:segment" json:"segment,omitempty"`
	FallbackLevel int         `gorm:"column:fallback_level" json:"fallback_level"`
	ElapsedMs     int64       `gorm:"column:elapsed_ms" json:"elapsed_ms,omitempty"`
	CreatedAt     time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	Context datatypes.JSONMap `gorm:"column:context;type:jsonb" json:"context,omitempty"`
}

func (AdEvent) TableName() string {
	return "ad_events"
}

// ScenarioPerformance aggregates experiment events per scenario and group.
type ScenarioPerformance struct {
	ScenarioCode string  `json:"scenario_code"`
	Group        string  `json:"group"`
	Impressions  int64   `json:"impressions"`
	Clicks       int64   `json:"clicks"`
	CTR          float64 `json:"ctr"`
}

// ScenarioPoolHealth reports how many serveable creatives back a scenario.
type ScenarioPoolHealth struct {
	ScenarioCode    string `json:"scenario_code"`
	Segment         string `json:"segment"`
	Group           string `json:"group"`
	ActiveCreatives int64  `json:"active_creatives"`
	Empty           bool   `json:"empty"`
}
