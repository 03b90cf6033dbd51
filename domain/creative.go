package domain

import "time"

type CreativeStatus string

const (
	CreativeStatusDraft    CreativeStatus = "DRAFT"
	CreativeStatusPending  CreativeStatus = "PENDING"
	CreativeStatusActive   CreativeStatus = "ACTIVE"
	CreativeStatusPaused   CreativeStatus = "PAUSED"
	CreativeStatusExpired  CreativeStatus = "EXPIRED"
	CreativeStatusRejected CreativeStatus = "REJECTED"
	CreativeStatusDeleted  CreativeStatus = "DELETED"
)

type BillingType string

const (
	BillingCPC BillingType = "CPC"
	BillingCPM BillingType = "CPM"
)

// Creative is a single ad unit competing for a slot. Deleted creatives keep
// their row with Status = DELETED and are never returned by a candidate store.
type Creative struct {
	ID            uint64         `gorm:"primaryKey" json:"id"`
	AdvertiserID  uint64         `gorm:"column:advertiser_id" json:"advertiser_id"`
	Title         string         `gorm:"column:title;not null" json:"title"`
	ImageURL      string         `gorm:"column:image_url" json:"image_url"`
	TargetURL     string         `gorm:"column:target_url" json:"target_url"`
	SlotName      string         `gorm:"column:slot_name;not null;index:idx_creatives_slot" json:"slot_name"`
	ScenarioCode  string         `gorm:"column:scenario_code;index:idx_creatives_scenario_slot" json:"scenario_code"`
	TargetSegment string         `gorm:"column:target_segment;default:''" json:"target_segment,omitempty"`
	Score         *float64       `gorm:"column:score" json:"score,omitempty"`
	Status        CreativeStatus `gorm:"column:status;not null;default:DRAFT" json:"status"`
	StartAt       *time.Time     `gorm:"column:start_at" json:"start_at,omitempty"`
	EndAt         *time.Time     `gorm:"column:end_at" json:"end_at,omitempty"`

	Budget          *int64      `gorm:"column:budget" json:"budget,omitempty"`
	SpentAmount     int64       `gorm:"column:spent_amount;not null;default:0" json:"spent_amount"`
	BillingType     BillingType `gorm:"column:billing_type;not null;default:CPC" json:"billing_type"`
	ImpressionCount int64       `gorm:"column:impression_count;not null;default:0" json:"impression_count"`
	ClickCount      int64       `gorm:"column:click_count;not null;default:0" json:"click_count"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Creative) TableName() string {
	return "creatives"
}

// ScoreValue treats a missing score as zero.
func (c Creative) ScoreValue() float64 {
	if c.Score == nil {
		return 0
	}
	return *c.Score
}

// CTR is clicks over impressions, zero until the creative has been shown.
func (c Creative) CTR() float64 {
	if c.ImpressionCount <= 0 {
		return 0
	}
	return float64(c.ClickCount) / float64(c.ImpressionCount)
}

// Charge is the spend unit a single event of the given kind costs this creative.
func (c Creative) Charge(eventType AdEventType) int64 {
	switch {
	case c.BillingType == BillingCPM && eventType == AdEventImpression:
		return 1
	case c.BillingType == BillingCPC && eventType == AdEventClick:
		return 1
	}
	return 0
}

// CreativeView is the public shape returned to page renderers.
type CreativeView struct {
	ID           uint64 `json:"id"`
	Title        string `json:"title"`
	ImageURL     string `json:"image_url"`
	TargetURL    string `json:"target_url"`
	ScenarioCode string `json:"scenario_code,omitempty"`
	// Experiment arm the requester was assigned for this slot. Clients echo
	// it back on click so clicks and impressions share one report key.
	ExperimentScenario string `json:"experiment_scenario,omitempty"`
	ExperimentGroup    string `json:"experiment_group,omitempty"`
}

func (c Creative) View() CreativeView {
	return CreativeView{
		ID:           c.ID,
		Title:        c.Title,
		ImageURL:     c.ImageURL,
		TargetURL:    c.TargetURL,
		ScenarioCode: c.ScenarioCode,
	}
}
