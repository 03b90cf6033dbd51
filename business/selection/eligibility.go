package selection

import (
	"time"

	"recipingAds/domain"
)

// IsEligible reports whether a creative may be served at now: it must be
// active, inside its schedule window and under budget. Bounds are inclusive.
func IsEligible(c domain.Creative, now time.Time) bool {
	if c.Status != domain.CreativeStatusActive {
		return false
	}
	if c.StartAt != nil && now.Before(*c.StartAt) {
		return false
	}
	if c.EndAt != nil && now.After(*c.EndAt) {
		return false
	}
	if c.Budget != nil && c.SpentAmount >= *c.Budget {
		return false
	}
	return true
}

// Matches reports whether a creative may be shown to a requester in seg.
// Untargeted creatives and unknown requester segments always match.
func Matches(c domain.Creative, seg Segment) bool {
	if c.TargetSegment == "" || Segment(c.TargetSegment) == SegmentGeneralAll {
		return true
	}
	if seg == "" {
		return true
	}
	return Segment(c.TargetSegment) == seg
}

func filterEligible(pool []domain.Creative, now time.Time) []domain.Creative {
	out := make([]domain.Creative, 0, len(pool))
	for _, c := range pool {
		if IsEligible(c, now) {
			out = append(out, c)
		}
	}
	return out
}

func filterMatching(pool []domain.Creative, seg Segment) []domain.Creative {
	out := make([]domain.Creative, 0, len(pool))
	for _, c := range pool {
		if Matches(c, seg) {
			out = append(out, c)
		}
	}
	return out
}
