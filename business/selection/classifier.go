package selection

import (
	"slices"

	"recipingAds/domain"
)

// UserContext carries the requester attributes known for one request.
// A nil *UserContext is a guest.
type UserContext struct {
	UserID   uint
	Sex      domain.Sex
	Age      domain.AgeBracket
	Interest domain.InterestKeyword
}

func UserContextFromProfile(p domain.UserProfile) *UserContext {
	return &UserContext{
		UserID:   p.UserID,
		Sex:      p.Sex,
		Age:      p.Age,
		Interest: p.Interest,
	}
}

// Classifier evaluates the catalog rules in order; the first match wins.
type Classifier struct {
	rules []Rule
}

func NewClassifier(catalog *Catalog) *Classifier {
	return &Classifier{rules: catalog.Rules()}
}

func (c *Classifier) Classify(user *UserContext) Segment {
	if user == nil {
		return SegmentGeneralAll
	}

	for _, r := range c.rules {
		if r.matches(user) {
			return r.Segment
		}
	}

	return SegmentGeneralAll
}

func (r Rule) matches(u *UserContext) bool {
	return anyOrContains(r.Sexes, u.Sex) &&
		anyOrContains(r.Ages, u.Age) &&
		anyOrContains(r.Interests, u.Interest)
}

func anyOrContains[T comparable](allowed []T, v T) bool {
	return len(allowed) == 0 || slices.Contains(allowed, v)
}
