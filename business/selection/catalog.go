package selection

import (
	"errors"
	"fmt"
	"sort"

	"recipingAds/domain"
)

type Segment string

const (
	SegmentGeneralAll      Segment = "GENERAL_ALL"
	SegmentDietFemaleAll   Segment = "DIET_FEMALE_ALL"
	SegmentMaleCookStarter Segment = "MALE_COOK_STARTER"
	SegmentActiveMom       Segment = "ACTIVE_MOM"
)

type Group string

const (
	GroupA       Group = "A"
	GroupB       Group = "B"
	GroupControl Group = "CONTROL"
)

var ErrCatalogInvalid = errors.New("invalid selection catalog")

type SegmentInfo struct {
	Code        Segment `yaml:"code" validate:"required"`
	ID          string  `yaml:"id" validate:"required"`
	Description string  `yaml:"description"`
	Active      bool    `yaml:"active"`
}

type MessageVariant struct {
	Code        string `yaml:"code" validate:"required"`
	Description string `yaml:"description"`
	Active      bool   `yaml:"active"`
}

type Scenario struct {
	Code        string  `yaml:"code" validate:"required"`
	Segment     Segment `yaml:"segment" validate:"required"`
	Variant     string  `yaml:"variant" validate:"required"`
	Group       Group   `yaml:"group" validate:"required,oneof=A B CONTROL"`
	Description string  `yaml:"description"`
	Active      bool    `yaml:"active"`
}

type Slot struct {
	Name     string `yaml:"name" validate:"required"`
	Capacity int    `yaml:"capacity" validate:"min=1"`
	Active   bool   `yaml:"active"`
}

// Rule maps requester attributes to a segment. An empty attribute list
// matches any value, including an unknown one.
type Rule struct {
	Segment   Segment                  `yaml:"segment" validate:"required"`
	Sexes     []domain.Sex             `yaml:"sexes"`
	Ages      []domain.AgeBracket      `yaml:"ages"`
	Interests []domain.InterestKeyword `yaml:"interests"`
}

// CatalogDef is the raw, unvalidated catalog as written by operators.
type CatalogDef struct {
	DefaultScenario string           `yaml:"default_scenario" validate:"required"`
	Phase2Rules     bool             `yaml:"phase2_rules"`
	Segments        []SegmentInfo    `yaml:"segments" validate:"required,min=1,dive"`
	Variants        []MessageVariant `yaml:"variants" validate:"required,min=1,dive"`
	Scenarios       []Scenario       `yaml:"scenarios" validate:"required,min=1,dive"`
	Slots           []Slot           `yaml:"slots" validate:"required,min=1,dive"`
	Rules           []Rule           `yaml:"rules" validate:"dive"`
}

type scenarioKey struct {
	segment Segment
	group   Group
}

// Catalog is the validated, read-only registry of segments, scenarios,
// slots and classification rules. Safe for concurrent use.
type Catalog struct {
	segments        map[Segment]SegmentInfo
	variants        map[string]MessageVariant
	scenarios       map[scenarioKey]Scenario
	byCode          map[string]Scenario
	experiments     map[Segment]bool
	slots           []Slot
	rules           []Rule
	defaultScenario Scenario
	warnings        []string
}

// NewCatalog validates def and builds the lookup tables. Ambiguous or
// dangling configuration is rejected; an experiment missing one of its arms
// is accepted and reported through Warnings.
func NewCatalog(def CatalogDef) (*Catalog, error) {
	c := &Catalog{
		segments:    make(map[Segment]SegmentInfo, len(def.Segments)),
		variants:    make(map[string]MessageVariant, len(def.Variants)),
		scenarios:   make(map[scenarioKey]Scenario),
		byCode:      make(map[string]Scenario, len(def.Scenarios)),
		experiments: make(map[Segment]bool),
	}

	var problems []error

	for _, s := range def.Segments {
		if _, dup := c.segments[s.Code]; dup {
			problems = append(problems, fmt.Errorf("duplicate segment %s", s.Code))
			continue
		}
		c.segments[s.Code] = s
	}
	if _, ok := c.segments[SegmentGeneralAll]; !ok {
		problems = append(problems, fmt.Errorf("segment %s is required", SegmentGeneralAll))
	}

	for _, v := range def.Variants {
		if _, dup := c.variants[v.Code]; dup {
			problems = append(problems, fmt.Errorf("duplicate message variant %s", v.Code))
			continue
		}
		c.variants[v.Code] = v
	}

	for _, sc := range def.Scenarios {
		if _, dup := c.byCode[sc.Code]; dup {
			problems = append(problems, fmt.Errorf("duplicate scenario code %s", sc.Code))
			continue
		}
		c.byCode[sc.Code] = sc

		if _, ok := c.segments[sc.Segment]; !ok {
			problems = append(problems, fmt.Errorf("scenario %s references unknown segment %s", sc.Code, sc.Segment))
		}
		if _, ok := c.variants[sc.Variant]; !ok {
			problems = append(problems, fmt.Errorf("scenario %s references unknown variant %s", sc.Code, sc.Variant))
		}
		if !sc.Active {
			continue
		}

		key := scenarioKey{segment: sc.Segment, group: sc.Group}
		if prev, dup := c.scenarios[key]; dup {
			problems = append(problems, fmt.Errorf("scenarios %s and %s are both active for %s/%s",
				prev.Code, sc.Code, sc.Segment, sc.Group))
			continue
		}
		c.scenarios[key] = sc
		if sc.Group == GroupA || sc.Group == GroupB {
			c.experiments[sc.Segment] = true
		}
	}

	def0, ok := c.byCode[def.DefaultScenario]
	switch {
	case !ok:
		problems = append(problems, fmt.Errorf("default scenario %q is not defined", def.DefaultScenario))
	case !def0.Active:
		problems = append(problems, fmt.Errorf("default scenario %s is inactive", def0.Code))
	case def0.Group != GroupControl:
		problems = append(problems, fmt.Errorf("default scenario %s must belong to group %s", def0.Code, GroupControl))
	default:
		c.defaultScenario = def0
	}

	seenSlots := make(map[string]struct{}, len(def.Slots))
	for _, sl := range def.Slots {
		if _, dup := seenSlots[sl.Name]; dup {
			problems = append(problems, fmt.Errorf("duplicate slot %s", sl.Name))
			continue
		}
		seenSlots[sl.Name] = struct{}{}
		if sl.Capacity < 1 {
			problems = append(problems, fmt.Errorf("slot %s capacity must be at least 1", sl.Name))
			continue
		}
		c.slots = append(c.slots, sl)
	}

	for i, r := range def.Rules {
		info, ok := c.segments[r.Segment]
		if !ok {
			problems = append(problems, fmt.Errorf("rule %d targets unknown segment %s", i, r.Segment))
			continue
		}
		if !info.Active && !def.Phase2Rules {
			continue
		}
		c.rules = append(c.rules, r)
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrCatalogInvalid, errors.Join(problems...))
	}

	for seg := range c.experiments {
		for _, g := range []Group{GroupA, GroupB} {
			if _, ok := c.scenarios[scenarioKey{segment: seg, group: g}]; !ok {
				c.warnings = append(c.warnings, fmt.Sprintf("segment %s has no active scenario for group %s", seg, g))
			}
		}
	}
	sort.Strings(c.warnings)

	return c, nil
}

func (c *Catalog) DefaultScenario() Scenario {
	return c.defaultScenario
}

func (c *Catalog) Segment(code Segment) (SegmentInfo, bool) {
	s, ok := c.segments[code]
	return s, ok
}

func (c *Catalog) IsActiveSegment(code Segment) bool {
	s, ok := c.segments[code]
	return ok && s.Active
}

// HasExperiment reports whether any active A or B scenario exists for seg.
func (c *Catalog) HasExperiment(seg Segment) bool {
	return c.experiments[seg]
}

func (c *Catalog) Scenario(seg Segment, group Group) (Scenario, bool) {
	sc, ok := c.scenarios[scenarioKey{segment: seg, group: group}]
	return sc, ok
}

func (c *Catalog) ScenarioByCode(code string) (Scenario, bool) {
	sc, ok := c.byCode[code]
	return sc, ok
}

// ActiveScenarios returns every active scenario ordered by code.
func (c *Catalog) ActiveScenarios() []Scenario {
	out := make([]Scenario, 0, len(c.scenarios))
	for _, sc := range c.scenarios {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// ActiveSlots returns the active slots in catalog order.
func (c *Catalog) ActiveSlots() []Slot {
	out := make([]Slot, 0, len(c.slots))
	for _, sl := range c.slots {
		if sl.Active {
			out = append(out, sl)
		}
	}
	return out
}

func (c *Catalog) Slot(name string) (Slot, bool) {
	for _, sl := range c.slots {
		if sl.Name == name {
			return sl, true
		}
	}
	return Slot{}, false
}

func (c *Catalog) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

func (c *Catalog) Warnings() []string {
	return append([]string(nil), c.warnings...)
}
