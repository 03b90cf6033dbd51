package selection

import (
	"context"
	"fmt"
	"hash/fnv"

	"go.uber.org/zap"
)

// Assigner maps (user, segment) to an experiment scenario. The mapping is a
// pure function of its inputs so repeated requests land in the same group.
type Assigner struct {
	catalog *Catalog
	log     *zap.SugaredLogger
}

func NewAssigner(catalog *Catalog, log *zap.SugaredLogger) *Assigner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Assigner{catalog: catalog, log: log}
}

// GroupFor buckets a user into A or B for a segment.
func GroupFor(userID uint, seg Segment) Group {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprintf("%d:%s", userID, seg)))
	if h.Sum32()%2 == 0 {
		return GroupA
	}
	return GroupB
}

// Assign never fails: anything it cannot resolve lands on the default
// scenario. A configured experiment with a missing arm is logged as a
// configuration error.
func (a *Assigner) Assign(ctx context.Context, userID uint, seg Segment, slot string) Scenario {
	def := a.catalog.DefaultScenario()

	if userID == 0 || !a.catalog.IsActiveSegment(seg) {
		return def
	}

	if !a.catalog.HasExperiment(seg) {
		a.log.Debugw("no experiment for segment",
			"trace_id", TraceIDFromContext(ctx),
			"segment", seg,
			"slot", slot,
		)
		return def
	}

	group := GroupFor(userID, seg)
	sc, ok := a.catalog.Scenario(seg, group)
	if !ok {
		ScenarioConfigErrorsTotal.WithLabelValues(string(seg), string(group)).Inc()
		a.log.Warnw("scenario not configured, serving default",
			"trace_id", TraceIDFromContext(ctx),
			"user_id", userID,
			"segment", seg,
			"group", group,
			"slot", slot,
			"default_scenario", def.Code,
		)
		return def
	}

	return sc
}
