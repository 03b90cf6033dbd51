package selection

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SlotsResolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "selection_slots_resolved_total",
			Help: "Slots resolved by the selection cascade, by slot and fallback level.",
		},
		[]string{"slot", "level"},
	)

	SlotErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "selection_slot_errors_total",
			Help: "Slots that resolved empty because selection failed.",
		},
		[]string{"slot"},
	)

	ScenarioConfigErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "selection_scenario_config_errors_total",
			Help: "Assignments that fell back to the default scenario because an experiment arm was missing.",
		},
		[]string{"segment", "group"},
	)
)

func init() {
	prometheus.MustRegister(SlotsResolvedTotal, SlotErrorsTotal, ScenarioConfigErrorsTotal)
}
