package delivery

import "github.com/prometheus/client_golang/prometheus"

var (
	ImpressionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_impressions_total",
			Help: "Impressions recorded, by slot and experiment group.",
		},
		[]string{"slot", "group"},
	)

	ClicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_clicks_total",
			Help: "Clicks recorded, by slot and experiment group.",
		},
		[]string{"slot", "group"},
	)

	BudgetExhaustedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "delivery_budget_exhausted_total",
		Help: "Creatives paused because their budget ran out.",
	})

	CounterFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_counter_failures_total",
			Help: "Counter updates that failed, by operation.",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(ImpressionsTotal, ClicksTotal, BudgetExhaustedTotal, CounterFailuresTotal)
}
