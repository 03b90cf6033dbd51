package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Latency of a full serve request, selection plus impression recording
	ServeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ads_serve_duration_seconds",
		Help:    "Latency of ad serve requests",
		Buckets: prometheus.DefBuckets,
	})

	ServeRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ads_serve_requests_total",
		Help: "Total number of ad serve requests",
	})

	// Refreshed whenever the scenario pool report is computed
	ActiveCreatives = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ads_active_count",
		Help: "Active creatives per scenario",
	}, []string{"scenario"})
)

func Init() {
	prometheus.MustRegister(
		ServeDuration,
		ServeRequests,
		ActiveCreatives,
	)
}
