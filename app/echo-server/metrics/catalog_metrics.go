package metrics

import (
	"recipingAds/business/selection"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	BuildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ads_build_info",
		Help: "Build and environment of the running ad server",
	}, []string{"version", "environment"})

	CatalogScenarios = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ads_catalog_scenarios",
		Help: "Active scenarios in the loaded catalog per segment",
	}, []string{"segment"})

	CatalogWarnings = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ads_catalog_warnings",
		Help: "Warnings raised while loading the scenario catalog",
	})
)

func Init() {
	prometheus.MustRegister(BuildInfo, CatalogScenarios, CatalogWarnings)
}

// RecordCatalog publishes the shape of the catalog the server started with.
func RecordCatalog(c *selection.Catalog) {
	perSegment := make(map[selection.Segment]int)
	for _, sc := range c.ActiveScenarios() {
		perSegment[sc.Segment]++
	}
	CatalogScenarios.Reset()
	for seg, n := range perSegment {
		CatalogScenarios.WithLabelValues(string(seg)).Set(float64(n))
	}
	CatalogWarnings.Set(float64(len(c.Warnings())))
}
