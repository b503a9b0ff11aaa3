package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "poi_search_duration_seconds",
		Help:    "Time spent answering POI searches.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind", "result"})

	searchResults = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "poi_search_results",
		Help:    "Total matches per POI search before pagination.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
	}, []string{"kind"})
)
