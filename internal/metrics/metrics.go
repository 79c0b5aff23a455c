package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// TourGenerations counts generation runs by outcome (ok, empty, invalid, error)
	TourGenerations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tour_generations_total", Help: "Tour generation runs by outcome."},
		[]string{"outcome"},
	)
	// TourDuration tracks end-to-end generation time in seconds
	TourDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "tour_generation_duration_seconds", Help: "Tour generation duration in seconds.", Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10}},
	)
	// TourStops records the number of stops per generated tour
	TourStops = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "tour_stops", Help: "Stops per generated tour.", Buckets: []float64{0, 1, 2, 4, 6, 8, 10, 12, 15, 20}},
	)
	// GapFills counts stops inserted by the gap filler
	GapFills = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "tour_gap_fills_total", Help: "Venue stops inserted into oversized gaps."},
	)
	// GeocodeLookups counts geocoder outcomes (cache_hit, resolved, not_found)
	GeocodeLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "geocode_lookups_total", Help: "Geocode lookups by outcome."},
		[]string{"outcome"},
	)
)

// RegisterDefault registers collectors to the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(TourGenerations)
		Registry.MustRegister(TourDuration)
		Registry.MustRegister(TourStops)
		Registry.MustRegister(GapFills)
		Registry.MustRegister(GeocodeLookups)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
