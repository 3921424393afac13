package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestsTotal counts outbound calls to the discussion API.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discutex_api_requests_total",
		Help: "Outbound API requests by method and status code",
	}, []string{"code", "method"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "discutex_api_request_duration_seconds",
		Help:    "Outbound API request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"code", "method"})

	PageRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discutex_page_requests_total",
		Help: "Frontend requests by route pattern, method and status code",
	}, []string{"route", "method", "code"})

	PageRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "discutex_page_request_duration_seconds",
		Help:    "Frontend request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	// EnrichmentLookups counts per response author lookups by outcome.
	EnrichmentLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discutex_enrichment_lookups_total",
		Help: "Response author lookups by outcome",
	}, []string{"outcome"})

	// StaleResultsDropped counts results discarded because the view was
	// closed or a newer load superseded them.
	StaleResultsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discutex_stale_results_dropped_total",
		Help: "Results dropped after view teardown or supersession",
	}, []string{"view"})

	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discutex_rate_limited_total",
		Help: "Frontend submissions rejected by the rate limiter",
	}, []string{"action"})
)

// InstrumentTransport wraps next with request counters and latency
// histograms.
func InstrumentTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperCounter(APIRequestsTotal,
		promhttp.InstrumentRoundTripperDuration(APIRequestDuration, next))
}
