package observability

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reviews", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "external_requests_total", Help: "Outbound storefront requests."},
		[]string{"platform", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reviews", Name: "external_request_duration_seconds",
			Help:    "Outbound storefront request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"platform", "endpoint"},
	)
	AggregationPages = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "aggregation_pages_total", Help: "Page attempts per aggregation loop."},
		[]string{"platform", "outcome"}, // outcome: ok|error
	)
	Exports = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "exports_total", Help: "CSV exports written."},
		[]string{"platform"},
	)
	ExportBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "export_bytes_total", Help: "Bytes of CSV written."},
		[]string{"platform"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
)

// Serve starts the standalone metrics listener when METRICS_ADDR is set.
func Serve() {
	addr := os.Getenv("METRICS_ADDR")
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency,
		AggregationPages, Exports, ExportBytes, CacheEvents)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(platform, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(platform, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(platform, endpoint).Observe(dur.Seconds())
}

func ObservePage(platform, outcome string) {
	AggregationPages.WithLabelValues(platform, outcome).Inc()
}

func ObserveExport(platform string, bytes int64) {
	Exports.WithLabelValues(platform).Inc()
	ExportBytes.WithLabelValues(platform).Add(float64(bytes))
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}
