package observability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "cofind", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cofind", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "cofind", Name: "external_requests_total", Help: "Outbound requests (places, llm)."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cofind", Name: "external_request_duration_seconds",
			Help: "Outbound request duration seconds.",
			// LLM completions run for seconds, not milliseconds.
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"service", "endpoint"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "cofind", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
	PipelineOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "cofind", Name: "recommend_outcomes_total", Help: "Recommendation pipeline terminal outcomes."},
		[]string{"outcome"}, // outcome: ok|irrelevant|no_keywords|no_match|llm_error|source_error
	)
	ValidatorSections = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "cofind", Name: "validator_sections_total", Help: "Recommendation sections by validator action."},
		[]string{"action"}, // action: kept|spliced|dropped
	)
	IngestOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "cofind", Name: "ingest_places_total", Help: "Place detail ingestions by outcome."},
		[]string{"outcome"}, // outcome: ok|miss|failed
	)
)

// Serve exposes reg on its own listener for binaries without an HTTP API.
// An empty addr disables it and returns nil.
func Serve(addr string, reg *prometheus.Registry) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
	return srv
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		HTTPRequests, HTTPLatency,
		ExternalRequests, ExternalLatency,
		CacheEvents,
		PipelineOutcomes, ValidatorSections,
		IngestOutcomes,
	)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObservePipeline(outcome string) {
	PipelineOutcomes.WithLabelValues(outcome).Inc()
}

func ObserveValidator(kept, spliced, dropped int) {
	ValidatorSections.WithLabelValues("kept").Add(float64(kept))
	ValidatorSections.WithLabelValues("spliced").Add(float64(spliced))
	ValidatorSections.WithLabelValues("dropped").Add(float64(dropped))
}

func ObserveIngest(outcome string) { // outcome: ok|miss|failed
	IngestOutcomes.WithLabelValues(outcome).Inc()
}
