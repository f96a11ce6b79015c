package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	providerRequests *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	signals          *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	lastPrice        *prometheus.GaugeVec
	latency          *prometheus.HistogramVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder registered on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		providerRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocksignal_provider_requests_total",
				Help: "Market data provider requests by endpoint and outcome",
			},
			[]string{"endpoint", "status"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocksignal_cache_lookups_total",
				Help: "Cache lookups by tier and result",
			},
			[]string{"tier", "hit"},
		),
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocksignal_signals_total",
				Help: "Recommendations produced by action",
			},
			[]string{"action"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocksignal_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stocksignal_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stocksignal_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordProviderRequest counts a provider call.
func (r *Recorder) RecordProviderRequest(endpoint, status string) {
	r.providerRequests.WithLabelValues(endpoint, status).Inc()
}

// RecordCacheLookup counts a cache hit or miss on one tier.
func (r *Recorder) RecordCacheLookup(tier string, hit bool) {
	r.cacheLookups.WithLabelValues(tier, strconv.FormatBool(hit)).Inc()
}

// RecordSignal counts a produced recommendation.
func (r *Recorder) RecordSignal(action string) {
	r.signals.WithLabelValues(action).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordProviderRequest(string, string) {}
func (Nop) RecordCacheLookup(string, bool)       {}
func (Nop) RecordSignal(string)                  {}
func (Nop) RecordError(string)                   {}
func (Nop) RecordLastPrice(string, float64)      {}
func (Nop) RecordLatency(string, float64)        {}
