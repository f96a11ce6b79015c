package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	AnalysisLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stocksignal",
			Subsystem: "analysis",
			Name:      "latency_seconds",
			Help:      "Latency of analysis endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	AnalysisErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stocksignal",
			Subsystem: "analysis",
			Name:      "errors_total",
			Help:      "Errors by analysis endpoint and kind",
		},
		[]string{"endpoint", "kind"},
	)

	IndicatorDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "stocksignal",
			Subsystem: "analysis",
			Name:      "indicator_seconds",
			Help:      "Time spent computing the indicator set of one series",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(AnalysisLatency, AnalysisErrors, IndicatorDuration)
	})
}
